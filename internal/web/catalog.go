package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/entities"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// CatalogAPI is the part of the remote API the catalog pages call directly.
type CatalogAPI interface {
	CreateCoupons(ctx context.Context, sess *remote.Session, req remote.CouponRequest) (remote.CouponPaymentVersion, error)
	B2BOrderStatus(ctx context.Context, sess *remote.Session, hash string) (remote.B2BOrderStatus, error)
}

// CatalogHandler serves products, companies, coupon creation and bulk
// order receipts.
type CatalogHandler struct {
	Store  *entities.Store
	API    CatalogAPI
	Logger zerolog.Logger

	guard forms.Guard
}

// Products lists purchasable products, optionally filtered by ?type=.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	var filter catalog.ProductType
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		filter = catalog.ProductType(raw)
		if !filter.Valid() {
			common.WriteError(w, common.NewFieldError("type", "Unknown product type"))
			return
		}
	}
	products, err := h.Store.Products(r.Context(), remote.SessionFrom(r.Context()))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if filter == "" || p.ProductType == filter {
			out = append(out, p)
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Companies lists the companies a coupon can be attributed to.
func (h *CatalogHandler) Companies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.Companies(r.Context(), remote.SessionFrom(r.Context()))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": companies})
}

// CreateCoupons creates a batch of promo or single-use coupons.
func (h *CatalogHandler) CreateCoupons(w http.ResponseWriter, r *http.Request) {
	var form forms.CouponCreate
	if !decode(w, r, &form) {
		return
	}
	ctx := r.Context()
	sess := remote.SessionFrom(ctx)
	var out remote.CouponPaymentVersion
	err := h.guard.Submit(ctx, ownerKey(r, "coupons"), form, func(ctx context.Context) error {
		created, err := h.API.CreateCoupons(ctx, sess, remote.CouponRequest(form))
		out = created
		return err
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Logger.Info().Int("coupon_payment_version", out.ID).Str("coupon_type", out.CouponType).Msg("coupons_created")
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// B2BOrderStatus renders the receipt of a bulk order.
func (h *CatalogHandler) B2BOrderStatus(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimSpace(chi.URLParam(r, "hash"))
	if hash == "" {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	status, err := h.API.B2BOrderStatus(r.Context(), remote.SessionFrom(r.Context()), hash)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": status})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}
