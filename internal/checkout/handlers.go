package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// Handler exposes basket and checkout operations to the browser.
type Handler struct {
	Svc *Service
	B2B *B2BService
}

type itemsPayload struct {
	ProductID int   `json:"product_id"`
	RunIDs    []int `json:"run_ids"`
}

type consentsPayload struct {
	ConsentIDs []int `json:"consent_ids"`
}

// Basket renders the priced basket.
func (h *Handler) Basket(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Summary(r.Context(), remote.SessionFrom(r.Context()))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// ApplyCoupon applies a coupon code to the basket.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var form forms.CouponCode
	if !decode(w, r, &form) {
		return
	}
	out, err := h.Svc.ApplyCoupon(r.Context(), remote.SessionFrom(r.Context()), form)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// ClearCoupon removes the applied coupon.
func (h *Handler) ClearCoupon(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ClearCoupon(r.Context(), remote.SessionFrom(r.Context()))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// UpdateItems changes the basket product and runs.
func (h *Handler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	var payload itemsPayload
	if !decode(w, r, &payload) {
		return
	}
	out, err := h.Svc.SelectRuns(r.Context(), remote.SessionFrom(r.Context()), payload.ProductID, payload.RunIDs)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// SignConsents records accepted data consent agreements.
func (h *Handler) SignConsents(w http.ResponseWriter, r *http.Request) {
	var payload consentsPayload
	if !decode(w, r, &payload) {
		return
	}
	out, err := h.Svc.SignConsents(r.Context(), remote.SessionFrom(r.Context()), payload.ConsentIDs)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Checkout submits the basket and returns the payment redirect.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Submit(r.Context(), remote.SessionFrom(r.Context()))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// Quote prices a bulk purchase.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.B2B.Quote(r.Context(), remote.SessionFrom(r.Context()), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// B2BCheckout submits a bulk purchase.
func (h *Handler) B2BCheckout(w http.ResponseWriter, r *http.Request) {
	var form forms.B2BPurchase
	if !decode(w, r, &form) {
		return
	}
	out, err := h.B2B.Submit(r.Context(), remote.SessionFrom(r.Context()), form)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}
