package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/coupon"
	"github.com/noah-isme/xpro-storefront/internal/entities"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/pricing"
	"github.com/noah-isme/xpro-storefront/internal/remote"
	"github.com/noah-isme/xpro-storefront/internal/selector"
)

// B2BService quotes and submits bulk enrollment code purchases.
type B2BService struct {
	Remote Remote
	Store  *entities.Store
	Logger zerolog.Logger

	guard forms.Guard
}

// NewB2BService constructs a bulk purchase service.
func NewB2BService(rem Remote, store *entities.Store, logger zerolog.Logger) *B2BService {
	s := &B2BService{Remote: rem, Store: store, Logger: logger}
	s.guard.RemoteFields = map[string]string{
		"num_seats":          "num_seats",
		"email":              "email",
		"product_version_id": "product_id",
		"discount_code":      coupon.FieldCode,
		"contract_number":    "contract_number",
	}
	s.guard.Logger = logger
	return s
}

// QuoteRequest prices a bulk purchase before it is submitted.
type QuoteRequest struct {
	ProductType catalog.ProductType `json:"product_type"`
	ProductID   int                 `json:"product_id"`
	RunID       int                 `json:"run_id,omitempty"`
	Seats       int64               `json:"num_seats"`
	CouponCode  string              `json:"coupon_code,omitempty"`
}

// Lookup validates bulk discount codes against the coupon status API. The
// resulting selection targets the latest version of the coupon's product.
func (s *B2BService) Lookup(sess *remote.Session) coupon.Lookup {
	return coupon.LookupFunc(func(ctx context.Context, code string, productID int) (coupon.Selection, error) {
		status, err := s.Remote.B2BCouponStatus(ctx, sess, code, productID)
		if err != nil {
			var reqErr *remote.RequestError
			if errors.As(err, &reqErr) && (reqErr.Status == http.StatusNotFound || reqErr.Status == http.StatusBadRequest) {
				return coupon.Selection{}, coupon.ErrInvalidCode
			}
			return coupon.Selection{}, err
		}
		products, err := s.Store.Products(ctx, sess)
		if err != nil {
			return coupon.Selection{}, err
		}
		for _, p := range products {
			if p.ID == status.ProductID {
				return coupon.Selection{Code: status.Code, Amount: status.DiscountPercent, Targets: []int{p.LatestVersion.ID}}, nil
			}
		}
		s.Logger.Warn().Str("code", status.Code).Int("product_id", status.ProductID).Msg("b2b coupon product not in catalog")
		return coupon.Selection{}, coupon.ErrInvalidCode
	})
}

// resolve walks the product selector to the purchasable product.
func resolve(products []catalog.Product, pt catalog.ProductType, productID, runID int) (catalog.Product, error) {
	sel := selector.New(products, nil)
	if err := sel.SelectProductType(pt); err != nil {
		return catalog.Product{}, err
	}
	if err := sel.SelectProduct(productID); err != nil {
		return catalog.Product{}, err
	}
	if runID != 0 {
		if err := sel.SelectRun(runID); err != nil {
			return catalog.Product{}, err
		}
	}
	choice := sel.Value()
	if !choice.OK {
		return catalog.Product{}, common.NewFieldError(selector.FieldRun, "Select a run")
	}
	for _, p := range products {
		if p.ID == choice.ProductID {
			return p, nil
		}
	}
	return catalog.Product{}, common.NewFieldError(selector.FieldRun, "This run is not available for purchase")
}

// Quote prices seats of the selected product. An invalid coupon is reported
// on the coupon_code field.
func (s *B2BService) Quote(ctx context.Context, sess *remote.Session, req QuoteRequest) (pricing.BulkQuote, error) {
	if req.Seats < 1 {
		return pricing.BulkQuote{}, common.NewFieldError("num_seats", "Must be at least 1")
	}
	products, err := s.Store.Products(ctx, sess)
	if err != nil {
		return pricing.BulkQuote{}, err
	}
	product, err := resolve(products, req.ProductType, req.ProductID, req.RunID)
	if err != nil {
		return pricing.BulkQuote{}, err
	}
	var applied *coupon.Selection
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupons := coupon.Selector{Lookup: s.Lookup(sess), Logger: s.Logger}
		applied, err = coupons.Apply(ctx, code, product.ID)
		if err != nil {
			obs.Count(obs.CouponApplyTotal, "b2b", "invalid")
			return pricing.BulkQuote{}, err
		}
		obs.Count(obs.CouponApplyTotal, "b2b", "applied")
	}
	return pricing.BulkTotal(product.LatestVersion, req.Seats, applied), nil
}

// Submit creates a bulk order and returns the payment redirect.
func (s *B2BService) Submit(ctx context.Context, sess *remote.Session, form forms.B2BPurchase) (remote.CheckoutResponse, error) {
	var out remote.CheckoutResponse
	err := s.guard.Submit(ctx, formKey(ctx, sess, "b2b"), form, func(ctx context.Context) error {
		products, err := s.Store.Products(ctx, sess)
		if err != nil {
			return err
		}
		product, err := resolve(products, catalog.ProductType(form.ProductType), form.ProductID, form.RunID)
		if err != nil {
			return err
		}
		resp, err := s.Remote.B2BCheckout(ctx, sess, remote.B2BCheckoutRequest{
			NumSeats:         form.NumSeats,
			Email:            form.Email,
			ProductVersionID: product.LatestVersion.ID,
			DiscountCode:     strings.TrimSpace(form.CouponCode),
			ContractNumber:   strings.TrimSpace(form.ContractNumber),
		})
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	recordSubmit("b2b", err)
	if err != nil {
		return remote.CheckoutResponse{}, err
	}
	return out, nil
}
