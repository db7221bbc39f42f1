package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/coupon"
	"github.com/noah-isme/xpro-storefront/internal/entities"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/pricing"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// Remote is the subset of the API client checkout needs.
type Remote interface {
	Checkout(ctx context.Context, sess *remote.Session) (remote.CheckoutResponse, error)
	B2BCheckout(ctx context.Context, sess *remote.Session, req remote.B2BCheckoutRequest) (remote.CheckoutResponse, error)
	B2BCouponStatus(ctx context.Context, sess *remote.Session, code string, productID int) (remote.B2BCouponStatus, error)
}

// basketFields maps basket API errors onto checkout form fields.
var basketFields = map[string]string{
	"coupons":       coupon.FieldCode,
	"items":         "items",
	"runs":          "runs",
	"data_consents": "data_consents",
}

// Service prices the session basket and submits it for payment.
type Service struct {
	Remote Remote
	Store  *entities.Store
	Logger zerolog.Logger

	guard forms.Guard
}

// NewService constructs a checkout service.
func NewService(rem Remote, store *entities.Store, logger zerolog.Logger) *Service {
	s := &Service{Remote: rem, Store: store, Logger: logger}
	s.guard.RemoteFields = basketFields
	s.guard.Logger = logger
	return s
}

// View is the basket together with its computed prices.
type View struct {
	Basket  catalog.Basket  `json:"basket"`
	Summary pricing.Summary `json:"summary"`
}

func view(b catalog.Basket) View {
	return View{Basket: b, Summary: pricing.Compute(b)}
}

// Summary returns the priced basket.
func (s *Service) Summary(ctx context.Context, sess *remote.Session) (View, error) {
	b, err := s.Store.Basket(ctx, sess)
	if err != nil {
		return View{}, err
	}
	return view(b), nil
}

// ApplyCoupon applies form.Code to the basket. A rejected code is reported
// on the coupon_code field and the basket is re-read so the caller sees the
// coupon the server actually kept.
func (s *Service) ApplyCoupon(ctx context.Context, sess *remote.Session, form forms.CouponCode) (View, error) {
	var out catalog.Basket
	err := s.guard.Submit(ctx, formKey(ctx, sess, "coupon"), form, func(ctx context.Context) error {
		b, err := s.Store.UpdateBasket(ctx, sess, remote.BasketUpdate{Coupons: []remote.CouponCode{{Code: form.Code}}})
		out = b
		return err
	})
	if err != nil {
		result := "error"
		if _, ok := common.AsValidation(err); ok {
			result = "invalid"
		}
		obs.Count(obs.CouponApplyTotal, "basket", result)
		return View{}, err
	}
	obs.Count(obs.CouponApplyTotal, "basket", "applied")
	return view(out), nil
}

// ClearCoupon removes any applied coupon.
func (s *Service) ClearCoupon(ctx context.Context, sess *remote.Session) (View, error) {
	return s.update(ctx, sess, "coupon", remote.BasketUpdate{Coupons: []remote.CouponCode{}})
}

// SelectRuns changes the basket item to productID with the given runs.
func (s *Service) SelectRuns(ctx context.Context, sess *remote.Session, productID int, runIDs []int) (View, error) {
	if productID <= 0 {
		return View{}, common.NewFieldError("items", "Select a product")
	}
	return s.update(ctx, sess, "items", remote.BasketUpdate{Items: []remote.BasketItemUpdate{{ProductID: productID, RunIDs: runIDs}}})
}

// SignConsents records the data consent agreements the user accepted.
func (s *Service) SignConsents(ctx context.Context, sess *remote.Session, consentIDs []int) (View, error) {
	if consentIDs == nil {
		consentIDs = []int{}
	}
	return s.update(ctx, sess, "consents", remote.BasketUpdate{DataConsents: consentIDs})
}

func (s *Service) update(ctx context.Context, sess *remote.Session, form string, update remote.BasketUpdate) (View, error) {
	var out catalog.Basket
	err := s.guard.Submit(ctx, formKey(ctx, sess, form), nil, func(ctx context.Context) error {
		b, err := s.Store.UpdateBasket(ctx, sess, update)
		out = b
		return err
	})
	if err != nil {
		return View{}, err
	}
	return view(out), nil
}

// Submit creates an order from the basket. The cached basket is dropped on
// success since the server empties it.
func (s *Service) Submit(ctx context.Context, sess *remote.Session) (remote.CheckoutResponse, error) {
	var out remote.CheckoutResponse
	err := s.guard.Submit(ctx, formKey(ctx, sess, "checkout"), nil, func(ctx context.Context) error {
		b, err := s.Store.RefreshBasket(ctx, sess)
		if err != nil {
			return err
		}
		if len(b.Items) == 0 {
			return &common.ValidationError{General: []string{"Your basket is empty"}}
		}
		resp, err := s.Remote.Checkout(ctx, sess)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	recordSubmit("basket", err)
	if err != nil {
		if !errors.Is(err, forms.ErrRequestPending) {
			s.Logger.Warn().Err(err).Msg("checkout failed")
		}
		return remote.CheckoutResponse{}, err
	}
	s.Store.InvalidateBasket(ctx)
	return out, nil
}

// formKey scopes form to the request owner. Without one each remote session
// is its own owner, so unrelated anonymous buyers never share a guard.
func formKey(ctx context.Context, sess *remote.Session, form string) string {
	if key, ok := common.FormKey(ctx, form); ok {
		return key
	}
	return fmt.Sprintf("sess:%p:%s", sess, form)
}

func recordSubmit(kind string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, forms.ErrRequestPending):
		result = "pending"
	default:
		if _, ok := common.AsValidation(err); ok {
			result = "invalid"
		} else {
			result = "error"
		}
	}
	obs.Count(obs.CheckoutSubmitTotal, kind, result)
}
