package coupon

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/common"
)

// ErrInvalidCode is returned by a Lookup when the code does not exist or is
// not valid for the product.
var ErrInvalidCode = errors.New("coupon: invalid code")

// FieldCode is the form field coupon errors are attributed to.
const FieldCode = "coupon_code"

// Lookup validates a coupon code against the remote coupon-status API.
type Lookup interface {
	Lookup(ctx context.Context, code string, productID int) (Selection, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, code string, productID int) (Selection, error)

// Lookup implements Lookup.
func (f LookupFunc) Lookup(ctx context.Context, code string, productID int) (Selection, error) {
	return f(ctx, code, productID)
}

// Selector holds the last successfully validated coupon.
type Selector struct {
	Lookup Lookup
	Logger zerolog.Logger

	mu      sync.Mutex
	current *Selection
}

// Current returns a copy of the applied coupon, or nil.
func (s *Selector) Current() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	sel := *s.current
	sel.Targets = append([]int(nil), s.current.Targets...)
	return &sel
}

// Clear drops the applied coupon.
func (s *Selector) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Apply validates code for productID and makes it the applied coupon.
//
// An empty code is rejected before any lookup and leaves the previous coupon
// in place. A failed lookup clears the coupon. Both surface as a
// ValidationError on FieldCode.
func (s *Selector) Apply(ctx context.Context, code string, productID int) (*Selection, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, common.NewFieldError(FieldCode, "Coupon code is required")
	}
	if s.Lookup == nil {
		return nil, errors.New("coupon: lookup not configured")
	}
	sel, err := s.Lookup.Lookup(ctx, code, productID)
	if err == nil {
		err = sel.Validate()
	}
	if err != nil {
		s.Clear()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if _, ok := common.AsValidation(err); ok {
			return nil, err
		}
		if !errors.Is(err, ErrInvalidCode) {
			s.Logger.Warn().Err(err).Str("code", code).Int("product_id", productID).Msg("coupon_lookup_failed")
		}
		return nil, common.NewFieldError(FieldCode, "Invalid coupon code")
	}

	s.mu.Lock()
	s.current = &sel
	s.mu.Unlock()
	return s.Current(), nil
}
