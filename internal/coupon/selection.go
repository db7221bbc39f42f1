package coupon

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/xpro-storefront/internal/common"
)

// Selection is the coupon currently applied to a basket. Amount is the
// discount as a fraction (0.5 == 50% off) and Targets lists the product
// version ids it applies to.
type Selection struct {
	Code    string          `json:"code"`
	Amount  decimal.Decimal `json:"amount"`
	Targets []int           `json:"targets"`
}

// Target is anything a coupon can be applied to.
type Target interface {
	TargetID() int
}

var one = decimal.NewFromInt(1)

// Validate checks the selection is usable for pricing.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Code) == "" {
		return common.NewFieldError("coupon_code", "Coupon code is required")
	}
	if s.Amount.IsNegative() || s.Amount.GreaterThan(one) {
		return common.NewFieldError("coupon_code", "Coupon amount must be between 0 and 1")
	}
	return nil
}

// AppliesTo reports whether the selection targets id.
func (s Selection) AppliesTo(id int) bool {
	return slices.Contains(s.Targets, id)
}

// IsApplicable reports whether sel is non-nil and targets item.
func IsApplicable(sel *Selection, item Target) bool {
	if sel == nil || item == nil {
		return false
	}
	return sel.AppliesTo(item.TargetID())
}
