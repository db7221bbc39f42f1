package pricing

import (
	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/coupon"
	"github.com/noah-isme/xpro-storefront/internal/money"
)

// CalculateDiscount returns the discount sel grants on item, rounded to cents.
// It is zero when sel is nil or does not target the item.
func CalculateDiscount(item catalog.BasketItem, sel *coupon.Selection) money.Money {
	if !coupon.IsApplicable(sel, item) {
		return money.Zero
	}
	return item.Price.MulFraction(sel.Amount).RoundCents()
}

// CalculatePrice returns the item price after applying sel. The result never
// drops below zero.
func CalculatePrice(item catalog.BasketItem, sel *coupon.Selection) money.Money {
	if sel == nil {
		return item.Price
	}
	return money.Max(item.Price.Sub(CalculateDiscount(item, sel)), money.Zero)
}

// FormatPrice formats an optional numeric price for display.
func FormatPrice(v *float64) string {
	return money.FormatPrice(v)
}

// Line is the computed pricing of one basket item.
type Line struct {
	ItemID   int         `json:"itemId"`
	Title    string      `json:"title"`
	Price    money.Money `json:"price"`
	Discount money.Money `json:"discount"`
	Total    money.Money `json:"total"`
}

// Summary aggregates computed pricing components.
type Summary struct {
	Lines      []Line      `json:"lines"`
	CouponCode string      `json:"couponCode,omitempty"`
	Subtotal   money.Money `json:"subtotal"`
	Discount   money.Money `json:"discount"`
	Total      money.Money `json:"total"`
}

// Compute prices every item in the basket against its applied coupon.
func Compute(basket catalog.Basket) Summary {
	sel := basket.AppliedCoupon()
	summary := Summary{Lines: make([]Line, 0, len(basket.Items))}
	if sel != nil {
		summary.CouponCode = sel.Code
	}
	for _, it := range basket.Items {
		discount := CalculateDiscount(it, sel)
		total := CalculatePrice(it, sel)
		summary.Lines = append(summary.Lines, Line{
			ItemID:   it.ID,
			Title:    it.ContentTitle,
			Price:    it.Price,
			Discount: discount,
			Total:    total,
		})
		summary.Subtotal = summary.Subtotal.Add(it.Price)
		summary.Discount = summary.Discount.Add(it.Price.Sub(total))
		summary.Total = summary.Total.Add(total)
	}
	return summary
}

// BulkQuote is the price of a seat purchase.
type BulkQuote struct {
	Seats        int64       `json:"seats"`
	ItemPrice    money.Money `json:"itemPrice"`
	Subtotal     money.Money `json:"subtotal"`
	Discount     money.Money `json:"discount"`
	Total        money.Money `json:"total"`
	CouponCode   string      `json:"couponCode,omitempty"`
	CouponTarget bool        `json:"couponApplies"`
}

// BulkTotal prices seats of a product version with an optional coupon. The
// discount is computed per seat, as the coupon applies to each enrollment.
func BulkTotal(version catalog.ProductVersion, seats int64, sel *coupon.Selection) BulkQuote {
	if seats < 0 {
		seats = 0
	}
	item := catalog.BasketItem{ID: version.ID, Type: version.Type, Price: version.Price, ProductID: version.ProductID}
	perSeat := CalculatePrice(item, sel)
	q := BulkQuote{
		Seats:        seats,
		ItemPrice:    version.Price,
		Subtotal:     version.Price.MulInt(seats),
		Total:        perSeat.MulInt(seats),
		CouponTarget: coupon.IsApplicable(sel, item),
	}
	q.Discount = q.Subtotal.Sub(q.Total)
	if sel != nil {
		q.CouponCode = sel.Code
	}
	return q
}
