package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/money"
)

// BasketItemUpdate selects the product and runs held in the basket.
type BasketItemUpdate struct {
	ProductID int   `json:"product_id"`
	RunIDs    []int `json:"run_ids,omitempty"`
}

// CouponCode references a coupon by code in a basket update.
type CouponCode struct {
	Code string `json:"code"`
}

// BasketUpdate is a partial basket update. Nil slices are left unchanged on
// the server; an empty slice clears that part of the basket.
type BasketUpdate struct {
	Items        []BasketItemUpdate
	Coupons      []CouponCode
	DataConsents []int
}

// MarshalJSON omits nil slices but keeps empty ones.
func (u BasketUpdate) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if u.Items != nil {
		out["items"] = u.Items
	}
	if u.Coupons != nil {
		out["coupons"] = u.Coupons
	}
	if u.DataConsents != nil {
		out["data_consents"] = u.DataConsents
	}
	return json.Marshal(out)
}

// CheckoutResponse tells the browser how to reach the payment processor.
// An empty payload with method GET means the order was already fulfilled.
type CheckoutResponse struct {
	Payload map[string]any `json:"payload"`
	URL     string         `json:"url"`
	Method  string         `json:"method"`
}

// B2BCheckoutRequest buys num_seats enrollment codes for one product version.
type B2BCheckoutRequest struct {
	NumSeats         int    `json:"num_seats"`
	Email            string `json:"email"`
	ProductVersionID int    `json:"product_version_id"`
	DiscountCode     string `json:"discount_code,omitempty"`
	ContractNumber   string `json:"contract_number,omitempty"`
}

// B2BCouponStatus describes a bulk purchase discount code.
type B2BCouponStatus struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ProductID       int             `json:"product_id"`
}

// B2BOrderStatus is the receipt view of a bulk order.
type B2BOrderStatus struct {
	Status         string                 `json:"status"`
	NumSeats       int                    `json:"num_seats"`
	TotalPrice     money.Money            `json:"total_price"`
	ItemPrice      money.Money            `json:"item_price"`
	ProductVersion catalog.ProductVersion `json:"product_version"`
	Email          string                 `json:"email"`
}

// CouponRequest creates promo or single-use coupons. Staff only.
type CouponRequest struct {
	Name                  string          `json:"name"`
	Tag                   string          `json:"tag,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Automatic             bool            `json:"automatic"`
	ActivationDate        time.Time       `json:"activation_date"`
	ExpirationDate        time.Time       `json:"expiration_date"`
	ProductIDs            []int           `json:"product_ids"`
	MaxRedemptions        int             `json:"max_redemptions"`
	MaxRedemptionsPerUser int             `json:"max_redemptions_per_user"`
	CouponType            string          `json:"coupon_type"`
	Company               string          `json:"company,omitempty"`
	NumCouponCodes        int             `json:"num_coupon_codes,omitempty"`
	CouponCode            string          `json:"coupon_code,omitempty"`
	PaymentType           string          `json:"payment_type,omitempty"`
	PaymentTransaction    string          `json:"payment_transaction,omitempty"`
}

// CouponPaymentVersion is the created coupon batch.
type CouponPaymentVersion struct {
	ID             int              `json:"id"`
	Tag            string           `json:"tag"`
	Amount         decimal.Decimal  `json:"amount"`
	CouponType     string           `json:"coupon_type"`
	NumCouponCodes int              `json:"num_coupon_codes"`
	Company        *catalog.Company `json:"company"`
}

// Basket fetches the session's basket.
func (c *Client) Basket(ctx context.Context, sess *Session) (catalog.Basket, error) {
	var b catalog.Basket
	err := c.call(ctx, sess, "basket.get", http.MethodGet, "/api/basket/", nil, nil, &b)
	return b, err
}

// UpdateBasket patches the basket and returns the server's new version.
func (c *Client) UpdateBasket(ctx context.Context, sess *Session, update BasketUpdate) (catalog.Basket, error) {
	var b catalog.Basket
	err := c.call(ctx, sess, "basket.patch", http.MethodPatch, "/api/basket/", nil, update, &b)
	return b, err
}

// Checkout creates an order from the basket.
func (c *Client) Checkout(ctx context.Context, sess *Session) (CheckoutResponse, error) {
	var out CheckoutResponse
	err := c.call(ctx, sess, "checkout", http.MethodPost, "/api/checkout/", nil, struct{}{}, &out)
	return out, err
}

// B2BCheckout creates a bulk order.
func (c *Client) B2BCheckout(ctx context.Context, sess *Session, req B2BCheckoutRequest) (CheckoutResponse, error) {
	var out CheckoutResponse
	err := c.call(ctx, sess, "b2b.checkout", http.MethodPost, "/api/b2b/checkout/", nil, req, &out)
	return out, err
}

// B2BCouponStatus looks up a bulk discount code for a product.
func (c *Client) B2BCouponStatus(ctx context.Context, sess *Session, code string, productID int) (B2BCouponStatus, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("product_id", strconv.Itoa(productID))
	var out B2BCouponStatus
	err := c.call(ctx, sess, "b2b.coupon_status", http.MethodGet, "/api/b2b/coupon/status/", q, nil, &out)
	return out, err
}

// B2BOrderStatus fetches the receipt of a bulk order by its hash.
func (c *Client) B2BOrderStatus(ctx context.Context, sess *Session, hash string) (B2BOrderStatus, error) {
	var out B2BOrderStatus
	err := c.call(ctx, sess, "b2b.order_status", http.MethodGet, "/api/b2b/orders/"+url.PathEscape(hash)+"/status/", nil, nil, &out)
	return out, err
}

// Products lists purchasable products.
func (c *Client) Products(ctx context.Context, sess *Session) ([]catalog.Product, error) {
	var out []catalog.Product
	err := c.call(ctx, sess, "products", http.MethodGet, "/api/products/", nil, nil, &out)
	return out, err
}

// Companies lists companies for coupon and consent forms.
func (c *Client) Companies(ctx context.Context, sess *Session) ([]catalog.Company, error) {
	var out []catalog.Company
	err := c.call(ctx, sess, "companies", http.MethodGet, "/api/companies/", nil, nil, &out)
	return out, err
}

// CreateCoupons creates a coupon batch.
func (c *Client) CreateCoupons(ctx context.Context, sess *Session, req CouponRequest) (CouponPaymentVersion, error) {
	var out CouponPaymentVersion
	err := c.call(ctx, sess, "coupons.create", http.MethodPost, "/api/coupons/", nil, req, &out)
	return out, err
}

// Ping checks the API answers at all. Any HTTP response counts as alive.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.send(ctx, nil, "ping", http.MethodGet, "/api/products/", nil, nil)
	return err
}
