// Package catalog holds the normalized entities returned by the remote
// ecommerce API: products, product versions, course runs and baskets.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/xpro-storefront/internal/coupon"
	"github.com/noah-isme/xpro-storefront/internal/money"
)

// ProductType distinguishes course run purchases from program purchases.
type ProductType string

const (
	ProductTypeCourseRun ProductType = "courserun"
	ProductTypeProgram   ProductType = "program"
)

// Valid reports whether t is a known product type.
func (t ProductType) Valid() bool {
	return t == ProductTypeCourseRun || t == ProductTypeProgram
}

// UnmarshalJSON rejects unknown product types.
func (t *ProductType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pt := ProductType(raw)
	if !pt.Valid() {
		return fmt.Errorf("catalog: unknown product type %q", raw)
	}
	*t = pt
	return nil
}

// Run is a dated offering of a course. ProductID is the run-bound product
// that must be purchased to enroll in it.
type Run struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	CoursewareID string     `json:"courseware_id"`
	ProductID    int        `json:"product_id"`
}

// Course groups runs of the same content.
type Course struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	ReadableID string `json:"readable_id"`
	Runs       []Run  `json:"courseruns"`
}

// ProductVersion is a priced, dated instance of a product.
type ProductVersion struct {
	ID           int         `json:"id"`
	Price        money.Money `json:"price"`
	Description  string      `json:"description"`
	ContentTitle string      `json:"content_title"`
	Type         ProductType `json:"type"`
	Courses      []Course    `json:"courses"`
	ThumbnailURL string      `json:"thumbnail_url"`
	ObjectID     int         `json:"object_id"`
	ProductID    int         `json:"product_id"`
	ReadableID   string      `json:"readable_id"`
}

// Product is a purchasable course run or program.
type Product struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	ProductType   ProductType    `json:"product_type"`
	LatestVersion ProductVersion `json:"latest_version"`
}

// Company is an employer a purchaser can be associated with.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BasketItem is an immutable snapshot of one purchasable unit in the basket.
// ID is the product version id; coupons target it.
type BasketItem struct {
	ID           int         `json:"id"`
	Type         ProductType `json:"type"`
	Price        money.Money `json:"price"`
	Courses      []Course    `json:"courses"`
	RunIDs       []int       `json:"run_ids"`
	ProductID    int         `json:"product_id"`
	ContentTitle string      `json:"content_title"`
	ReadableID   string      `json:"readable_id"`
}

// TargetID implements coupon.Target.
func (i BasketItem) TargetID() int { return i.ID }

// DataConsent is a company data-sharing agreement attached to the basket.
type DataConsent struct {
	ID          int        `json:"id"`
	Company     Company    `json:"company"`
	ConsentDate *time.Time `json:"consent_date"`
	ConsentText string     `json:"consent_text"`
}

// Basket is the server-side cart awaiting checkout.
type Basket struct {
	Items        []BasketItem       `json:"items"`
	Coupons      []coupon.Selection `json:"coupons"`
	DataConsents []DataConsent      `json:"data_consents"`
}

// AppliedCoupon returns the coupon in effect, if any. The remote basket
// allows at most one.
func (b Basket) AppliedCoupon() *coupon.Selection {
	if len(b.Coupons) == 0 {
		return nil
	}
	sel := b.Coupons[0]
	return &sel
}

// FindRun locates a run by id across the version's courses.
func (v ProductVersion) FindRun(runID int) (Run, Course, bool) {
	for _, c := range v.Courses {
		for _, r := range c.Runs {
			if r.ID == runID {
				return r, c, true
			}
		}
	}
	return Run{}, Course{}, false
}
