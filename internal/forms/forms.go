package forms

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoginEmail starts the login flow.
type LoginEmail struct {
	Email string `json:"email" validate:"required,email"`
	Next  string `json:"next,omitempty"`
}

// LoginPassword completes the login flow.
type LoginPassword struct {
	PartialToken string `json:"partial_token" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

// RegisterEmail starts registration.
type RegisterEmail struct {
	Email     string `json:"email" validate:"required,email"`
	Recaptcha string `json:"recaptcha,omitempty"`
	Next      string `json:"next,omitempty"`
}

// RegisterConfirm submits the code from the confirmation email.
type RegisterConfirm struct {
	PartialToken     string `json:"partial_token" validate:"required"`
	VerificationCode string `json:"verification_code" validate:"required"`
}

// LegalAddress is the address used for export compliance checks. State and
// postal code are only required in the US and Canada.
type LegalAddress struct {
	FirstName        string   `json:"first_name" validate:"required,max=60"`
	LastName         string   `json:"last_name" validate:"required,max=60"`
	StreetAddress    []string `json:"street_address" validate:"required,min=1,max=5,dive,required,max=60"`
	City             string   `json:"city" validate:"required,max=50"`
	Country          string   `json:"country" validate:"required,len=2"`
	StateOrTerritory string   `json:"state_or_territory" validate:"max=255"`
	PostalCode       string   `json:"postal_code" validate:"max=10"`
}

// RegisterDetails collects the account name, password and legal address.
type RegisterDetails struct {
	PartialToken string       `json:"partial_token" validate:"required"`
	Name         string       `json:"name" validate:"required,max=255"`
	Password     string       `json:"password" validate:"required,password"`
	LegalAddress LegalAddress `json:"legal_address" validate:"required"`
}

// RegisterExtra collects profile information.
type RegisterExtra struct {
	PartialToken     string `json:"partial_token" validate:"required"`
	Gender           string `json:"gender,omitempty" validate:"omitempty,oneof=m f o"`
	BirthYear        int    `json:"birth_year" validate:"required,gte=1900,notfuture"`
	Company          string `json:"company" validate:"required,max=128"`
	JobTitle         string `json:"job_title" validate:"required,max=128"`
	CompanySize      int    `json:"company_size,omitempty"`
	Industry         string `json:"industry,omitempty" validate:"max=60"`
	JobFunction      string `json:"job_function,omitempty" validate:"max=60"`
	YearsExperience  int    `json:"years_experience,omitempty" validate:"gte=0"`
	LeadershipLevel  string `json:"leadership_level,omitempty" validate:"max=60"`
	HighestEducation string `json:"highest_education,omitempty" validate:"max=60"`
}

// PasswordReset requests a reset email.
type PasswordReset struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm sets a new password from a reset link.
type PasswordResetConfirm struct {
	UID           string `json:"uid" validate:"required"`
	Token         string `json:"token" validate:"required"`
	NewPassword   string `json:"new_password" validate:"required,password"`
	ReNewPassword string `json:"re_new_password" validate:"required,eqfield=NewPassword"`
}

// CouponCode applies a coupon to the basket.
type CouponCode struct {
	Code string `json:"coupon_code" validate:"required,max=50"`
}

// B2BPurchase buys enrollment codes in bulk. The product is chosen by type,
// product and, for courses with several runs, run.
type B2BPurchase struct {
	NumSeats       int    `json:"num_seats" validate:"required,gte=1"`
	Email          string `json:"email" validate:"required,email"`
	ProductType    string `json:"product_type" validate:"required,oneof=courserun program"`
	ProductID      int    `json:"product_id" validate:"required,gt=0"`
	RunID          int    `json:"run_id,omitempty" validate:"gte=0"`
	CouponCode     string `json:"coupon_code,omitempty" validate:"max=50"`
	ContractNumber string `json:"contract_number,omitempty" validate:"max=50"`
}

// Coupon types accepted by CouponCreate.
const (
	CouponTypePromo     = "promo"
	CouponTypeSingleUse = "single-use"
)

// CouponCreate creates a batch of promo or single-use coupons.
type CouponCreate struct {
	Name                  string          `json:"name" validate:"required,max=256"`
	Tag                   string          `json:"tag,omitempty" validate:"max=256"`
	Amount                decimal.Decimal `json:"amount" validate:"required,fraction"`
	Automatic             bool            `json:"automatic"`
	ActivationDate        time.Time       `json:"activation_date" validate:"required"`
	ExpirationDate        time.Time       `json:"expiration_date" validate:"required,gtfield=ActivationDate"`
	ProductIDs            []int           `json:"product_ids" validate:"required,min=1,dive,gt=0"`
	MaxRedemptions        int             `json:"max_redemptions" validate:"gte=1"`
	MaxRedemptionsPerUser int             `json:"max_redemptions_per_user" validate:"gte=1"`
	CouponType            string          `json:"coupon_type" validate:"required,oneof=promo single-use"`
	Company               string          `json:"company,omitempty" validate:"max=512"`
	NumCouponCodes        int             `json:"num_coupon_codes,omitempty" validate:"required_if=CouponType single-use"`
	CouponCode            string          `json:"coupon_code,omitempty" validate:"required_if=CouponType promo,max=50"`
	PaymentType           string          `json:"payment_type,omitempty" validate:"required_if=CouponType single-use"`
	PaymentTransaction    string          `json:"payment_transaction,omitempty" validate:"required_if=CouponType single-use,max=256"`
}
