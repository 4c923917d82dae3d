package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a promo discount is applied.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Discount is the stored form of a promo discount.
// For percent, Amount is in [0, 100]. For fixed, Amount is money in the promo currency.
type Discount struct {
	Type   DiscountType    `bson:"type" json:"type" validate:"required,oneof=percent fixed"`
	Amount decimal.Decimal `bson:"amount" json:"amount" validate:"gte=0"`
}

// DiscountRule computes a discount off a base amount.
type DiscountRule interface {
	Apply(base decimal.Decimal) decimal.Decimal
}

// PercentOff takes a percentage of the base.
type PercentOff struct {
	Percent decimal.Decimal
}

// Apply implements DiscountRule.
func (d PercentOff) Apply(base decimal.Decimal) decimal.Decimal {
	return capDiscount(base.Mul(d.Percent).Div(decimal.NewFromInt(100)), base)
}

// AmountOff takes a fixed amount off the base.
type AmountOff struct {
	Amount decimal.Decimal
}

// Apply implements DiscountRule.
func (d AmountOff) Apply(base decimal.Decimal) decimal.Decimal {
	return capDiscount(d.Amount, base)
}

func capDiscount(d, base decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(base) {
		return base
	}
	return d
}

// Rule returns the discount rule of d, or nil when the type is unknown.
func (d Discount) Rule() DiscountRule {
	switch d.Type {
	case DiscountPercent:
		return PercentOff{Percent: d.Amount}
	case DiscountFixed:
		return AmountOff{Amount: d.Amount}
	}
	return nil
}

// Valid reports whether the discount is well formed.
func (d Discount) Valid() bool {
	switch d.Type {
	case DiscountPercent:
		return !d.Amount.IsNegative() && d.Amount.LessThanOrEqual(decimal.NewFromInt(100))
	case DiscountFixed:
		return !d.Amount.IsNegative()
	}
	return false
}

// PromoCode is a redeemable discount. UsageLimit 0 means unlimited.
type PromoCode struct {
	ID         string     `bson:"_id" json:"id"`
	Code       string     `bson:"code" json:"code" validate:"required"`
	Discount   Discount   `bson:"discount" json:"discount"`
	Currency   *Currency  `bson:"currency,omitempty" json:"currency,omitempty" validate:"omitempty,oneof=USD ZWL"`
	ValidFrom  time.Time  `bson:"valid_from" json:"valid_from"`
	ValidTo    *time.Time `bson:"valid_to,omitempty" json:"valid_to,omitempty"`
	UsageLimit int        `bson:"usage_limit" json:"usage_limit" validate:"gte=0"`
	UsageCount int        `bson:"usage_count" json:"usage_count"`
	Active     bool       `bson:"active" json:"active"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// Redeemable reports whether the promo can be used at the given time in the given currency.
func (p *PromoCode) Redeemable(at time.Time, currency Currency) bool {
	if !p.Active || at.Before(p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && !at.Before(*p.ValidTo) {
		return false
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return false
	}
	if p.Currency != nil && *p.Currency != currency {
		return false
	}
	return true
}
