package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-like code of the enumerated settlement currencies.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyZWL Currency = "ZWL"
)

// IsValidCurrency checks if a currency is enumerated
func IsValidCurrency(c Currency) bool {
	switch c {
	case CurrencyUSD, CurrencyZWL:
		return true
	default:
		return false
	}
}

// MinorUnits is the number of decimal places money is rounded to in c.
// Both enumerated currencies settle in hundredths.
func (c Currency) MinorUnits() int32 {
	return 2
}

// PriceLine is one quantity x unit line of the breakdown.
type PriceLine struct {
	Label      string          `bson:"label" json:"label"`
	Quantity   int             `bson:"quantity" json:"quantity"`
	UnitAmount decimal.Decimal `bson:"unit_amount" json:"unit_amount"`
	Total      decimal.Decimal `bson:"total" json:"total"`
}

// FeeLine is a flat fee added to the total.
type FeeLine struct {
	Code   string          `bson:"code" json:"code"`
	Amount decimal.Decimal `bson:"amount" json:"amount" validate:"gte=0"`
}

// TaxLine is a tax applied at Rate on the taxable base.
type TaxLine struct {
	Code   string          `bson:"code" json:"code"`
	Rate   decimal.Decimal `bson:"rate" json:"rate"`
	Amount decimal.Decimal `bson:"amount" json:"amount"`
}

// DiscountLine is subtracted from the total.
type DiscountLine struct {
	PromoCodeID *string         `bson:"promo_code_id,omitempty" json:"promo_code_id,omitempty"`
	Amount      decimal.Decimal `bson:"amount" json:"amount" validate:"gte=0"`
}

// PricingSnapshot is the frozen price of a reservation. It is written once at creation.
type PricingSnapshot struct {
	Currency   Currency        `bson:"currency" json:"currency"`
	Breakdown  []PriceLine     `bson:"breakdown" json:"breakdown"`
	Fees       []FeeLine       `bson:"fees" json:"fees"`
	Taxes      []TaxLine       `bson:"taxes" json:"taxes"`
	Discounts  []DiscountLine  `bson:"discounts" json:"discounts"`
	GrandTotal decimal.Decimal `bson:"grand_total" json:"grand_total"`
	ComputedAt time.Time       `bson:"computed_at" json:"computed_at"`
}

// Subtotal is the sum of breakdown line totals.
func (p PricingSnapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range p.Breakdown {
		sum = sum.Add(l.Total)
	}
	return sum
}

// SumLines recomputes the grand total from the lines:
// Σbreakdown + Σfees + Σtaxes − Σdiscounts.
func (p PricingSnapshot) SumLines() decimal.Decimal {
	sum := p.Subtotal()
	for _, f := range p.Fees {
		sum = sum.Add(f.Amount)
	}
	for _, t := range p.Taxes {
		sum = sum.Add(t.Amount)
	}
	for _, d := range p.Discounts {
		sum = sum.Sub(d.Amount)
	}
	return sum
}

// Balanced reports whether GrandTotal equals the recomputed sum of lines.
func (p PricingSnapshot) Balanced() bool {
	return p.GrandTotal.Equal(p.SumLines())
}
