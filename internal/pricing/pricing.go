// Package pricing freezes reservation prices into immutable snapshots.
package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// LineInput is a breakdown line before rounding.
type LineInput struct {
	Label      string          `json:"label"`
	Quantity   int             `json:"quantity" validate:"gte=1"`
	UnitAmount decimal.Decimal `json:"unit_amount" validate:"gte=0"`
}

// TaxInput is a tax to charge on the taxable base. Amounts are always computed.
type TaxInput struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate" validate:"gte=0,lte=1"`
}

// Input carries caller supplied pricing. GrandTotal, when present, must equal the recomputed total.
type Input struct {
	Currency   models.Currency       `json:"currency" validate:"required,oneof=USD ZWL"`
	Breakdown  []LineInput           `json:"breakdown" validate:"min=1,dive"`
	Fees       []models.FeeLine      `json:"fees" validate:"dive"`
	Taxes      []TaxInput            `json:"taxes" validate:"dive"`
	Discounts  []models.DiscountLine `json:"discounts" validate:"dive"`
	GrandTotal *decimal.Decimal      `json:"grand_total,omitempty"`
}

func round(d decimal.Decimal, c models.Currency) decimal.Decimal {
	return d.RoundBank(c.MinorUnits())
}

// Freeze validates in and produces the snapshot persisted with a reservation.
// Every money value is rounded half-to-even to the currency's minor units and the grand
// total is recomputed from the rounded lines.
func Freeze(in Input, at time.Time) (models.PricingSnapshot, error) {
	if err := validation.Struct(in); err != nil {
		return models.PricingSnapshot{}, err
	}
	c := in.Currency

	snap := models.PricingSnapshot{
		Currency:   c,
		Breakdown:  make([]models.PriceLine, 0, len(in.Breakdown)),
		Fees:       make([]models.FeeLine, 0, len(in.Fees)),
		Taxes:      make([]models.TaxLine, 0, len(in.Taxes)),
		Discounts:  make([]models.DiscountLine, 0, len(in.Discounts)),
		ComputedAt: at.UTC(),
	}

	for _, l := range in.Breakdown {
		unit := round(l.UnitAmount, c)
		snap.Breakdown = append(snap.Breakdown, models.PriceLine{
			Label:      l.Label,
			Quantity:   l.Quantity,
			UnitAmount: unit,
			Total:      round(unit.Mul(decimal.NewFromInt(int64(l.Quantity))), c),
		})
	}

	for _, f := range in.Fees {
		snap.Fees = append(snap.Fees, models.FeeLine{Code: f.Code, Amount: round(f.Amount, c)})
	}

	for _, d := range in.Discounts {
		snap.Discounts = append(snap.Discounts, models.DiscountLine{PromoCodeID: d.PromoCodeID, Amount: round(d.Amount, c)})
	}

	base := TaxableBase(snap)
	for _, t := range in.Taxes {
		snap.Taxes = append(snap.Taxes, models.TaxLine{Code: t.Code, Rate: t.Rate, Amount: round(base.Mul(t.Rate), c)})
	}

	snap.GrandTotal = snap.SumLines()
	if snap.GrandTotal.IsNegative() {
		return models.PricingSnapshot{}, errs.Validation("discounts exceed the priced amount")
	}
	if in.GrandTotal != nil && !in.GrandTotal.Equal(snap.GrandTotal) {
		return models.PricingSnapshot{}, errs.Validation("grand_total %s does not match lines", in.GrandTotal.String()).
			WithDetails(map[string]string{"expected": snap.GrandTotal.StringFixed(c.MinorUnits())})
	}
	return snap, nil
}

// TaxableBase is subtotal plus fees minus discounts, floored at zero.
func TaxableBase(p models.PricingSnapshot) decimal.Decimal {
	base := p.Subtotal()
	for _, f := range p.Fees {
		base = base.Add(f.Amount)
	}
	for _, d := range p.Discounts {
		base = base.Sub(d.Amount)
	}
	if base.IsNegative() {
		return decimal.Zero
	}
	return base
}

// RentalDays is the number of started 24h periods in [start, end), at least one.
func RentalDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// ResolvePlan picks the plan that prices target: highest priority first, then the most
// specific selectors, then the lowest id so the choice is stable.
func ResolvePlan(plans []models.RatePlan, target models.RateTarget) (*models.RatePlan, error) {
	candidates := make([]models.RatePlan, 0, len(plans))
	for _, p := range plans {
		if p.Matches(target) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, errs.Validation("no active rate plan applies to vehicle model %s at branch %s", target.VehicleModelID, target.BranchID)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Specificity() != b.Specificity() {
			return a.Specificity() > b.Specificity()
		}
		return a.ID < b.ID
	})
	return &candidates[0], nil
}

// Quote prices a booking from a rate plan and an optional promo code.
func Quote(plan *models.RatePlan, start, end time.Time, promo *models.PromoCode, at time.Time) (models.PricingSnapshot, error) {
	days := RentalDays(start, end)
	label := "Daily rate"
	if plan.Name != "" {
		label = "Daily rate (" + plan.Name + ")"
	}
	in := Input{
		Currency:  plan.Currency,
		Breakdown: []LineInput{{Label: label, Quantity: days, UnitAmount: plan.DailyRate}},
		Fees:      plan.Fees,
	}
	for _, t := range plan.Taxes {
		in.Taxes = append(in.Taxes, TaxInput{Code: t.Code, Rate: t.Rate})
	}

	if promo != nil {
		if !promo.Redeemable(at, plan.Currency) {
			return models.PricingSnapshot{}, errs.Validation("promo code %s is not redeemable", promo.Code)
		}
		rule := promo.Discount.Rule()
		if rule == nil || !promo.Discount.Valid() {
			return models.PricingSnapshot{}, errs.Validation("promo code %s has an invalid discount", promo.Code)
		}
		subtotal := round(plan.DailyRate, plan.Currency).Mul(decimal.NewFromInt(int64(days)))
		amount := round(rule.Apply(subtotal), plan.Currency)
		if amount.IsPositive() {
			id := promo.ID
			in.Discounts = append(in.Discounts, models.DiscountLine{PromoCodeID: &id, Amount: amount})
		}
	}

	return Freeze(in, at)
}
