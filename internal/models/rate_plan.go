package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is a tax a rate plan charges on the taxable base.
type TaxRate struct {
	Code string          `bson:"code" json:"code" validate:"required"`
	Rate decimal.Decimal `bson:"rate" json:"rate" validate:"gte=0"`
}

// RatePlan prices a day of rental. A plan applies to every booking its selectors match;
// nil selectors match anything.
type RatePlan struct {
	ID             string          `bson:"_id" json:"id"`
	Name           string          `bson:"name" json:"name" validate:"required"`
	VehicleID      *string         `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`
	VehicleModelID *string         `bson:"vehicle_model_id,omitempty" json:"vehicle_model_id,omitempty"`
	VehicleClass   *string         `bson:"vehicle_class,omitempty" json:"vehicle_class,omitempty"`
	BranchID       *string         `bson:"branch_id,omitempty" json:"branch_id,omitempty"`
	Priority       int             `bson:"priority" json:"priority"`
	Currency       Currency        `bson:"currency" json:"currency" validate:"required,oneof=USD ZWL"`
	DailyRate      decimal.Decimal `bson:"daily_rate" json:"daily_rate" validate:"gte=0"`
	Fees           []FeeLine       `bson:"fees" json:"fees" validate:"dive"`
	Taxes          []TaxRate       `bson:"taxes" json:"taxes" validate:"dive"`
	ValidFrom      time.Time       `bson:"valid_from" json:"valid_from"`
	ValidTo        *time.Time      `bson:"valid_to,omitempty" json:"valid_to,omitempty"`
	Active         bool            `bson:"active" json:"active"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}

// RateTarget is what a booking offers to rate plan selectors.
type RateTarget struct {
	VehicleID      string
	VehicleModelID string
	VehicleClass   string
	BranchID       string
	At             time.Time
}

// Matches reports whether the plan can price target.
func (p *RatePlan) Matches(t RateTarget) bool {
	if !p.Active {
		return false
	}
	if t.At.Before(p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && !t.At.Before(*p.ValidTo) {
		return false
	}
	return selects(p.VehicleID, t.VehicleID) &&
		selects(p.VehicleModelID, t.VehicleModelID) &&
		selects(p.VehicleClass, t.VehicleClass) &&
		selects(p.BranchID, t.BranchID)
}

// Specificity counts the selectors the plan sets. Higher is narrower.
func (p *RatePlan) Specificity() int {
	n := 0
	for _, s := range []*string{p.VehicleID, p.VehicleModelID, p.VehicleClass, p.BranchID} {
		if s != nil {
			n++
		}
	}
	return n
}

func selects(sel *string, value string) bool {
	return sel == nil || *sel == value
}
