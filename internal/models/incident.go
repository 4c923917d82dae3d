package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity of a vehicle incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValidSeverity checks if a severity is known
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// IncidentStatus is open until resolved.
type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

// Incident is damage, a breakdown or an accident involving a vehicle.
type Incident struct {
	ID            string          `bson:"_id" json:"id"`
	VehicleID     string          `bson:"vehicle_id" json:"vehicle_id" validate:"required"`
	ReservationID *string         `bson:"reservation_id,omitempty" json:"reservation_id,omitempty"`
	Severity      Severity        `bson:"severity" json:"severity" validate:"required,oneof=low medium high critical"`
	Status        IncidentStatus  `bson:"status" json:"status" validate:"omitempty,oneof=open resolved"`
	Description   string          `bson:"description" json:"description" validate:"required"`
	OccurredAt    time.Time       `bson:"occurred_at" json:"occurred_at" validate:"required"`
	Cost          decimal.Decimal `bson:"cost" json:"cost" validate:"gte=0"`
	Currency      Currency        `bson:"currency" json:"currency" validate:"omitempty,oneof=USD ZWL"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updated_at"`
}

// IncidentFilter narrows incident listings. The window applies to OccurredAt.
type IncidentFilter struct {
	VehicleIDs []string
	Severity   Severity
	Status     IncidentStatus
	From       *time.Time
	To         *time.Time
}

// Match reports whether i satisfies the filter.
func (f IncidentFilter) Match(i Incident) bool {
	if f.VehicleIDs != nil && !containsString(f.VehicleIDs, i.VehicleID) {
		return false
	}
	if f.Severity != "" && i.Severity != f.Severity {
		return false
	}
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	return inWindow(i.OccurredAt, f.From, f.To)
}
