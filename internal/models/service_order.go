package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceStatus is the state of a service order.
type ServiceStatus string

const (
	ServiceOpen       ServiceStatus = "open"
	ServiceInProgress ServiceStatus = "in_progress"
	ServiceCompleted  ServiceStatus = "completed"
	ServiceCancelled  ServiceStatus = "cancelled"
)

// IsValidServiceStatus checks if a service status is known
func IsValidServiceStatus(s ServiceStatus) bool {
	switch s {
	case ServiceOpen, ServiceInProgress, ServiceCompleted, ServiceCancelled:
		return true
	default:
		return false
	}
}

// Blocks reports whether a service order in status s takes its vehicle off the road.
func (s ServiceStatus) Blocks() bool {
	return s == ServiceOpen || s == ServiceInProgress
}

// ServiceOrder represents maintenance work on a vehicle.
type ServiceOrder struct {
	ID          string          `bson:"_id" json:"id"`
	VehicleID   string          `bson:"vehicle_id" json:"vehicle_id" validate:"required"`
	Type        string          `bson:"type" json:"type" validate:"required"` // "routine", "repair", "inspection", "tyres"
	Status      ServiceStatus   `bson:"status" json:"status" validate:"omitempty,oneof=open in_progress completed cancelled"`
	Description string          `bson:"description,omitempty" json:"description,omitempty"`
	ScheduledAt time.Time       `bson:"scheduled_at" json:"scheduled_at" validate:"required"`
	CompletedAt *time.Time      `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Cost        decimal.Decimal `bson:"cost" json:"cost" validate:"gte=0"`
	Currency    Currency        `bson:"currency" json:"currency" validate:"omitempty,oneof=USD ZWL"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"updated_at"`
}

// ServiceOrderFilter narrows service order listings.
type ServiceOrderFilter struct {
	VehicleIDs []string
	Statuses   []ServiceStatus
	From       *time.Time
	To         *time.Time
}

// Match reports whether o satisfies the filter. The window applies to ScheduledAt.
func (f ServiceOrderFilter) Match(o ServiceOrder) bool {
	if f.VehicleIDs != nil && !containsString(f.VehicleIDs, o.VehicleID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == o.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return inWindow(o.ScheduledAt, f.From, f.To)
}

// inWindow reports whether t is within the closed window [from, to]. Nil bounds are open.
func inWindow(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
