package models

import (
	"time"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending    ReservationStatus = "pending"
	StatusConfirmed  ReservationStatus = "confirmed"
	StatusCheckedOut ReservationStatus = "checked_out"
	StatusReturned   ReservationStatus = "returned"
	StatusCancelled  ReservationStatus = "cancelled"
	StatusNoShow     ReservationStatus = "no_show"
)

// BlockingStatuses hold a vehicle for their whole [pickup, dropoff) range.
var BlockingStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusCheckedOut}

// transitions is the admitted status table. Anything absent is rejected.
var transitions = map[ReservationStatus]map[ReservationStatus]bool{
	StatusPending: {
		StatusConfirmed:  true,
		StatusCheckedOut: true,
		StatusCancelled:  true,
		StatusNoShow:     true,
	},
	StatusConfirmed: {
		StatusCheckedOut: true,
		StatusCancelled:  true,
		StatusNoShow:     true,
	},
	StatusCheckedOut: {
		StatusReturned: true,
	},
}

// IsValidStatus checks if a status is one of the known lifecycle states
func IsValidStatus(s ReservationStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedOut, StatusReturned, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// IsBlocking reports whether the status counts against vehicle availability.
func (s ReservationStatus) IsBlocking() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedOut:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is admitted from s.
func (s ReservationStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is in the admitted table.
func CanTransition(from, to ReservationStatus) bool {
	return transitions[from][to]
}

// Channel is where a reservation was created.
type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
	ChannelKiosk  Channel = "kiosk"
	ChannelAgent  Channel = "agent"
)

// Endpoint is a pickup or dropoff point in time at a branch.
type Endpoint struct {
	BranchID string    `bson:"branch_id" json:"branch_id" validate:"required"`
	At       time.Time `bson:"at" json:"at" validate:"required"`
}

// DriverSnapshot is the licence information copied at booking time.
type DriverSnapshot struct {
	FullName       string     `bson:"full_name" json:"full_name" validate:"required"`
	LicenceNumber  string     `bson:"licence_number" json:"licence_number" validate:"required"`
	LicenceCountry string     `bson:"licence_country,omitempty" json:"licence_country,omitempty"`
	LicenceExpiry  *time.Time `bson:"licence_expiry,omitempty" json:"licence_expiry,omitempty"`
}

// Reservation is a booking of a vehicle model (and optionally a concrete unit) between two endpoints.
type Reservation struct {
	ID             string            `bson:"_id" json:"id"`
	Code           string            `bson:"code" json:"code"`
	UserID         string            `bson:"user_id" json:"user_id"`
	CreatedBy      string            `bson:"created_by" json:"created_by"`
	CreatedChannel Channel           `bson:"created_channel" json:"created_channel"`
	VehicleModelID string            `bson:"vehicle_model_id" json:"vehicle_model_id"`
	VehicleID      *string           `bson:"vehicle_id" json:"vehicle_id"`
	Pickup         Endpoint          `bson:"pickup" json:"pickup"`
	Dropoff        Endpoint          `bson:"dropoff" json:"dropoff"`
	Status         ReservationStatus `bson:"status" json:"status"`
	Pricing        PricingSnapshot   `bson:"pricing" json:"pricing"`
	PaymentSummary PaymentSummary    `bson:"payment_summary" json:"payment_summary"`
	Driver         *DriverSnapshot   `bson:"driver,omitempty" json:"driver,omitempty"`
	Notes          string            `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updated_at"`
}

// AssignedVehicle returns the bound vehicle id or "".
func (r *Reservation) AssignedVehicle() string {
	if r.VehicleID == nil {
		return ""
	}
	return *r.VehicleID
}

// Overlaps reports whether r occupies any instant of [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.Pickup.At, r.Dropoff.At, start, end)
}

// Overlaps reports whether half-open ranges [a, b) and [c, d) intersect.
func Overlaps(a, b, c, d time.Time) bool {
	return a.Before(d) && c.Before(b)
}

// ReservationUpdate carries the mutable fields of a reservation. Nil means unchanged.
type ReservationUpdate struct {
	Pickup      *Endpoint
	Dropoff     *Endpoint
	VehicleID   *string // "" unbinds the vehicle
	Notes       *string
	Driver      *DriverSnapshot
	ClearDriver bool
	UpdatedAt   time.Time
}
