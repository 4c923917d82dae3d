package models

import (
	"time"
)

// ReservationFilter narrows reservation queries. Zero fields match everything.
// A non-nil BranchIDs restricts rows to those picked up at one of the listed branches.
type ReservationFilter struct {
	IDs            []string
	Code           string
	UserID         string
	Statuses       []ReservationStatus
	VehicleID      string
	VehicleModelID string
	CreatedBy      string
	BranchIDs      []string
	PickupFrom     *time.Time
	PickupTo       *time.Time
	DropoffFrom    *time.Time
	DropoffTo      *time.Time
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// Match reports whether r satisfies the filter. Limit and Offset are ignored.
func (f ReservationFilter) Match(r Reservation) bool {
	if f.IDs != nil && !containsString(f.IDs, r.ID) {
		return false
	}
	if f.Code != "" && r.Code != f.Code {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
		return false
	}
	if f.VehicleID != "" && r.AssignedVehicle() != f.VehicleID {
		return false
	}
	if f.VehicleModelID != "" && r.VehicleModelID != f.VehicleModelID {
		return false
	}
	if f.CreatedBy != "" && r.CreatedBy != f.CreatedBy {
		return false
	}
	if f.BranchIDs != nil && !containsString(f.BranchIDs, r.Pickup.BranchID) {
		return false
	}
	return inWindow(r.Pickup.At, f.PickupFrom, f.PickupTo) &&
		inWindow(r.Dropoff.At, f.DropoffFrom, f.DropoffTo) &&
		inWindow(r.CreatedAt, f.CreatedFrom, f.CreatedTo)
}

// PaymentFilter narrows payment ledger queries. The window applies to At.
type PaymentFilter struct {
	ReservationIDs []string
	From           *time.Time
	To             *time.Time
}

// Match reports whether p satisfies the filter.
func (f PaymentFilter) Match(p Payment) bool {
	if f.ReservationIDs != nil && !containsString(f.ReservationIDs, p.ReservationID) {
		return false
	}
	return inWindow(p.At, f.From, f.To)
}

func containsStatus(list []ReservationStatus, s ReservationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
