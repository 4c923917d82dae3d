package models

import (
	"time"
)

// VehicleStatus is the lifecycle status of a fleet unit.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRetired     VehicleStatus = "retired"
)

// AvailabilityState is a denormalized UI hint. Overlap decisions never read it.
type AvailabilityState string

const (
	StateAvailable AvailabilityState = "available"
	StateReserved  AvailabilityState = "reserved"
	StateOut       AvailabilityState = "out"
	StateBlocked   AvailabilityState = "blocked"
)

// VehicleModel is a catalog entry shared by many units.
type VehicleModel struct {
	ID        string    `bson:"_id" json:"id"`
	Make      string    `bson:"make" json:"make" validate:"required"`
	Model     string    `bson:"model" json:"model" validate:"required"`
	Class     string    `bson:"class" json:"class" validate:"required"`
	FuelType  string    `bson:"fuel_type" json:"fuel_type"` // "ICE" or "EV"
	Seats     int       `bson:"seats" json:"seats" validate:"gte=0"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Vehicle represents a rentable fleet unit.
type Vehicle struct {
	ID                string            `bson:"_id" json:"id"`
	VehicleModelID    string            `bson:"vehicle_model_id" json:"vehicle_model_id" validate:"required"`
	BranchID          string            `bson:"branch_id" json:"branch_id" validate:"required"`
	Plate             string            `bson:"plate" json:"plate" validate:"required"`
	Year              int               `bson:"year" json:"year"`
	Status            VehicleStatus     `bson:"status" json:"status" validate:"omitempty,oneof=active maintenance retired"`
	AvailabilityState AvailabilityState `bson:"availability_state" json:"availability_state"`
	CurrentLocation   *Location         `bson:"current_location,omitempty" json:"current_location,omitempty"`
	CreatedAt         time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updated_at"`
}

// Branch is a rental location.
type Branch struct {
	ID        string    `bson:"_id" json:"id"`
	Code      string    `bson:"code" json:"code" validate:"required"` // short prefix used in reservation codes, e.g. "HRE"
	Name      string    `bson:"name" json:"name" validate:"required"`
	Active    bool      `bson:"active" json:"active"`
	Location  Location  `bson:"location" json:"location"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// VehicleFilter narrows vehicle listings. Zero fields match everything; a non-nil
// BranchIDs restricts to the listed branches.
type VehicleFilter struct {
	BranchIDs      []string
	VehicleModelID string
	Status         VehicleStatus
}

// Match reports whether v satisfies the filter.
func (f VehicleFilter) Match(v Vehicle) bool {
	if f.BranchIDs != nil && !containsString(f.BranchIDs, v.BranchID) {
		return false
	}
	if f.VehicleModelID != "" && v.VehicleModelID != f.VehicleModelID {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
