package reservation

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/availability"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/scope"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// List returns the reservations matching f within the actor's scope, newest first.
func (e *Engine) List(ctx context.Context, actor *models.Actor, f models.ReservationFilter) ([]models.Reservation, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	for _, s := range f.Statuses {
		if !models.IsValidStatus(s) {
			return nil, errs.Validation("unknown status %q", s)
		}
	}
	if f.Offset < 0 || f.Limit < 0 {
		return nil, errs.Validation("limit and offset must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	f, err = sc.Reservations(f)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Reservations().FindReservations(ctx, f)
	if err != nil {
		return nil, errs.Internal(err, "list reservations")
	}
	return rows, nil
}

// Get returns one reservation to its owner or to staff whose scope covers it.
func (e *Engine) Get(ctx context.Context, actor *models.Actor, id string) (*models.Reservation, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	r, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sc.AllowsReservation(r) {
		return nil, errs.Forbidden("reservation %s is outside your scope", id)
	}
	return r, nil
}

// CheckVehicleAvailability reports whether vehicleID is free across [start, end).
// includeService also counts open service orders.
func (e *Engine) CheckVehicleAvailability(ctx context.Context, vehicleID string, start, end time.Time, includeService bool) (bool, error) {
	if vehicleID == "" {
		return false, errs.Validation("vehicle_id is required")
	}
	var opts []availability.Option
	if includeService {
		opts = append(opts, availability.WithServiceOrders())
	}
	return e.oracle.IsVehicleFree(ctx, vehicleID, start, end, opts...)
}
