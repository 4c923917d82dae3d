// Package availability answers whether a vehicle is free across a time range.
package availability

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

// ReservationReader is the slice of the reservation store the oracle reads.
type ReservationReader interface {
	FindBlockingReservations(ctx context.Context, vehicleID string, start, end time.Time) ([]models.Reservation, error)
}

// ServiceOrderReader is the slice of the service order store the oracle reads.
type ServiceOrderReader interface {
	FindServiceOrders(ctx context.Context, f models.ServiceOrderFilter) ([]models.ServiceOrder, error)
}

// Oracle decides vehicle availability from blocking reservations and, optionally, open service orders.
type Oracle struct {
	reservations ReservationReader
	services     ServiceOrderReader
}

// New creates an Oracle. services may be nil, in which case service orders never block.
func New(reservations ReservationReader, services ServiceOrderReader) *Oracle {
	return &Oracle{reservations: reservations, services: services}
}

type options struct {
	withServices bool
	exclude      string
}

// Option tunes a single availability query.
type Option func(*options)

// WithServiceOrders makes open and in-progress service orders block the vehicle.
func WithServiceOrders() Option {
	return func(o *options) { o.withServices = true }
}

// Excluding ignores the reservation with the given id, used when re-checking a reservation against itself.
func Excluding(reservationID string) Option {
	return func(o *options) { o.exclude = reservationID }
}

// OverlappingReservations returns the blocking reservations on vehicleID that overlap [start, end).
func (o *Oracle) OverlappingReservations(ctx context.Context, vehicleID string, start, end time.Time, opts ...Option) ([]models.Reservation, error) {
	if !start.Before(end) {
		return nil, errs.InvalidRange("start must be before end")
	}
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	found, err := o.reservations.FindBlockingReservations(ctx, vehicleID, start, end)
	if err != nil {
		return nil, errs.Internal(err, "find overlapping reservations")
	}
	out := make([]models.Reservation, 0, len(found))
	for _, r := range found {
		if r.ID == cfg.exclude || !r.Status.IsBlocking() || !r.Overlaps(start, end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// IsVehicleFree reports whether no blocking reservation (and, with WithServiceOrders, no open
// service order) holds vehicleID during [start, end). An unknown vehicle is free.
func (o *Oracle) IsVehicleFree(ctx context.Context, vehicleID string, start, end time.Time, opts ...Option) (bool, error) {
	overlapping, err := o.OverlappingReservations(ctx, vehicleID, start, end, opts...)
	if err != nil {
		return false, err
	}
	if len(overlapping) > 0 {
		return false, nil
	}

	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.withServices {
		return true, nil
	}
	serviced, err := o.inService(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	return !serviced, nil
}

// inService reports whether an open or in-progress service order holds vehicleID.
func (o *Oracle) inService(ctx context.Context, vehicleID string) (bool, error) {
	if o.services == nil {
		return false, nil
	}
	orders, err := o.services.FindServiceOrders(ctx, models.ServiceOrderFilter{
		VehicleIDs: []string{vehicleID},
		Statuses:   []models.ServiceStatus{models.ServiceOpen, models.ServiceInProgress},
	})
	if err != nil {
		return false, errs.Internal(err, "find service orders")
	}
	return len(orders) > 0, nil
}

var (
	allTimeStart = time.Unix(0, 0).UTC()
	allTimeEnd   = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Hint derives the availability hint of vehicleID from the holds it still has. A checked out
// reservation wins over an open service order, which wins over pending or confirmed bookings.
func (o *Oracle) Hint(ctx context.Context, vehicleID string) (models.AvailabilityState, error) {
	held, err := o.reservations.FindBlockingReservations(ctx, vehicleID, allTimeStart, allTimeEnd)
	if err != nil {
		return "", errs.Internal(err, "find reservations holding vehicle %s", vehicleID)
	}
	reserved := false
	for _, r := range held {
		switch r.Status {
		case models.StatusCheckedOut:
			return models.StateOut, nil
		case models.StatusPending, models.StatusConfirmed:
			reserved = true
		}
	}
	serviced, err := o.inService(ctx, vehicleID)
	if err != nil {
		return "", err
	}
	switch {
	case serviced:
		return models.StateBlocked, nil
	case reserved:
		return models.StateReserved, nil
	}
	return models.StateAvailable, nil
}
