package reservation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/availability"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/notify"
	"github.com/ukydev/fleet-rental/internal/scope"
)

// Patch is a partial update. Nil fields are left unchanged; an empty VehicleID unbinds the vehicle.
type Patch struct {
	Pickup      *models.Endpoint       `json:"pickup,omitempty"`
	Dropoff     *models.Endpoint       `json:"dropoff,omitempty"`
	VehicleID   *string                `json:"vehicle_id,omitempty"`
	Notes       *string                `json:"notes,omitempty"`
	Driver      *models.DriverSnapshot `json:"driver,omitempty"`
	ClearDriver bool                   `json:"clear_driver,omitempty"`
}

// Update changes the mutable fields of a reservation. Pricing and code never change.
// Moving the range or the vehicle re-runs the conflict check.
func (e *Engine) Update(ctx context.Context, actor *models.Actor, id string, p Patch) (res *models.Reservation, err error) {
	defer func() { e.metrics.ObserveOp("update", err) }()

	sc, err := staffScope(actor)
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

	pickup, dropoff := r.Pickup, r.Dropoff
	if p.Pickup != nil {
		pickup = models.Endpoint{BranchID: p.Pickup.BranchID, At: p.Pickup.At.UTC()}
	}
	if p.Dropoff != nil {
		dropoff = models.Endpoint{BranchID: p.Dropoff.BranchID, At: p.Dropoff.At.UTC()}
	}
	oldVehicle, newVehicle := r.AssignedVehicle(), r.AssignedVehicle()
	if p.VehicleID != nil {
		newVehicle = *p.VehicleID
	}
	rangeChanged := !pickup.At.Equal(r.Pickup.At) || !dropoff.At.Equal(r.Dropoff.At)
	vehicleChanged := newVehicle != oldVehicle

	if (rangeChanged || vehicleChanged) && r.Status.IsTerminal() {
		return nil, errs.StatusInvalid("cannot reschedule or reassign a %s reservation", r.Status)
	}
	if err := e.validatePatch(ctx, sc, r, pickup, dropoff, p); err != nil {
		return nil, err
	}
	if vehicleChanged {
		if newVehicle == "" && r.Status == models.StatusCheckedOut {
			return nil, errs.Validation("a checked out reservation must keep its vehicle")
		}
		if newVehicle != "" {
			if _, err := e.bookableVehicle(ctx, newVehicle, r.VehicleModelID); err != nil {
				return nil, err
			}
		}
	}

	now := e.clock()
	u := models.ReservationUpdate{
		Notes:       p.Notes,
		Driver:      p.Driver,
		ClearDriver: p.ClearDriver,
		UpdatedAt:   now,
	}
	if p.Pickup != nil {
		u.Pickup = &pickup
	}
	if p.Dropoff != nil {
		u.Dropoff = &dropoff
	}
	if vehicleChanged {
		u.VehicleID = &newVehicle
	}

	recheck := newVehicle != "" && (rangeChanged || vehicleChanged) && r.Status.IsBlocking()
	if recheck {
		unlock, err := e.lockVehicle(ctx, newVehicle)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
		if recheck {
			if err := e.claimVehicle(ctx, newVehicle, pickup.At, dropoff.At, availability.Excluding(r.ID)); err != nil {
				return err
			}
		}
		if err := e.store.Reservations().UpdateReservation(ctx, id, u); err != nil {
			return err
		}
		if vehicleChanged && r.Status.IsBlocking() {
			if err := e.RefreshHint(ctx, oldVehicle); err != nil {
				return err
			}
			return e.RefreshHint(ctx, newVehicle)
		}
		return nil
	})
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return nil, storeErr(err, "update reservation %s", id)
	}

	updated, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(logrus.Fields{
		"reservation_id": id,
		"vehicle_id":     newVehicle,
		"rescheduled":    rangeChanged,
	}).Info("reservation updated")
	e.publish(notify.ReservationUpdated, updated, "", now)
	return updated, nil
}

func (e *Engine) validatePatch(ctx context.Context, sc scope.Scope, r *models.Reservation, pickup, dropoff models.Endpoint, p Patch) error {
	if pickup.At.IsZero() || dropoff.At.IsZero() {
		return errs.Validation("pickup and dropoff at are required")
	}
	if !pickup.At.Before(dropoff.At) {
		return errs.InvalidRange("pickup must be before dropoff")
	}
	if pickup.BranchID != r.Pickup.BranchID {
		if _, err := e.activeBranch(ctx, pickup.BranchID); err != nil {
			return err
		}
		if !sc.AllowsBranch(pickup.BranchID) {
			return errs.Forbidden("branch %s is outside your scope", pickup.BranchID)
		}
	}
	if dropoff.BranchID != r.Dropoff.BranchID {
		if _, err := e.activeBranch(ctx, dropoff.BranchID); err != nil {
			return err
		}
	}
	if p.Driver != nil && p.ClearDriver {
		return errs.Validation("driver and clear_driver are mutually exclusive")
	}
	return validateDriver(p.Driver, dropoff.At)
}

// AssignVehicle binds vehicleID to the reservation, or unbinds it when vehicleID is empty.
func (e *Engine) AssignVehicle(ctx context.Context, actor *models.Actor, id, vehicleID string) (*models.Reservation, error) {
	return e.Update(ctx, actor, id, Patch{VehicleID: &vehicleID})
}

// Transition moves a reservation to status to. The write is a compare-and-set on the status
// read, so of two concurrent transitions at most one succeeds.
func (e *Engine) Transition(ctx context.Context, actor *models.Actor, id string, to models.ReservationStatus) (res *models.Reservation, err error) {
	defer func() { e.metrics.ObserveOp("transition", err) }()

	sc, err := staffScope(actor)
	if err != nil {
		return nil, err
	}
	if !models.IsValidStatus(to) {
		return nil, errs.Validation("unknown status %q", to)
	}
	r, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sc.AllowsReservation(r) {
		return nil, errs.Forbidden("reservation %s is outside your scope", id)
	}
	from := r.Status
	if !models.CanTransition(from, to) {
		return nil, errs.StatusInvalid("cannot transition from %s to %s", from, to).
			WithDetails(map[string]models.ReservationStatus{"from": from, "to": to})
	}
	if to == models.StatusCheckedOut && r.AssignedVehicle() == "" {
		return nil, errs.Validation("assign a vehicle before check out")
	}

	now := e.clock()
	err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := e.store.Reservations().TransitionReservation(ctx, id, from, to, now); err != nil {
			return err
		}
		return e.RefreshHint(ctx, r.AssignedVehicle())
	})
	switch {
	case errors.Is(err, db.ErrConflict):
		return nil, errs.StatusConflict("reservation %s changed status concurrently", id)
	case errors.Is(err, db.ErrNotFound):
		return nil, errs.NotFound("reservation %s not found", id)
	case err != nil:
		return nil, storeErr(err, "transition reservation %s", id)
	}

	r.Status = to
	r.UpdatedAt = now
	e.logger.WithFields(logrus.Fields{
		"reservation_id": id,
		"from":           from,
		"to":             to,
	}).Info("reservation status changed")
	e.publish(notify.ReservationStatusChanged, r, from, now)
	return r, nil
}

// Delete removes a reservation for data cleanup. Admin only.
func (e *Engine) Delete(ctx context.Context, actor *models.Actor, id string) (err error) {
	defer func() { e.metrics.ObserveOp("delete", err) }()

	sc, err := scope.Resolve(actor)
	if err != nil {
		return err
	}
	if !sc.All {
		return errs.Forbidden("admin role required")
	}
	r, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := e.store.Reservations().DeleteReservation(ctx, id); err != nil {
			return err
		}
		if r.Status.IsBlocking() {
			return e.RefreshHint(ctx, r.AssignedVehicle())
		}
		return nil
	})
	if errors.Is(err, db.ErrNotFound) {
		return errs.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return storeErr(err, "delete reservation %s", id)
	}
	e.logger.WithField("reservation_id", id).Warn("reservation deleted")
	return nil
}
