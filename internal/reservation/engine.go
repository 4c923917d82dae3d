// Package reservation implements the reservation engine: booking, rescheduling, lifecycle
// transitions and the payment rollup hook.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/availability"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/lock"
	"github.com/ukydev/fleet-rental/internal/metrics"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/notify"
	"github.com/ukydev/fleet-rental/internal/scope"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// Engine owns every write to reservations.
type Engine struct {
	store       db.Store
	oracle      *availability.Oracle
	locker      lock.Locker
	events      *notify.Dispatcher
	metrics     *metrics.Metrics
	logger      *logrus.Logger
	now         func() time.Time
	codeRetries int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker sets the per-vehicle lock. The default is an in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithDispatcher sets where post-commit events go. Without one, events are not published.
func WithDispatcher(d *notify.Dispatcher) Option {
	return func(e *Engine) { e.events = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCodeRetries sets how many times a duplicate reservation code is retried.
func WithCodeRetries(n int) Option {
	return func(e *Engine) { e.codeRetries = n }
}

// New creates an Engine over store.
func New(store db.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		oracle:      availability.New(store.Reservations(), store.ServiceOrders()),
		locker:      lock.NewLocalLocker(5 * time.Second),
		logger:      logrus.StandardLogger(),
		now:         time.Now,
		codeRetries: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Oracle returns the availability oracle the engine checks against.
func (e *Engine) Oracle() *availability.Oracle {
	return e.oracle
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// staffScope resolves the actor and rejects non-staff.
func staffScope(actor *models.Actor) (scope.Scope, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return sc, err
	}
	if !sc.Staff {
		return sc, errs.Forbidden("staff role required")
	}
	return sc, nil
}

// lockVehicle takes the per-vehicle lock. A lock that cannot be taken in time means another
// booking on the vehicle is in flight.
func (e *Engine) lockVehicle(ctx context.Context, vehicleID string) (func(), error) {
	start := time.Now()
	unlock, err := e.locker.Lock(ctx, lock.VehicleKey(vehicleID))
	e.metrics.ObserveLockWait(time.Since(start))
	if errors.Is(err, lock.ErrLockTimeout) {
		return nil, errs.VehicleUnavailable("vehicle %s is being booked, retry", vehicleID)
	}
	if err != nil {
		return nil, errs.Internal(err, "lock vehicle %s", vehicleID)
	}
	return unlock, nil
}

// claimVehicle runs inside a transaction. It bumps the vehicle's guard document, so a concurrent
// transaction on the same vehicle conflicts, then checks the range is free.
func (e *Engine) claimVehicle(ctx context.Context, vehicleID string, start, end time.Time, opts ...availability.Option) error {
	if err := e.store.Reservations().GuardVehicle(ctx, vehicleID); err != nil {
		return err
	}
	return e.checkFree(ctx, vehicleID, start, end, opts...)
}

// checkFree fails with VEHICLE_UNAVAILABLE when a blocking reservation or an open service
// order overlaps [start, end).
func (e *Engine) checkFree(ctx context.Context, vehicleID string, start, end time.Time, opts ...availability.Option) error {
	opts = append(opts, availability.WithServiceOrders())
	free, err := e.oracle.IsVehicleFree(ctx, vehicleID, start, end, opts...)
	if err != nil {
		return err
	}
	if !free {
		return errs.VehicleUnavailable("vehicle %s is not available from %s to %s",
			vehicleID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// setHint writes the availability hint of a vehicle. A vehicle that no longer exists is skipped.
func (e *Engine) setHint(ctx context.Context, vehicleID string, state models.AvailabilityState, at time.Time) error {
	if vehicleID == "" {
		return nil
	}
	err := e.store.Vehicles().SetAvailabilityState(ctx, vehicleID, state, at)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	return err
}

// RefreshHint recomputes the availability hint of vehicleID from the reservations and
// service orders that still hold it.
func (e *Engine) RefreshHint(ctx context.Context, vehicleID string) error {
	if vehicleID == "" {
		return nil
	}
	state, err := e.oracle.Hint(ctx, vehicleID)
	if err != nil {
		return err
	}
	return e.setHint(ctx, vehicleID, state, e.clock())
}

func (e *Engine) load(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := e.store.Reservations().FindReservationByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return nil, errs.Internal(err, "load reservation %s", id)
	}
	return r, nil
}

func (e *Engine) publish(typ string, r *models.Reservation, from models.ReservationStatus, at time.Time) {
	ev := notify.EventFor(typ, r, at)
	ev.From = from
	e.events.Publish(ev)
}

// storeErr keeps taxonomy errors and wraps anything else as INTERNAL.
func storeErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	return errs.Internal(err, format, args...)
}

func validateDriver(d *models.DriverSnapshot, dropoff time.Time) error {
	if d == nil {
		return nil
	}
	if err := validation.Struct(d); err != nil {
		return err
	}
	if d.LicenceExpiry != nil && d.LicenceExpiry.Before(dropoff) {
		return errs.Validation("driver licence expires before dropoff")
	}
	return nil
}

// activeBranch loads a branch that reservations may use.
func (e *Engine) activeBranch(ctx context.Context, id string) (*models.Branch, error) {
	if id == "" {
		return nil, errs.Validation("branch_id is required")
	}
	b, err := e.store.Branches().FindBranchByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NotFound("branch %s not found", id)
	}
	if err != nil {
		return nil, errs.Internal(err, "load branch %s", id)
	}
	if !b.Active {
		return nil, errs.Validation("branch %s is not active", id)
	}
	return b, nil
}

// bookableVehicle loads a vehicle that can be bound to a reservation of modelID.
func (e *Engine) bookableVehicle(ctx context.Context, id, modelID string) (*models.Vehicle, error) {
	v, err := e.store.Vehicles().FindVehicleByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NotFound("vehicle %s not found", id)
	}
	if err != nil {
		return nil, errs.Internal(err, "load vehicle %s", id)
	}
	if v.Status != models.VehicleActive {
		return nil, errs.VehicleUnavailable("vehicle %s is %s", id, v.Status)
	}
	if v.VehicleModelID != modelID {
		return nil, errs.Validation("vehicle %s is not a %s", id, modelID)
	}
	return v, nil
}

// reservationCode formats <BRANCH>-<YEAR>-<SEQ>.
func reservationCode(branchCode string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", branchCode, year, seq)
}

func counterKey(branchCode string, year int) string {
	return fmt.Sprintf("reservation:%s:%d", branchCode, year)
}
