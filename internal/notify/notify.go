// Package notify hands reservation events to an external channel after commit.
// Delivery is best-effort: failures are logged and the event is dropped.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/models"
)

// Event types.
const (
	ReservationCreated       = "reservation.created"
	ReservationStatusChanged = "reservation.status_changed"
	ReservationUpdated       = "reservation.updated"
	PaymentApplied           = "reservation.payment_applied"
)

// Event is the payload published for a reservation change.
type Event struct {
	Type          string                   `json:"type"`
	ReservationID string                   `json:"reservation_id"`
	Code          string                   `json:"code"`
	UserID        string                   `json:"user_id"`
	VehicleID     string                   `json:"vehicle_id,omitempty"`
	Status        models.ReservationStatus `json:"status"`
	From          models.ReservationStatus `json:"from,omitempty"`
	At            time.Time                `json:"at"`
}

// EventFor builds an event of type typ describing r.
func EventFor(typ string, r *models.Reservation, at time.Time) Event {
	return Event{
		Type:          typ,
		ReservationID: r.ID,
		Code:          r.Code,
		UserID:        r.UserID,
		VehicleID:     r.AssignedVehicle(),
		Status:        r.Status,
		At:            at,
	}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier delivers one event.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
	Close() error
}

// Dispatcher queues events and delivers them from a single worker.
type Dispatcher struct {
	notifier Notifier
	logger   *logrus.Logger
	queue    chan Event
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewDispatcher creates a Dispatcher with a queue of size events.
func NewDispatcher(n Notifier, size int, logger *logrus.Logger) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		notifier: n,
		logger:   logger,
		queue:    make(chan Event, size),
		timeout:  5 * time.Second,
		done:     make(chan struct{}),
	}
}

// Start runs the worker until Close is called. Events still queued are delivered first.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		for e := range d.queue {
			d.deliver(ctx, e)
		}
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	// Delivery must not stop when the serving context is cancelled during drain.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, e); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"event":          e.Type,
			"reservation_id": e.ReservationID,
		}).Warn("notification dropped")
	}
}

// Publish enqueues e without blocking. It reports false when the event was dropped.
func (d *Dispatcher) Publish(e Event) bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- e:
		return true
	default:
		d.logger.WithFields(logrus.Fields{
			"event":          e.Type,
			"reservation_id": e.ReservationID,
		}).Warn("notification queue full, event dropped")
		return false
	}
}

// Close stops accepting events, waits for the worker to drain and closes the notifier.
// The worker must have been started.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return d.notifier.Close()
}
