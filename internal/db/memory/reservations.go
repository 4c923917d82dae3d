package memory

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/models"
)

type reservations struct{ s *Store }

func (c *reservations) InsertReservation(ctx context.Context, r models.Reservation) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.reservations[r.ID]; ok {
		return db.ErrDuplicateKey
	}
	for _, existing := range c.s.st.reservations {
		if existing.Code == r.Code {
			return db.ErrDuplicateKey
		}
	}
	c.s.st.reservations[r.ID] = r
	return nil
}

func (c *reservations) FindReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	defer c.s.lock(ctx)()
	r, ok := c.s.st.reservations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &r, nil
}

func (c *reservations) FindReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	defer c.s.lock(ctx)()
	out := values(c.s.st.reservations, f.Match, newestFirst)
	return page(out, f.Offset, f.Limit), nil
}

func newestFirst(a, b models.Reservation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func page[V any](rows []V, offset, limit int) []V {
	if offset > 0 {
		if offset >= len(rows) {
			return []V{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func (c *reservations) FindBlockingReservations(ctx context.Context, vehicleID string, start, end time.Time) ([]models.Reservation, error) {
	defer c.s.lock(ctx)()
	keep := func(r models.Reservation) bool {
		return r.AssignedVehicle() == vehicleID && r.Status.IsBlocking() && r.Overlaps(start, end)
	}
	return values(c.s.st.reservations, keep, func(a, b models.Reservation) bool {
		return a.Pickup.At.Before(b.Pickup.At)
	}), nil
}

func (c *reservations) UpdateReservation(ctx context.Context, id string, u models.ReservationUpdate) error {
	defer c.s.lock(ctx)()
	r, ok := c.s.st.reservations[id]
	if !ok {
		return db.ErrNotFound
	}
	if u.Pickup != nil {
		r.Pickup = *u.Pickup
	}
	if u.Dropoff != nil {
		r.Dropoff = *u.Dropoff
	}
	if u.VehicleID != nil {
		if *u.VehicleID == "" {
			r.VehicleID = nil
		} else {
			v := *u.VehicleID
			r.VehicleID = &v
		}
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	if u.ClearDriver {
		r.Driver = nil
	} else if u.Driver != nil {
		d := *u.Driver
		r.Driver = &d
	}
	r.UpdatedAt = u.UpdatedAt
	c.s.st.reservations[id] = r
	return nil
}

func (c *reservations) TransitionReservation(ctx context.Context, id string, from, to models.ReservationStatus, at time.Time) error {
	defer c.s.lock(ctx)()
	r, ok := c.s.st.reservations[id]
	if !ok {
		return db.ErrNotFound
	}
	if r.Status != from {
		return db.ErrConflict
	}
	r.Status = to
	r.UpdatedAt = at
	c.s.st.reservations[id] = r
	return nil
}

func (c *reservations) SetPaymentSummary(ctx context.Context, id string, s models.PaymentSummary, at time.Time) error {
	defer c.s.lock(ctx)()
	r, ok := c.s.st.reservations[id]
	if !ok {
		return db.ErrNotFound
	}
	r.PaymentSummary = s
	r.UpdatedAt = at
	c.s.st.reservations[id] = r
	return nil
}

func (c *reservations) DeleteReservation(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.reservations[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.reservations, id)
	return nil
}

func (c *reservations) GuardVehicle(ctx context.Context, vehicleID string) error {
	defer c.s.lock(ctx)()
	c.s.st.guards[vehicleID]++
	return nil
}

type payments struct{ s *Store }

func paymentKey(reservationID, paymentID string) string {
	return reservationID + "/" + paymentID
}

func (c *payments) InsertPayment(ctx context.Context, p models.Payment) error {
	defer c.s.lock(ctx)()
	key := paymentKey(p.ReservationID, p.PaymentID)
	if _, ok := c.s.st.payments[key]; ok {
		return db.ErrDuplicateKey
	}
	c.s.st.payments[key] = p
	return nil
}

func (c *payments) FindPayments(ctx context.Context, f models.PaymentFilter) ([]models.Payment, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.payments, f.Match, func(a, b models.Payment) bool {
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		return a.PaymentID < b.PaymentID
	}), nil
}
