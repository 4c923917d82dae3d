package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/models"
)

func reservation(id, code, vehicleID string, day int, status models.ReservationStatus) models.Reservation {
	vid := vehicleID
	return models.Reservation{
		ID:             id,
		Code:           code,
		UserID:         "u1",
		VehicleModelID: "M1",
		VehicleID:      &vid,
		Pickup:         models.Endpoint{BranchID: "B1", At: time.Date(2025, 1, day, 9, 0, 0, 0, time.UTC)},
		Dropoff:        models.Endpoint{BranchID: "B1", At: time.Date(2025, 1, day+2, 9, 0, 0, 0, time.UTC)},
		Status:         status,
		CreatedAt:      time.Date(2025, 1, 1, 0, 0, day, 0, time.UTC),
	}
}

func TestReservations_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.Reservations()

	require.NoError(t, col.InsertReservation(ctx, reservation("r1", "HRE-2025-000001", "V1", 10, models.StatusPending)))
	require.NoError(t, col.InsertReservation(ctx, reservation("r2", "HRE-2025-000002", "V1", 20, models.StatusCancelled)))

	err := col.InsertReservation(ctx, reservation("r3", "HRE-2025-000001", "V2", 10, models.StatusPending))
	assert.ErrorIs(t, err, db.ErrDuplicateKey)

	got, err := col.FindReservationByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "HRE-2025-000001", got.Code)

	_, err = col.FindReservationByID(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)

	all, err := col.FindReservations(ctx, models.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].ID, "newest first")

	paged, err := col.FindReservations(ctx, models.ReservationFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "r1", paged[0].ID)
}

func TestReservations_FindBlocking(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.Reservations()
	require.NoError(t, col.InsertReservation(ctx, reservation("r1", "C1", "V1", 10, models.StatusConfirmed)))
	require.NoError(t, col.InsertReservation(ctx, reservation("r2", "C2", "V1", 11, models.StatusCancelled)))
	require.NoError(t, col.InsertReservation(ctx, reservation("r3", "C3", "V2", 10, models.StatusPending)))

	start := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	found, err := col.FindBlockingReservations(ctx, "V1", start, end)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "r1", found[0].ID)

	// r1 drops off at 2025-01-12T09:00Z; a pickup at that instant does not overlap.
	touching, err := col.FindBlockingReservations(ctx, "V1", time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, touching)
}

func TestReservations_TransitionIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.Reservations()
	require.NoError(t, col.InsertReservation(ctx, reservation("r1", "C1", "V1", 10, models.StatusPending)))

	at := time.Now().UTC()
	require.NoError(t, col.TransitionReservation(ctx, "r1", models.StatusPending, models.StatusConfirmed, at))
	err := col.TransitionReservation(ctx, "r1", models.StatusPending, models.StatusCancelled, at)
	assert.ErrorIs(t, err, db.ErrConflict)

	r, err := col.FindReservationByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, r.Status)
}

func TestReservations_Update(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.Reservations()
	require.NoError(t, col.InsertReservation(ctx, reservation("r1", "C1", "V1", 10, models.StatusPending)))

	notes := "late arrival"
	unbind := ""
	require.NoError(t, col.UpdateReservation(ctx, "r1", models.ReservationUpdate{Notes: &notes, VehicleID: &unbind}))

	r, err := col.FindReservationByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "late arrival", r.Notes)
	assert.Nil(t, r.VehicleID)

	assert.ErrorIs(t, col.UpdateReservation(ctx, "nope", models.ReservationUpdate{}), db.ErrNotFound)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Reservations().InsertReservation(ctx, reservation("r1", "C1", "V1", 10, models.StatusPending)))
		_, err := s.Counters().NextSequence(ctx, "HRE-2025")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Reservations().FindReservationByID(ctx, "r1")
	assert.ErrorIs(t, err, db.ErrNotFound)

	seq, err := s.Counters().NextSequence(ctx, "HRE-2025")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestWithTransaction_Serializes(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.Reservations()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.WithTransaction(ctx, func(ctx context.Context) error {
				start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
				found, err := col.FindBlockingReservations(ctx, "V1", start, start.Add(48*time.Hour))
				if err != nil {
					return err
				}
				if len(found) > 0 {
					return db.ErrConflict
				}
				code := "C" + string(rune('A'+i))
				return col.InsertReservation(ctx, reservation(code, code, "V1", 10, models.StatusPending))
			})
			if err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
}

func TestPromoCodes_Redeem(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.PromoCodes()
	require.NoError(t, col.InsertPromoCode(ctx, models.PromoCode{ID: "p1", Code: "ONCE", Active: true, UsageLimit: 1}))

	require.NoError(t, col.RedeemPromoCode(ctx, "p1"))
	assert.ErrorIs(t, col.RedeemPromoCode(ctx, "p1"), db.ErrConflict)
	assert.ErrorIs(t, col.RedeemPromoCode(ctx, "p2"), db.ErrNotFound)
	assert.ErrorIs(t, col.InsertPromoCode(ctx, models.PromoCode{ID: "p3", Code: "ONCE"}), db.ErrDuplicateKey)
}

func TestPayments_UniquePerReservation(t *testing.T) {
	ctx := context.Background()
	s := New()
	col := s.Payments()
	p := models.Payment{ID: "x1", ReservationID: "r1", PaymentID: "pay-1", Kind: models.KindPayment}

	require.NoError(t, col.InsertPayment(ctx, p))
	p.ID = "x2"
	assert.ErrorIs(t, col.InsertPayment(ctx, p), db.ErrDuplicateKey)

	p.ReservationID = "r2"
	require.NoError(t, col.InsertPayment(ctx, p))

	rows, err := col.FindPayments(ctx, models.PaymentFilter{ReservationIDs: []string{"r1"}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
