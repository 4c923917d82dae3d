package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestCollections_NilCollection(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, (&MongoReservationCollection{}).InsertReservation(ctx, models.Reservation{}))
	assert.Error(t, (&MongoReservationCollection{}).GuardVehicle(ctx, "V1"))
	assert.Error(t, (&MongoPaymentCollection{}).InsertPayment(ctx, models.Payment{}))
	_, err := (&MongoCounterCollection{}).NextSequence(ctx, "k")
	assert.Error(t, err)
	_, err = (&MongoUserCollection{}).FindUserByID(ctx, "u1")
	assert.Error(t, err)
	assert.Error(t, (&MongoPromoCodeCollection{}).RedeemPromoCode(ctx, "p1"))
}

func TestDecimalCodec_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	type doc struct {
		Amount decimal.Decimal `bson:"amount"`
	}

	raw, err := bson.MarshalWithRegistry(reg, doc{Amount: decimal.RequireFromString("36.94")})
	require.NoError(t, err)

	var generic bson.M
	require.NoError(t, bson.Unmarshal(raw, &generic))
	assert.IsType(t, primitive.Decimal128{}, generic["amount"])

	var back doc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &back))
	assert.True(t, back.Amount.Equal(decimal.RequireFromString("36.94")), back.Amount.String())
}

func TestDecimalCodec_DecodesLegacyNumbers(t *testing.T) {
	reg := NewRegistry()
	type doc struct {
		Amount decimal.Decimal `bson:"amount"`
	}
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"string", "12.50", "12.5"},
		{"int32", int32(7), "7"},
		{"int64", int64(9), "9"},
		{"double", 2.25, "2.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{"amount": tt.in})
			require.NoError(t, err)
			var got doc
			require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &got))
			assert.Equal(t, tt.want, got.Amount.String())
		})
	}
}

func TestReservationFilter(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	q := reservationFilter(models.ReservationFilter{
		VehicleID:  "V1",
		Statuses:   []models.ReservationStatus{models.StatusPending},
		PickupFrom: &from,
		BranchIDs:  []string{},
	})
	m := q.Map()
	assert.Equal(t, "V1", m["vehicle_id"])
	assert.Equal(t, bson.M{"$in": []models.ReservationStatus{models.StatusPending}}, m["status"])
	assert.Equal(t, bson.M{"$gte": from}, m["pickup.at"])
	assert.Equal(t, bson.M{"$in": []string{}}, m["pickup.branch_id"], "empty scope matches nothing")

	assert.Empty(t, reservationFilter(models.ReservationFilter{}))
}

func TestBlockingFilter(t *testing.T) {
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	m := blockingFilter("V1", start, end).Map()
	assert.Equal(t, bson.M{"$lt": end}, m["pickup.at"])
	assert.Equal(t, bson.M{"$gt": start}, m["dropoff.at"])
	assert.Len(t, m["status"].(bson.M)["$in"], 3)
}

func TestReservationUpdateDocument(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	unbind := ""
	u := reservationUpdate(models.ReservationUpdate{VehicleID: &unbind, ClearDriver: true, UpdatedAt: at})

	set := u["$set"].(bson.M)
	assert.Nil(t, set["vehicle_id"])
	assert.Equal(t, at, set["updated_at"])
	assert.Equal(t, bson.M{"driver": ""}, u["$unset"])

	notes := "n"
	u = reservationUpdate(models.ReservationUpdate{Notes: &notes, UpdatedAt: at})
	assert.NotContains(t, u, "$unset")
}

// testStore connects to MONGO_URI and returns a store on a scratch database.
func testStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	s := NewMongoStore(client, "test_fleet_rental")
	require.NoError(t, s.Database().Drop(ctx))
	require.NoError(t, s.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = s.Database().Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return s
}

func TestMongoStore_Integration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	vid := "V1"
	r := models.Reservation{
		ID:             "r1",
		Code:           "HRE-2025-000001",
		UserID:         "u1",
		VehicleModelID: "M1",
		VehicleID:      &vid,
		Pickup:         models.Endpoint{BranchID: "B1", At: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)},
		Dropoff:        models.Endpoint{BranchID: "B1", At: time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC)},
		Status:         models.StatusPending,
		Pricing:        models.PricingSnapshot{Currency: models.CurrencyUSD, GrandTotal: decimal.RequireFromString("36.94")},
		CreatedAt:      time.Now().UTC(),
	}

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Reservations().GuardVehicle(ctx, vid); err != nil {
			return err
		}
		return s.Reservations().InsertReservation(ctx, r)
	})
	if err != nil {
		t.Skipf("transactions unavailable: %v", err)
	}

	assert.ErrorIs(t, s.Reservations().InsertReservation(ctx, r), ErrDuplicateKey)

	got, err := s.Reservations().FindReservationByID(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.Pricing.GrandTotal.Equal(r.Pricing.GrandTotal))

	found, err := s.Reservations().FindBlockingReservations(ctx, vid, r.Dropoff.At, r.Dropoff.At.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, found)

	now := time.Now().UTC()
	require.NoError(t, s.Reservations().TransitionReservation(ctx, "r1", models.StatusPending, models.StatusConfirmed, now))
	assert.ErrorIs(t, s.Reservations().TransitionReservation(ctx, "r1", models.StatusPending, models.StatusCancelled, now), ErrConflict)
	assert.ErrorIs(t, s.Reservations().TransitionReservation(ctx, "nope", models.StatusPending, models.StatusCancelled, now), ErrNotFound)

	seq, err := s.Counters().NextSequence(ctx, "reservation:HRE:2025")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	seq, err = s.Counters().NextSequence(ctx, "reservation:HRE:2025")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	require.NoError(t, s.PromoCodes().InsertPromoCode(ctx, models.PromoCode{ID: "p1", Code: "ONCE", Active: true, UsageLimit: 1}))
	require.NoError(t, s.PromoCodes().RedeemPromoCode(ctx, "p1"))
	assert.ErrorIs(t, s.PromoCodes().RedeemPromoCode(ctx, "p1"), ErrConflict)
}
