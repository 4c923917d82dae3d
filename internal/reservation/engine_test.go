package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/db/memory"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/notify"
)

var (
	fixedNow = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	admin    = &models.Actor{ID: "admin", Roles: []models.Role{models.RoleAdmin}, Status: models.UserActive}
	managerA = &models.Actor{ID: "mgr-a", Roles: []models.Role{models.RoleManager}, Status: models.UserActive, BranchIDs: []string{"B1"}}
	agentB   = &models.Actor{ID: "agent-b", Roles: []models.Role{models.RoleAgent}, Status: models.UserActive, BranchIDs: []string{"B2"}}
	customer = &models.Actor{ID: "u1", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive}
	other    = &models.Actor{ID: "u2", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive}
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strp(s string) *string { return &s }

type fixture struct {
	store  *memory.Store
	engine *Engine
	events *recorder
	logs   *test.Hook
}

type recorder struct {
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

// newFixture seeds two branches, one model, three vehicles, a standard rate plan and two users.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B1", Code: "HRE", Name: "Harare", Active: true}))
	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B2", Code: "BYO", Name: "Bulawayo", Active: true}))
	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B9", Code: "OLD", Name: "Closed", Active: false}))
	require.NoError(t, s.VehicleModels().InsertVehicleModel(ctx, models.VehicleModel{ID: "M1", Make: "Toyota", Model: "Corolla", Class: "economy"}))
	require.NoError(t, s.VehicleModels().InsertVehicleModel(ctx, models.VehicleModel{ID: "M2", Make: "Toyota", Model: "Hilux", Class: "pickup"}))
	for _, v := range []models.Vehicle{
		{ID: "V1", VehicleModelID: "M1", BranchID: "B1", Plate: "AAA-0001", Status: models.VehicleActive, AvailabilityState: models.StateAvailable},
		{ID: "V2", VehicleModelID: "M1", BranchID: "B2", Plate: "AAA-0002", Status: models.VehicleActive, AvailabilityState: models.StateAvailable},
		{ID: "V3", VehicleModelID: "M1", BranchID: "B1", Plate: "AAA-0003", Status: models.VehicleMaintenance},
		{ID: "V4", VehicleModelID: "M2", BranchID: "B1", Plate: "AAA-0004", Status: models.VehicleActive},
	} {
		require.NoError(t, s.Vehicles().InsertVehicle(ctx, v))
	}
	require.NoError(t, s.RatePlans().InsertRatePlan(ctx, models.RatePlan{
		ID:        "std",
		Name:      "Standard",
		Currency:  models.CurrencyUSD,
		DailyRate: dec("30"),
		Taxes:     []models.TaxRate{{Code: "VAT", Rate: dec("0.15")}},
		Active:    true,
	}))
	for _, u := range []models.User{
		{ID: "u1", Email: "u1@example.com", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive},
		{ID: "u2", Email: "u2@example.com", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive},
	} {
		require.NoError(t, s.Users().InsertUser(ctx, u))
	}

	rec := &recorder{}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	d := notify.NewDispatcher(rec, 64, logger)
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithLogger(logger), WithDispatcher(d)}
	e := New(s, append(base, opts...)...)
	f := &fixture{store: s, engine: e, events: rec, logs: hook}
	d.Start(ctx)
	t.Cleanup(func() { _ = d.Close() })
	return f
}

// drain closes the dispatcher so every published event has been delivered.
func (f *fixture) drain(t *testing.T) []notify.Event {
	t.Helper()
	require.NoError(t, f.engine.events.Close())
	return f.events.events
}

func booking(vehicleID, from, to string) CreateRequest {
	req := CreateRequest{
		VehicleModelID: "M1",
		Pickup:         models.Endpoint{BranchID: "B1", At: at(from)},
		Dropoff:        models.Endpoint{BranchID: "B1", At: at(to)},
	}
	if vehicleID != "" {
		req.VehicleID = strp(vehicleID)
	}
	return req
}

func (f *fixture) create(t *testing.T, actor *models.Actor, req CreateRequest) *models.Reservation {
	t.Helper()
	r, err := f.engine.Create(context.Background(), actor, "", req)
	require.NoError(t, err)
	return r
}

func requireKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, errs.KindOf(err), "error: %v", err)
}
