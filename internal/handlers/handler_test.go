package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/auth"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/db/memory"
	"github.com/ukydev/fleet-rental/internal/middleware"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/reports"
	"github.com/ukydev/fleet-rental/internal/reservation"
)

var (
	fixedNow = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	admin    = &models.Actor{ID: "admin", Roles: []models.Role{models.RoleAdmin}, Status: models.UserActive}
	managerA = &models.Actor{ID: "mgr-a", Roles: []models.Role{models.RoleManager}, Status: models.UserActive, BranchIDs: []string{"B1"}}
	agentA   = &models.Actor{ID: "agent-a", Roles: []models.Role{models.RoleAgent}, Status: models.UserActive, BranchIDs: []string{"B1"}}
	agentB   = &models.Actor{ID: "agent-b", Roles: []models.Role{models.RoleAgent}, Status: models.UserActive, BranchIDs: []string{"B2"}}
	customer = &models.Actor{ID: "u1", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive}
	other    = &models.Actor{ID: "u2", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive}
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

func (r apiResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), "data: %s", r.Data)
}

type server struct {
	store  db.Store
	tokens *auth.Service
	router http.Handler
}

// seed loads two branches, two models, three vehicles, a standard rate plan and two customers.
func seed(t *testing.T, s db.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B1", Code: "HRE", Name: "Harare", Active: true}))
	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B2", Code: "BYO", Name: "Bulawayo", Active: true}))
	require.NoError(t, s.VehicleModels().InsertVehicleModel(ctx, models.VehicleModel{ID: "M1", Make: "Toyota", Model: "Corolla", Class: "economy"}))
	require.NoError(t, s.VehicleModels().InsertVehicleModel(ctx, models.VehicleModel{ID: "M2", Make: "Toyota", Model: "Hilux", Class: "pickup"}))
	for _, v := range []models.Vehicle{
		{ID: "V1", VehicleModelID: "M1", BranchID: "B1", Plate: "AAA-0001", Status: models.VehicleActive, AvailabilityState: models.StateAvailable},
		{ID: "V2", VehicleModelID: "M1", BranchID: "B2", Plate: "AAA-0002", Status: models.VehicleActive, AvailabilityState: models.StateAvailable},
		{ID: "V3", VehicleModelID: "M2", BranchID: "B1", Plate: "AAA-0003", Status: models.VehicleActive, AvailabilityState: models.StateAvailable},
	} {
		require.NoError(t, s.Vehicles().InsertVehicle(ctx, v))
	}
	require.NoError(t, s.RatePlans().InsertRatePlan(ctx, models.RatePlan{
		ID:        "std",
		Name:      "Standard",
		Currency:  models.CurrencyUSD,
		DailyRate: decimal.RequireFromString("30"),
		Taxes:     []models.TaxRate{{Code: "VAT", Rate: decimal.RequireFromString("0.15")}},
		Active:    true,
	}))
	for _, u := range []models.User{
		{ID: "u1", Email: "u1@example.com", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive},
		{ID: "u2", Email: "u2@example.com", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive},
	} {
		require.NoError(t, s.Users().InsertUser(ctx, u))
	}
}

func newServerOn(t *testing.T, store db.Store, opts ...Option) *server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := func() time.Time { return fixedNow }
	tokens := auth.NewService("handler-test-secret", time.Hour)

	engine := reservation.New(store, reservation.WithClock(clock), reservation.WithLogger(logger))
	reporter := reports.New(store, reports.WithClock(clock))
	base := []Option{WithLogger(logger), WithClock(clock)}
	h := NewHandler(store, engine, reporter, middleware.NewAuthMiddleware(tokens, logger), append(base, opts...)...)
	return &server{store: store, tokens: tokens, router: h.SetupRouter()}
}

func newServer(t *testing.T, opts ...Option) *server {
	t.Helper()
	s := memory.New()
	seed(t, s)
	return newServerOn(t, s, opts...)
}

// do sends body as JSON on behalf of actor (anonymous when nil).
func (s *server) do(t *testing.T, actor *models.Actor, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := s.tokens.GenerateToken(actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	}
	return w, resp
}

func booking(vehicleID, from, to string) map[string]any {
	body := map[string]any{
		"vehicle_model_id": "M1",
		"pickup":           map[string]any{"branch_id": "B1", "at": from},
		"dropoff":          map[string]any{"branch_id": "B1", "at": to},
	}
	if vehicleID != "" {
		body["vehicle_id"] = vehicleID
	}
	return body
}
