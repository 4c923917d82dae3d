package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/models"
)

func TestReservations_Lifecycle(t *testing.T) {
	s := newServer(t)

	w, resp := s.do(t, customer, http.MethodPost, "/api/reservations", booking("V1", "2025-01-10T09:00:00Z", "2025-01-15T09:00:00Z"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	var created models.Reservation
	resp.decode(t, &created)
	assert.Equal(t, "HRE-2025-000001", created.Code)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "172.5", created.Pricing.GrandTotal.String())

	w, resp = s.do(t, other, http.MethodPost, "/api/reservations", booking("V1", "2025-01-14T09:00:00Z", "2025-01-16T09:00:00Z"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "VEHICLE_UNAVAILABLE", resp.Code)

	w, resp = s.do(t, other, http.MethodGet, "/api/reservations/"+created.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	w, resp = s.do(t, customer, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Reservation
	resp.decode(t, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	w, resp = s.do(t, managerA, http.MethodPatch, "/api/reservations/"+created.ID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed models.Reservation
	resp.decode(t, &confirmed)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	w, resp = s.do(t, managerA, http.MethodPatch, "/api/reservations/"+created.ID+"/status", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "RESERVATION_STATUS_INVALID", resp.Code)

	payment := map[string]any{"payment_id": "pay-1", "kind": "payment", "amount": "100", "currency": "USD"}
	w, _ = s.do(t, customer, http.MethodPost, "/api/reservations/"+created.ID+"/payments", payment)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, managerA, http.MethodPost, "/api/reservations/"+created.ID+"/payments", payment)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paid models.Reservation
	resp.decode(t, &paid)
	assert.Equal(t, models.PaymentPartial, paid.PaymentSummary.Status)
	assert.Equal(t, "72.5", paid.PaymentSummary.Outstanding.String())

	w, _ = s.do(t, managerA, http.MethodDelete, "/api/reservations/"+created.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, admin, http.MethodDelete, "/api/reservations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reservation deleted", resp.Message)

	w, resp = s.do(t, admin, http.MethodGet, "/api/reservations/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestReservations_UpdateAndAvailability(t *testing.T) {
	s := newServer(t)

	_, resp := s.do(t, agentA, http.MethodPost, "/api/reservations", booking("V1", "2025-01-10T09:00:00Z", "2025-01-15T09:00:00Z"))
	var r models.Reservation
	resp.decode(t, &r)
	assert.Equal(t, models.ChannelAgent, r.CreatedChannel)

	check := map[string]any{"vehicle_id": "V1", "start": "2025-01-11T00:00:00Z", "end": "2025-01-12T00:00:00Z"}
	w, resp := s.do(t, customer, http.MethodPost, "/api/reservations/availability", check)
	require.Equal(t, http.StatusOK, w.Code)
	var avail map[string]bool
	resp.decode(t, &avail)
	assert.False(t, avail["available"])

	w, resp = s.do(t, agentA, http.MethodPatch, "/api/reservations/"+r.ID, map[string]any{
		"pickup":  map[string]any{"branch_id": "B1", "at": "2025-01-20T09:00:00Z"},
		"dropoff": map[string]any{"branch_id": "B1", "at": "2025-01-22T09:00:00Z"},
		"notes":   "moved",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved models.Reservation
	resp.decode(t, &moved)
	assert.Equal(t, "moved", moved.Notes)
	assert.Equal(t, r.Pricing.GrandTotal.String(), moved.Pricing.GrandTotal.String(), "pricing is frozen")

	_, resp = s.do(t, customer, http.MethodPost, "/api/reservations/availability", check)
	resp.decode(t, &avail)
	assert.True(t, avail["available"])

	w, resp = s.do(t, customer, http.MethodPost, "/api/reservations/availability", map[string]any{"vehicle_id": "V1", "start": "2025-01-12T00:00:00Z", "end": "2025-01-11T00:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RANGE", resp.Code)

	w, resp = s.do(t, customer, http.MethodPost, "/api/reservations/availability", map[string]any{"vehicle_id": "V1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", resp.Code)
}

func TestReservations_ListFilters(t *testing.T) {
	s := newServer(t)
	s.do(t, agentA, http.MethodPost, "/api/reservations", booking("V1", "2025-01-10T09:00:00Z", "2025-01-15T09:00:00Z"))
	s.do(t, agentA, http.MethodPost, "/api/reservations", booking("", "2025-02-10T09:00:00Z", "2025-02-15T09:00:00Z"))
	b := booking("V2", "2025-01-10T09:00:00Z", "2025-01-12T09:00:00Z")
	b["pickup"] = map[string]any{"branch_id": "B2", "at": "2025-01-10T09:00:00Z"}
	b["dropoff"] = map[string]any{"branch_id": "B2", "at": "2025-01-12T09:00:00Z"}
	w, _ := s.do(t, agentB, http.MethodPost, "/api/reservations", b)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	count := func(actor *models.Actor, query string) int {
		t.Helper()
		w, resp := s.do(t, actor, http.MethodGet, "/api/reservations"+query, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var rows []models.Reservation
		resp.decode(t, &rows)
		return len(rows)
	}
	assert.Equal(t, 3, count(admin, ""))
	assert.Equal(t, 2, count(managerA, ""))
	assert.Equal(t, 1, count(agentB, ""))
	assert.Equal(t, 1, count(admin, "?vehicle_id=V1"))
	assert.Equal(t, 1, count(admin, "?pickup_from=2025-02-01"))
	assert.Equal(t, 2, count(admin, "?pickup_to=2025-01-10"))
	assert.Equal(t, 3, count(admin, "?status=pending,confirmed"))
	assert.Equal(t, 1, count(admin, "?limit=1"))
	assert.Equal(t, 0, count(customer, ""))

	w, resp := s.do(t, managerA, http.MethodGet, "/api/reservations?branch_id=B2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	for _, q := range []string{"?limit=abc", "?pickup_from=yesterday", "?status=lost", "?offset=-1"} {
		w, resp := s.do(t, admin, http.MethodGet, "/api/reservations"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "VALIDATION", resp.Code, q)
	}
}

func TestReservations_BadRequests(t *testing.T) {
	s := newServer(t)

	w, resp := s.do(t, customer, http.MethodPost, "/api/reservations", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", resp.Code)

	w, resp = s.do(t, customer, http.MethodPost, "/api/reservations", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request body is required", resp.Message)

	w, resp = s.do(t, customer, http.MethodPost, "/api/reservations", booking("V1", "2025-01-15T09:00:00Z", "2025-01-10T09:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RANGE", resp.Code)

	body := booking("V1", "2025-01-10T09:00:00Z", "2025-01-15T09:00:00Z")
	body["user_id"] = "u2"
	w, _ = s.do(t, customer, http.MethodPost, "/api/reservations", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, agentA, http.MethodPost, "/api/reservations", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r models.Reservation
	resp.decode(t, &r)
	assert.Equal(t, "u2", r.UserID)
	assert.Equal(t, agentA.ID, r.CreatedBy)
}

func TestReservations_AuthRequired(t *testing.T) {
	s := newServer(t)

	w, resp := s.do(t, nil, http.MethodGet, "/api/reservations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "AUTH_REQUIRED", resp.Code)

	suspended := &models.Actor{ID: "u1", Roles: []models.Role{models.RoleCustomer}, Status: models.UserSuspended}
	w, resp = s.do(t, suspended, http.MethodGet, "/api/reservations", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)
}
