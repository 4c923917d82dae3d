package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/reservation"
)

// createReservationRequest lets staff book on behalf of user_id.
type createReservationRequest struct {
	UserID string `json:"user_id,omitempty"`
	reservation.CreateRequest
}

type statusRequest struct {
	Status models.ReservationStatus `json:"status"`
}

type availabilityRequest struct {
	VehicleID      string    `json:"vehicle_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	IncludeService bool      `json:"include_service,omitempty"`
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.Create(r.Context(), actorOf(r), req.UserID, req.CreateRequest)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, res)
}

// ListReservations handles GET /api/reservations.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	f, err := reservationFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.engine.List(r.Context(), actorOf(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.Reservation{}
	}
	h.respond(w, http.StatusOK, rows)
}

func reservationFilter(r *http.Request) (models.ReservationFilter, error) {
	q := r.URL.Query()
	f := models.ReservationFilter{
		Code:           q.Get("code"),
		UserID:         q.Get("user_id"),
		VehicleID:      q.Get("vehicle_id"),
		VehicleModelID: q.Get("vehicle_model_id"),
		CreatedBy:      q.Get("created_by"),
		BranchIDs:      list(q, "branch_id"),
	}
	for _, s := range list(q, "status") {
		f.Statuses = append(f.Statuses, models.ReservationStatus(s))
	}

	var err error
	times := []struct {
		key      string
		dst      **time.Time
		endOfDay bool
	}{
		{"pickup_from", &f.PickupFrom, false},
		{"pickup_to", &f.PickupTo, true},
		{"dropoff_from", &f.DropoffFrom, false},
		{"dropoff_to", &f.DropoffTo, true},
		{"created_from", &f.CreatedFrom, false},
		{"created_to", &f.CreatedTo, true},
	}
	for _, t := range times {
		if *t.dst, err = timeParam(q, t.key, t.endOfDay); err != nil {
			return f, err
		}
	}
	if f.Limit, err = intParam(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// GetReservation handles GET /api/reservations/{id}.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Get(r.Context(), actorOf(r), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, res)
}

// UpdateReservation handles PATCH /api/reservations/{id}.
func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var p reservation.Patch
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.Update(r.Context(), actorOf(r), pathID(r), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, res)
}

// UpdateReservationStatus handles PATCH /api/reservations/{id}/status.
func (h *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.Transition(r.Context(), actorOf(r), pathID(r), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, res)
}

// DeleteReservation handles DELETE /api/reservations/{id}.
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), actorOf(r), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "reservation deleted")
}

// CheckAvailability handles POST /api/reservations/availability.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		h.fail(w, r, errs.Validation("start and end are required"))
		return
	}
	ok, err := h.engine.CheckVehicleAvailability(r.Context(), req.VehicleID, req.Start.UTC(), req.End.UTC(), req.IncludeService)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]bool{"available": ok})
}

// ApplyPayment handles POST /api/reservations/{id}/payments. The caller must be able to see
// the reservation.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var in reservation.PaymentInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	id := pathID(r)
	if _, err := h.engine.Get(r.Context(), actorOf(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.ApplyPayment(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, res)
}
