package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/validation"
)

func validateUser(u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := validation.Struct(u); err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = models.UserActive
	}
	return nil
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.Users().FindUsers(r.Context())
	if err != nil {
		h.fail(w, r, storeErr(err, "user"))
		return
	}
	if rows == nil {
		rows = []models.User{}
	}
	h.respond(w, http.StatusOK, rows)
}

// GetUser handles GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.Users().FindUserByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "user"))
		return
	}
	h.respond(w, http.StatusOK, u)
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := decode(r, &u); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateUser(&u); err != nil {
		h.fail(w, r, err)
		return
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = h.clock()
	u.UpdatedAt = u.CreatedAt
	if err := h.store.Users().InsertUser(r.Context(), u); err != nil {
		h.fail(w, r, storeErr(err, "user"))
		return
	}
	h.respond(w, http.StatusCreated, u)
}

// UpdateUser handles PUT /api/users/{id}. Suspending a user takes effect on their next request.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := decode(r, &u); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateUser(&u); err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.Users()
	old, err := col.FindUserByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "user"))
		return
	}
	u.ID, u.CreatedAt, u.UpdatedAt = old.ID, old.CreatedAt, h.clock()
	if err := col.UpdateUser(r.Context(), u.ID, u); err != nil {
		h.fail(w, r, storeErr(err, "user"))
		return
	}
	h.respond(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /api/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Users().DeleteUser(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, storeErr(err, "user"))
		return
	}
	h.respondMessage(w, http.StatusOK, "user deleted")
}
