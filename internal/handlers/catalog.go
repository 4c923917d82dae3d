package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/scope"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// staffScope resolves the caller and rejects renters.
func staffScope(r *http.Request) (scope.Scope, error) {
	sc, err := scope.Resolve(actorOf(r))
	if err != nil {
		return sc, err
	}
	if !sc.Staff {
		return sc, errs.Forbidden("staff role required")
	}
	return sc, nil
}

// storeErr maps store sentinels onto the API taxonomy.
func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errs.NotFound("%s not found", what)
	case errors.Is(err, db.ErrDuplicateKey):
		return errs.Validation("%s already exists", what)
	}
	return errs.Internal(err, "%s store error", what)
}

// Branches

func validateBranch(b *models.Branch) error {
	b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
	return validation.Struct(b)
}

// ListBranches handles GET /api/branches. Branch scoped staff only see their branches.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.Branches().FindBranches(r.Context())
	if err != nil {
		h.fail(w, r, storeErr(err, "branch"))
		return
	}
	out := make([]models.Branch, 0, len(rows))
	for _, b := range rows {
		if sc.AllowsBranch(b.ID) {
			out = append(out, b)
		}
	}
	h.respond(w, http.StatusOK, out)
}

// GetBranch handles GET /api/branches/{id}.
func (h *Handler) GetBranch(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.store.Branches().FindBranchByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "branch"))
		return
	}
	if !sc.AllowsBranch(b.ID) {
		h.fail(w, r, errs.Forbidden("branch %s is outside your scope", b.ID))
		return
	}
	h.respond(w, http.StatusOK, b)
}

// CreateBranch handles POST /api/branches.
func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var b models.Branch
	if err := decode(r, &b); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateBranch(&b); err != nil {
		h.fail(w, r, err)
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = h.clock()
	if err := h.store.Branches().InsertBranch(r.Context(), b); err != nil {
		h.fail(w, r, storeErr(err, "branch"))
		return
	}
	h.respond(w, http.StatusCreated, b)
}

// UpdateBranch handles PUT /api/branches/{id}.
func (h *Handler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
	var b models.Branch
	if err := decode(r, &b); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateBranch(&b); err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.Branches()
	old, err := col.FindBranchByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "branch"))
		return
	}
	b.ID, b.CreatedAt = old.ID, old.CreatedAt
	if err := col.UpdateBranch(r.Context(), b.ID, b); err != nil {
		h.fail(w, r, storeErr(err, "branch"))
		return
	}
	h.respond(w, http.StatusOK, b)
}

// DeleteBranch handles DELETE /api/branches/{id}.
func (h *Handler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Branches().DeleteBranch(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, storeErr(err, "branch"))
		return
	}
	h.respondMessage(w, http.StatusOK, "branch deleted")
}

// Vehicle models

func validateVehicleModel(m *models.VehicleModel) error {
	return validation.Struct(m)
}

// ListVehicleModels handles GET /api/vehicle-models.
func (h *Handler) ListVehicleModels(w http.ResponseWriter, r *http.Request) {
	if _, err := staffScope(r); err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.VehicleModels().FindVehicleModels(r.Context())
	if err != nil {
		h.fail(w, r, storeErr(err, "vehicle model"))
		return
	}
	if rows == nil {
		rows = []models.VehicleModel{}
	}
	h.respond(w, http.StatusOK, rows)
}

// GetVehicleModel handles GET /api/vehicle-models/{id}.
func (h *Handler) GetVehicleModel(w http.ResponseWriter, r *http.Request) {
	if _, err := staffScope(r); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.store.VehicleModels().FindVehicleModelByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "vehicle model"))
		return
	}
	h.respond(w, http.StatusOK, m)
}

// CreateVehicleModel handles POST /api/vehicle-models.
func (h *Handler) CreateVehicleModel(w http.ResponseWriter, r *http.Request) {
	var m models.VehicleModel
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateVehicleModel(&m); err != nil {
		h.fail(w, r, err)
		return
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = h.clock()
	if err := h.store.VehicleModels().InsertVehicleModel(r.Context(), m); err != nil {
		h.fail(w, r, storeErr(err, "vehicle model"))
		return
	}
	h.respond(w, http.StatusCreated, m)
}

// UpdateVehicleModel handles PUT /api/vehicle-models/{id}.
func (h *Handler) UpdateVehicleModel(w http.ResponseWriter, r *http.Request) {
	var m models.VehicleModel
	if err := decode(r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateVehicleModel(&m); err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.VehicleModels()
	old, err := col.FindVehicleModelByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "vehicle model"))
		return
	}
	m.ID, m.CreatedAt = old.ID, old.CreatedAt
	if err := col.UpdateVehicleModel(r.Context(), m.ID, m); err != nil {
		h.fail(w, r, storeErr(err, "vehicle model"))
		return
	}
	h.respond(w, http.StatusOK, m)
}

// DeleteVehicleModel handles DELETE /api/vehicle-models/{id}.
func (h *Handler) DeleteVehicleModel(w http.ResponseWriter, r *http.Request) {
	if err := h.store.VehicleModels().DeleteVehicleModel(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, storeErr(err, "vehicle model"))
		return
	}
	h.respondMessage(w, http.StatusOK, "vehicle model deleted")
}

// Vehicles

func (h *Handler) validateVehicle(ctx context.Context, v *models.Vehicle) error {
	if err := validation.Struct(v); err != nil {
		return err
	}
	if v.Status == "" {
		v.Status = models.VehicleActive
	}
	if v.AvailabilityState == "" {
		v.AvailabilityState = models.StateAvailable
	}
	if _, err := h.store.VehicleModels().FindVehicleModelByID(ctx, v.VehicleModelID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return errs.Validation("vehicle model %s does not exist", v.VehicleModelID)
		}
		return storeErr(err, "vehicle model")
	}
	if _, err := h.store.Branches().FindBranchByID(ctx, v.BranchID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return errs.Validation("branch %s does not exist", v.BranchID)
		}
		return storeErr(err, "branch")
	}
	return nil
}

// ListVehicles handles GET /api/vehicles with optional branch_id, vehicle_model_id and status.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	branches, err := sc.BranchFilter(list(q, "branch_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.Vehicles().FindVehicles(r.Context(), models.VehicleFilter{
		BranchIDs:      branches,
		VehicleModelID: q.Get("vehicle_model_id"),
		Status:         models.VehicleStatus(q.Get("status")),
	})
	if err != nil {
		h.fail(w, r, storeErr(err, "vehicle"))
		return
	}
	if rows == nil {
		rows = []models.Vehicle{}
	}
	h.respond(w, http.StatusOK, rows)
}

// scopedVehicle loads vehicle id and checks its branch is visible to sc.
func (h *Handler) scopedVehicle(ctx context.Context, sc scope.Scope, id string) (*models.Vehicle, error) {
	v, err := h.store.Vehicles().FindVehicleByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "vehicle")
	}
	if !sc.AllowsBranch(v.BranchID) {
		return nil, errs.Forbidden("vehicle %s is outside your scope", id)
	}
	return v, nil
}

// GetVehicle handles GET /api/vehicles/{id}.
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.scopedVehicle(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, v)
}

// CreateVehicle handles POST /api/vehicles.
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if err := decode(r, &v); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validateVehicle(r.Context(), &v); err != nil {
		h.fail(w, r, err)
		return
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = h.clock()
	v.UpdatedAt = v.CreatedAt
	if err := h.store.Vehicles().InsertVehicle(r.Context(), v); err != nil {
		h.fail(w, r, storeErr(err, "vehicle"))
		return
	}
	h.respond(w, http.StatusCreated, v)
}

// UpdateVehicle handles PUT /api/vehicles/{id}. The availability hint is kept unless the body sets one.
func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if err := decode(r, &v); err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.Vehicles()
	old, err := col.FindVehicleByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "vehicle"))
		return
	}
	if v.AvailabilityState == "" {
		v.AvailabilityState = old.AvailabilityState
	}
	if err := h.validateVehicle(r.Context(), &v); err != nil {
		h.fail(w, r, err)
		return
	}
	v.ID, v.CreatedAt, v.UpdatedAt = old.ID, old.CreatedAt, h.clock()
	if err := col.UpdateVehicle(r.Context(), v.ID, v); err != nil {
		h.fail(w, r, storeErr(err, "vehicle"))
		return
	}
	h.respond(w, http.StatusOK, v)
}

// DeleteVehicle handles DELETE /api/vehicles/{id}.
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Vehicles().DeleteVehicle(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, storeErr(err, "vehicle"))
		return
	}
	h.respondMessage(w, http.StatusOK, "vehicle deleted")
}
