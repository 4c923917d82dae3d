package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/scope"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// scopedVehicleIDs lists the vehicles of the requested branches within sc.
// The result is nil when every vehicle is visible.
func (h *Handler) scopedVehicleIDs(ctx context.Context, sc scope.Scope, requested []string) ([]string, error) {
	branches, err := sc.BranchFilter(requested)
	if err != nil {
		return nil, err
	}
	if branches == nil {
		return nil, nil
	}
	vehicles, err := h.store.Vehicles().FindVehicles(ctx, models.VehicleFilter{BranchIDs: branches})
	if err != nil {
		return nil, storeErr(err, "vehicle")
	}
	ids := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// narrow intersects the scoped vehicle ids with one requested vehicle.
func narrow(ids []string, vehicleID string) []string {
	if vehicleID == "" {
		return ids
	}
	if ids == nil {
		return []string{vehicleID}
	}
	for _, id := range ids {
		if id == vehicleID {
			return []string{vehicleID}
		}
	}
	return []string{}
}

// Service orders

func validateServiceOrder(o *models.ServiceOrder) error {
	if err := validation.Struct(o); err != nil {
		return err
	}
	if o.Status == "" {
		o.Status = models.ServiceOpen
	}
	if o.Currency == "" {
		o.Currency = models.CurrencyUSD
	}
	return nil
}

// syncServiceHint recomputes the hint of the order's vehicle from the holds left after a write.
func (h *Handler) syncServiceHint(ctx context.Context, o models.ServiceOrder) {
	if err := h.engine.RefreshHint(ctx, o.VehicleID); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"vehicle_id":       o.VehicleID,
			"service_order_id": o.ID,
		}).Warn("failed to update availability hint")
	}
}

// ListServiceOrders handles GET /api/service-orders with optional branch_id, vehicle_id,
// status, from and to.
func (h *Handler) ListServiceOrders(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	ids, err := h.scopedVehicleIDs(r.Context(), sc, list(q, "branch_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f := models.ServiceOrderFilter{VehicleIDs: narrow(ids, q.Get("vehicle_id"))}
	for _, s := range list(q, "status") {
		if !models.IsValidServiceStatus(models.ServiceStatus(s)) {
			h.fail(w, r, errs.Validation("unknown service status %q", s))
			return
		}
		f.Statuses = append(f.Statuses, models.ServiceStatus(s))
	}
	if f.From, err = timeParam(q, "from", false); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.To, err = timeParam(q, "to", true); err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.ServiceOrders().FindServiceOrders(r.Context(), f)
	if err != nil {
		h.fail(w, r, storeErr(err, "service order"))
		return
	}
	if rows == nil {
		rows = []models.ServiceOrder{}
	}
	h.respond(w, http.StatusOK, rows)
}

func (h *Handler) scopedServiceOrder(ctx context.Context, sc scope.Scope, id string) (*models.ServiceOrder, error) {
	o, err := h.store.ServiceOrders().FindServiceOrderByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "service order")
	}
	if _, err := h.scopedVehicle(ctx, sc, o.VehicleID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetServiceOrder handles GET /api/service-orders/{id}.
func (h *Handler) GetServiceOrder(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.scopedServiceOrder(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, o)
}

// CreateServiceOrder handles POST /api/service-orders.
func (h *Handler) CreateServiceOrder(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var o models.ServiceOrder
	if err := decode(r, &o); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateServiceOrder(&o); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.scopedVehicle(r.Context(), sc, o.VehicleID); err != nil {
		h.fail(w, r, err)
		return
	}
	now := h.clock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == models.ServiceCompleted && o.CompletedAt == nil {
		o.CompletedAt = &now
	}
	o.CreatedAt, o.UpdatedAt = now, now
	if err := h.store.ServiceOrders().InsertServiceOrder(r.Context(), o); err != nil {
		h.fail(w, r, storeErr(err, "service order"))
		return
	}
	if o.Status.Blocks() {
		h.syncServiceHint(r.Context(), o)
	}
	h.respond(w, http.StatusCreated, o)
}

// UpdateServiceOrder handles PUT /api/service-orders/{id}.
func (h *Handler) UpdateServiceOrder(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var o models.ServiceOrder
	if err := decode(r, &o); err != nil {
		h.fail(w, r, err)
		return
	}
	old, err := h.scopedServiceOrder(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if o.VehicleID == "" {
		o.VehicleID = old.VehicleID
	}
	if err := validateServiceOrder(&o); err != nil {
		h.fail(w, r, err)
		return
	}
	if o.VehicleID != old.VehicleID {
		h.fail(w, r, errs.Validation("a service order cannot move to another vehicle"))
		return
	}
	now := h.clock()
	if o.Status == models.ServiceCompleted && o.CompletedAt == nil {
		o.CompletedAt = &now
	}
	o.ID, o.CreatedAt, o.UpdatedAt = old.ID, old.CreatedAt, now
	if err := h.store.ServiceOrders().UpdateServiceOrder(r.Context(), o.ID, o); err != nil {
		h.fail(w, r, storeErr(err, "service order"))
		return
	}
	if o.Status.Blocks() != old.Status.Blocks() {
		h.syncServiceHint(r.Context(), o)
	}
	h.respond(w, http.StatusOK, o)
}

// DeleteServiceOrder handles DELETE /api/service-orders/{id}.
func (h *Handler) DeleteServiceOrder(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.scopedServiceOrder(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.ServiceOrders().DeleteServiceOrder(r.Context(), o.ID); err != nil {
		h.fail(w, r, storeErr(err, "service order"))
		return
	}
	if o.Status.Blocks() {
		h.syncServiceHint(r.Context(), *o)
	}
	h.respondMessage(w, http.StatusOK, "service order deleted")
}

// Incidents

func validateIncident(i *models.Incident) error {
	if err := validation.Struct(i); err != nil {
		return err
	}
	if i.Status == "" {
		i.Status = models.IncidentOpen
	}
	if i.Currency == "" {
		i.Currency = models.CurrencyUSD
	}
	return nil
}

// ListIncidents handles GET /api/incidents with optional branch_id, vehicle_id, severity,
// status, from and to.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	ids, err := h.scopedVehicleIDs(r.Context(), sc, list(q, "branch_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f := models.IncidentFilter{
		VehicleIDs: narrow(ids, q.Get("vehicle_id")),
		Severity:   models.Severity(q.Get("severity")),
		Status:     models.IncidentStatus(q.Get("status")),
	}
	if f.Severity != "" && !models.IsValidSeverity(f.Severity) {
		h.fail(w, r, errs.Validation("unknown severity %q", f.Severity))
		return
	}
	if f.From, err = timeParam(q, "from", false); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.To, err = timeParam(q, "to", true); err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.Incidents().FindIncidents(r.Context(), f)
	if err != nil {
		h.fail(w, r, storeErr(err, "incident"))
		return
	}
	if rows == nil {
		rows = []models.Incident{}
	}
	h.respond(w, http.StatusOK, rows)
}

func (h *Handler) scopedIncident(ctx context.Context, sc scope.Scope, id string) (*models.Incident, error) {
	i, err := h.store.Incidents().FindIncidentByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "incident")
	}
	if _, err := h.scopedVehicle(ctx, sc, i.VehicleID); err != nil {
		return nil, err
	}
	return i, nil
}

// GetIncident handles GET /api/incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	i, err := h.scopedIncident(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, i)
}

// CreateIncident handles POST /api/incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var i models.Incident
	if err := decode(r, &i); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateIncident(&i); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.scopedVehicle(r.Context(), sc, i.VehicleID); err != nil {
		h.fail(w, r, err)
		return
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	i.CreatedAt = h.clock()
	i.UpdatedAt = i.CreatedAt
	if err := h.store.Incidents().InsertIncident(r.Context(), i); err != nil {
		h.fail(w, r, storeErr(err, "incident"))
		return
	}
	h.respond(w, http.StatusCreated, i)
}

// UpdateIncident handles PUT /api/incidents/{id}.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var i models.Incident
	if err := decode(r, &i); err != nil {
		h.fail(w, r, err)
		return
	}
	old, err := h.scopedIncident(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if i.VehicleID == "" {
		i.VehicleID = old.VehicleID
	}
	if err := validateIncident(&i); err != nil {
		h.fail(w, r, err)
		return
	}
	if i.VehicleID != old.VehicleID {
		h.fail(w, r, errs.Validation("an incident cannot move to another vehicle"))
		return
	}
	i.ID, i.CreatedAt, i.UpdatedAt = old.ID, old.CreatedAt, h.clock()
	if err := h.store.Incidents().UpdateIncident(r.Context(), i.ID, i); err != nil {
		h.fail(w, r, storeErr(err, "incident"))
		return
	}
	h.respond(w, http.StatusOK, i)
}

// DeleteIncident handles DELETE /api/incidents/{id}.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	i, err := h.scopedIncident(r.Context(), sc, pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Incidents().DeleteIncident(r.Context(), i.ID); err != nil {
		h.fail(w, r, storeErr(err, "incident"))
		return
	}
	h.respondMessage(w, http.StatusOK, "incident deleted")
}
