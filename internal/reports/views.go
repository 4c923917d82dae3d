package reports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

var allStatuses = []models.ReservationStatus{
	models.StatusPending, models.StatusConfirmed, models.StatusCheckedOut,
	models.StatusReturned, models.StatusCancelled, models.StatusNoShow,
}

// ReservationReport lists reservations created in the window.
type ReservationReport struct {
	Window   Window                           `json:"window"`
	Total    int                              `json:"total"`
	ByStatus map[models.ReservationStatus]int `json:"by_status"`
	Rows     []models.Reservation             `json:"rows"`
}

func (r *Reporter) Reservations(ctx context.Context, actor *models.Actor, q Query) (*ReservationReport, error) {
	q, branches, err := r.prepare(actor, q)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.Reservations().FindReservations(ctx, models.ReservationFilter{
		BranchIDs:   branches,
		CreatedFrom: &q.From,
		CreatedTo:   &q.To,
	})
	if err != nil {
		return nil, errs.Internal(err, "load reservations")
	}

	out := &ReservationReport{
		Window:   Window{From: q.From, To: q.To},
		Total:    len(rows),
		ByStatus: make(map[models.ReservationStatus]int, len(allStatuses)),
		Rows:     rows,
	}
	for _, s := range allStatuses {
		out.ByStatus[s] = 0
	}
	for _, res := range rows {
		out.ByStatus[res.Status]++
	}
	return out, nil
}

// PaymentReport lists ledger rows in the window. ByPaymentStatus groups the reservations those
// rows belong to by their current payment status and sums what they have paid.
type PaymentReport struct {
	Window          Window                          `json:"window"`
	Currency        models.Currency                 `json:"currency"`
	Net             decimal.Decimal                 `json:"net"`
	ByKind          map[models.PaymentKind]Bucket   `json:"by_kind"`
	ByPaymentStatus map[models.PaymentStatus]Bucket `json:"by_payment_status"`
	Rows            []models.Payment                `json:"rows"`
}

func (r *Reporter) Payments(ctx context.Context, actor *models.Actor, q Query) (*PaymentReport, error) {
	q, branches, err := r.prepare(actor, q)
	if err != nil {
		return nil, err
	}
	payments, reservations, err := r.scopedPayments(ctx, branches, q)
	if err != nil {
		return nil, err
	}

	out := &PaymentReport{
		Window:          Window{From: q.From, To: q.To},
		Currency:        q.Currency,
		Net:             decimal.Zero,
		ByKind:          map[models.PaymentKind]Bucket{},
		ByPaymentStatus: map[models.PaymentStatus]Bucket{},
		Rows:            payments,
	}
	for _, p := range payments {
		out.ByKind[p.Kind] = out.ByKind[p.Kind].add(p.Amount)
		out.Net = out.Net.Add(net(p))
	}
	for _, res := range reservations {
		s := res.PaymentSummary.Status
		out.ByPaymentStatus[s] = out.ByPaymentStatus[s].add(res.PaymentSummary.PaidTotal)
	}
	return out, nil
}

// IncidentReport lists incidents that occurred in the window on vehicles in scope.
type IncidentReport struct {
	Window     Window                        `json:"window"`
	Currency   models.Currency               `json:"currency"`
	Total      int                           `json:"total"`
	Cost       decimal.Decimal               `json:"cost"`
	BySeverity map[models.Severity]int       `json:"by_severity"`
	ByStatus   map[models.IncidentStatus]int `json:"by_status"`
	Rows       []models.Incident             `json:"rows"`
}

func (r *Reporter) Incidents(ctx context.Context, actor *models.Actor, q Query) (*IncidentReport, error) {
	q, branches, err := r.prepare(actor, q)
	if err != nil {
		return nil, err
	}
	vehicles, err := r.vehicleIDs(ctx, branches)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.Incidents().FindIncidents(ctx, models.IncidentFilter{VehicleIDs: vehicles, From: &q.From, To: &q.To})
	if err != nil {
		return nil, errs.Internal(err, "load incidents")
	}

	out := &IncidentReport{
		Window:     Window{From: q.From, To: q.To},
		Currency:   q.Currency,
		Total:      len(rows),
		Cost:       decimal.Zero,
		BySeverity: map[models.Severity]int{models.SeverityLow: 0, models.SeverityMedium: 0, models.SeverityHigh: 0, models.SeverityCritical: 0},
		ByStatus:   map[models.IncidentStatus]int{models.IncidentOpen: 0, models.IncidentResolved: 0},
		Rows:       rows,
	}
	for _, i := range rows {
		out.BySeverity[i.Severity]++
		out.ByStatus[i.Status]++
		if i.Currency == q.Currency {
			out.Cost = out.Cost.Add(i.Cost)
		}
	}
	return out, nil
}

// FleetReport is a snapshot of the vehicles in scope. It ignores the window.
type FleetReport struct {
	Total          int                              `json:"total"`
	ByStatus       map[models.VehicleStatus]int     `json:"by_status"`
	ByAvailability map[models.AvailabilityState]int `json:"by_availability"`
	ByClass        map[string]int                   `json:"by_class"`
	Rows           []models.Vehicle                 `json:"rows"`
}

func (r *Reporter) Fleet(ctx context.Context, actor *models.Actor, q Query) (*FleetReport, error) {
	_, branches, err := r.prepare(actor, q)
	if err != nil {
		return nil, err
	}
	vehicles, err := r.store.Vehicles().FindVehicles(ctx, models.VehicleFilter{BranchIDs: branches})
	if err != nil {
		return nil, errs.Internal(err, "load vehicles")
	}
	classes, err := r.classes(ctx)
	if err != nil {
		return nil, err
	}

	out := &FleetReport{
		Total:          len(vehicles),
		ByStatus:       map[models.VehicleStatus]int{},
		ByAvailability: map[models.AvailabilityState]int{},
		ByClass:        map[string]int{},
		Rows:           vehicles,
	}
	for _, v := range vehicles {
		out.ByStatus[v.Status]++
		state := v.AvailabilityState
		if state == "" {
			state = models.StateAvailable
		}
		out.ByAvailability[state]++
		out.ByClass[classOf(classes, v)]++
	}
	return out, nil
}

// ServiceReport lists service orders scheduled in the window on vehicles in scope.
type ServiceReport struct {
	Window   Window                          `json:"window"`
	Currency models.Currency                 `json:"currency"`
	Total    int                             `json:"total"`
	ByStatus map[models.ServiceStatus]Bucket `json:"by_status"`
	Rows     []models.ServiceOrder           `json:"rows"`
}

func (r *Reporter) Services(ctx context.Context, actor *models.Actor, q Query) (*ServiceReport, error) {
	q, branches, err := r.prepare(actor, q)
	if err != nil {
		return nil, err
	}
	vehicles, err := r.vehicleIDs(ctx, branches)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.ServiceOrders().FindServiceOrders(ctx, models.ServiceOrderFilter{VehicleIDs: vehicles, From: &q.From, To: &q.To})
	if err != nil {
		return nil, errs.Internal(err, "load service orders")
	}

	out := &ServiceReport{
		Window:   Window{From: q.From, To: q.To},
		Currency: q.Currency,
		Total:    len(rows),
		ByStatus: map[models.ServiceStatus]Bucket{},
		Rows:     rows,
	}
	for _, o := range rows {
		cost := decimal.Zero
		if o.Currency == q.Currency {
			cost = o.Cost
		}
		out.ByStatus[o.Status] = out.ByStatus[o.Status].add(cost)
	}
	return out, nil
}

// classes maps vehicle model ids to their class.
func (r *Reporter) classes(ctx context.Context) (map[string]string, error) {
	vehicleModels, err := r.store.VehicleModels().FindVehicleModels(ctx)
	if err != nil {
		return nil, errs.Internal(err, "load vehicle models")
	}
	out := make(map[string]string, len(vehicleModels))
	for _, m := range vehicleModels {
		out[m.ID] = m.Class
	}
	return out, nil
}

func classOf(classes map[string]string, v models.Vehicle) string {
	if c := classes[v.VehicleModelID]; c != "" {
		return c
	}
	return "unknown"
}
