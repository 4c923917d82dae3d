// Package reports builds the read-only aggregations behind /api/reports and /api/dashboards.
package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/scope"
)

// Type names a report.
type Type string

const (
	TypeReservations Type = "reservations"
	TypePayments     Type = "payments"
	TypeIncidents    Type = "incidents"
	TypeFleet        Type = "fleet"
	TypeServices     Type = "services"
)

// IsValidType reports whether t names a known report.
func IsValidType(t Type) bool {
	switch t {
	case TypeReservations, TypePayments, TypeIncidents, TypeFleet, TypeServices:
		return true
	default:
		return false
	}
}

const (
	defaultWindow = 30 * 24 * time.Hour
	maxWindow     = 366 * 24 * time.Hour
)

// Query selects the window, branches and currency of a report. Zero From and To default to
// the last 30 days. Money sums only count rows in Currency, USD by default.
type Query struct {
	Type      Type
	From      time.Time
	To        time.Time
	BranchIDs []string
	Currency  models.Currency
}

// Window is the inclusive [from, to] range a report covers.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Bucket is a count with a money sum.
type Bucket struct {
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

func (b Bucket) add(amount decimal.Decimal) Bucket {
	return Bucket{Count: b.Count + 1, Sum: b.Sum.Add(amount)}
}

// Reporter runs reports against a store.
type Reporter struct {
	store db.Store
	now   func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the time source used for default windows.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// New creates a Reporter.
func New(store db.Store, opts ...Option) *Reporter {
	r := &Reporter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run dispatches q to the report named by q.Type.
func (r *Reporter) Run(ctx context.Context, actor *models.Actor, q Query) (any, error) {
	switch q.Type {
	case TypeReservations:
		return r.Reservations(ctx, actor, q)
	case TypePayments:
		return r.Payments(ctx, actor, q)
	case TypeIncidents:
		return r.Incidents(ctx, actor, q)
	case TypeFleet:
		return r.Fleet(ctx, actor, q)
	case TypeServices:
		return r.Services(ctx, actor, q)
	}
	return nil, errs.Validation("unknown report type %q", q.Type)
}

// prepare validates q and resolves the branches the actor may aggregate over.
// A nil branch list means every branch.
func (r *Reporter) prepare(actor *models.Actor, q Query) (Query, []string, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return q, nil, err
	}
	branches, err := sc.BranchFilter(q.BranchIDs)
	if err != nil {
		return q, nil, err
	}

	if q.To.IsZero() {
		q.To = r.now()
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-defaultWindow)
	}
	q.From, q.To = q.From.UTC(), q.To.UTC()
	if q.From.After(q.To) {
		return q, nil, errs.InvalidRange("from must not be after to")
	}
	if q.To.Sub(q.From) > maxWindow {
		return q, nil, errs.Validation("report window must not exceed 366 days")
	}
	if q.Currency == "" {
		q.Currency = models.CurrencyUSD
	}
	if !models.IsValidCurrency(q.Currency) {
		return q, nil, errs.Validation("unsupported currency %q", q.Currency)
	}
	return q, branches, nil
}

// vehicleIDs lists the vehicles at branches. It returns nil when branches is nil so the
// caller does not restrict by vehicle.
func (r *Reporter) vehicleIDs(ctx context.Context, branches []string) ([]string, error) {
	if branches == nil {
		return nil, nil
	}
	vehicles, err := r.store.Vehicles().FindVehicles(ctx, models.VehicleFilter{BranchIDs: branches})
	if err != nil {
		return nil, errs.Internal(err, "load vehicles")
	}
	ids := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// scopedPayments loads the ledger rows in the window whose reservation is at one of branches,
// together with those reservations keyed by id.
func (r *Reporter) scopedPayments(ctx context.Context, branches []string, q Query) ([]models.Payment, map[string]models.Reservation, error) {
	pf := models.PaymentFilter{From: &q.From, To: &q.To}
	if branches != nil {
		inScope, err := r.store.Reservations().FindReservations(ctx, models.ReservationFilter{BranchIDs: branches})
		if err != nil {
			return nil, nil, errs.Internal(err, "load reservations")
		}
		pf.ReservationIDs = make([]string, 0, len(inScope))
		for _, res := range inScope {
			pf.ReservationIDs = append(pf.ReservationIDs, res.ID)
		}
	}
	ledger, err := r.store.Payments().FindPayments(ctx, pf)
	if err != nil {
		return nil, nil, errs.Internal(err, "load payments")
	}

	payments := make([]models.Payment, 0, len(ledger))
	seen := map[string]bool{}
	ids := []string{}
	for _, p := range ledger {
		if p.Currency != q.Currency {
			continue
		}
		payments = append(payments, p)
		if !seen[p.ReservationID] {
			seen[p.ReservationID] = true
			ids = append(ids, p.ReservationID)
		}
	}

	rows, err := r.store.Reservations().FindReservations(ctx, models.ReservationFilter{IDs: ids})
	if err != nil {
		return nil, nil, errs.Internal(err, "load reservations")
	}
	byID := make(map[string]models.Reservation, len(rows))
	for _, res := range rows {
		byID[res.ID] = res
	}
	return payments, byID, nil
}

// net is the signed contribution of p to revenue.
func net(p models.Payment) decimal.Decimal {
	if p.Kind == models.KindPayment {
		return p.Amount
	}
	return p.Amount.Neg()
}
