package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

// Pie slices. Every dashboard carries all four.
const (
	SlicePending    = "pending"
	SliceConfirmed  = "confirmed"
	SliceCheckedOut = "checked_out"
	SliceOther      = "other"
)

const topBranches = 10

// DailyBucket holds the reservations created and the net revenue collected on one UTC day.
type DailyBucket struct {
	Date         string          `json:"date"`
	Reservations int             `json:"reservations"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type BranchRevenue struct {
	BranchID string          `json:"branch_id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type ClassCount struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// Dashboard is the overview shown on the staff home page.
type Dashboard struct {
	Window          Window          `json:"window"`
	Currency        models.Currency `json:"currency"`
	Daily           []DailyBucket   `json:"daily"`
	StatusPie       map[string]int  `json:"status_pie"`
	RevenueByBranch []BranchRevenue `json:"revenue_by_branch"`
	VehiclesByClass []ClassCount    `json:"vehicles_by_class"`
}

func slice(s models.ReservationStatus) string {
	switch s {
	case models.StatusPending:
		return SlicePending
	case models.StatusConfirmed:
		return SliceConfirmed
	case models.StatusCheckedOut:
		return SliceCheckedOut
	default:
		return SliceOther
	}
}

func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Dashboard aggregates reservations created and payments collected in the window.
func (r *Reporter) Dashboard(ctx context.Context, actor *models.Actor, q Query) (*Dashboard, error) {
	q, branches, err := r.prepare(actor, q)
	if err != nil {
		return nil, err
	}

	reservations, err := r.store.Reservations().FindReservations(ctx, models.ReservationFilter{
		BranchIDs:   branches,
		CreatedFrom: &q.From,
		CreatedTo:   &q.To,
	})
	if err != nil {
		return nil, errs.Internal(err, "load reservations")
	}
	payments, byReservation, err := r.scopedPayments(ctx, branches, q)
	if err != nil {
		return nil, err
	}

	out := &Dashboard{
		Window:    Window{From: q.From, To: q.To},
		Currency:  q.Currency,
		StatusPie: map[string]int{SlicePending: 0, SliceConfirmed: 0, SliceCheckedOut: 0, SliceOther: 0},
	}

	index := map[string]int{}
	start := time.Date(q.From.Year(), q.From.Month(), q.From.Day(), 0, 0, 0, 0, time.UTC)
	for d := start; !d.After(q.To); d = d.AddDate(0, 0, 1) {
		index[day(d)] = len(out.Daily)
		out.Daily = append(out.Daily, DailyBucket{Date: day(d), Revenue: decimal.Zero})
	}

	for _, res := range reservations {
		out.StatusPie[slice(res.Status)]++
		if i, ok := index[day(res.CreatedAt)]; ok {
			out.Daily[i].Reservations++
		}
	}

	revenue := map[string]decimal.Decimal{}
	for _, p := range payments {
		amount := net(p)
		if i, ok := index[day(p.At)]; ok {
			out.Daily[i].Revenue = out.Daily[i].Revenue.Add(amount)
		}
		if res, ok := byReservation[p.ReservationID]; ok {
			b := res.Pickup.BranchID
			revenue[b] = revenue[b].Add(amount)
		}
	}
	if out.RevenueByBranch, err = r.topBranches(ctx, revenue); err != nil {
		return nil, err
	}
	if out.VehiclesByClass, err = r.vehiclesByClass(ctx, branches); err != nil {
		return nil, err
	}
	return out, nil
}

// topBranches ranks branches by revenue, highest first, ties by branch id.
func (r *Reporter) topBranches(ctx context.Context, revenue map[string]decimal.Decimal) ([]BranchRevenue, error) {
	branches, err := r.store.Branches().FindBranches(ctx)
	if err != nil {
		return nil, errs.Internal(err, "load branches")
	}
	known := make(map[string]models.Branch, len(branches))
	for _, b := range branches {
		known[b.ID] = b
	}

	out := make([]BranchRevenue, 0, len(revenue))
	for id, amount := range revenue {
		b := known[id]
		out = append(out, BranchRevenue{BranchID: id, Code: b.Code, Name: b.Name, Revenue: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].BranchID < out[j].BranchID
	})
	if len(out) > topBranches {
		out = out[:topBranches]
	}
	return out, nil
}

func (r *Reporter) vehiclesByClass(ctx context.Context, branches []string) ([]ClassCount, error) {
	vehicles, err := r.store.Vehicles().FindVehicles(ctx, models.VehicleFilter{BranchIDs: branches})
	if err != nil {
		return nil, errs.Internal(err, "load vehicles")
	}
	classes, err := r.classes(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, v := range vehicles {
		counts[classOf(classes, v)]++
	}
	out := make([]ClassCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, ClassCount{Class: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Class < out[j].Class
	})
	return out, nil
}
