package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/db/memory"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

var (
	now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	admin    = &models.Actor{ID: "admin", Roles: []models.Role{models.RoleAdmin}, Status: models.UserActive}
	managerA = &models.Actor{ID: "mgr-a", Roles: []models.Role{models.RoleManager}, Status: models.UserActive, BranchIDs: []string{"B1"}}
	customer = &models.Actor{ID: "u1", Roles: []models.Role{models.RoleCustomer}, Status: models.UserActive}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func onDay(d int) time.Time { return time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC) }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B1", Code: "HRE", Name: "Harare", Active: true}))
	require.NoError(t, s.Branches().InsertBranch(ctx, models.Branch{ID: "B2", Code: "BYO", Name: "Bulawayo", Active: true}))
	require.NoError(t, s.VehicleModels().InsertVehicleModel(ctx, models.VehicleModel{ID: "M1", Class: "economy"}))
	require.NoError(t, s.VehicleModels().InsertVehicleModel(ctx, models.VehicleModel{ID: "M2", Class: "suv"}))
	for _, v := range []models.Vehicle{
		{ID: "V1", VehicleModelID: "M1", BranchID: "B1", Plate: "P1", Status: models.VehicleActive, AvailabilityState: models.StateReserved},
		{ID: "V2", VehicleModelID: "M1", BranchID: "B1", Plate: "P2", Status: models.VehicleMaintenance, AvailabilityState: models.StateBlocked},
		{ID: "V3", VehicleModelID: "M2", BranchID: "B2", Plate: "P3", Status: models.VehicleActive},
	} {
		require.NoError(t, s.Vehicles().InsertVehicle(ctx, v))
	}

	res := func(id, branch string, status models.ReservationStatus, created int, ps models.PaymentStatus, paid string) models.Reservation {
		return models.Reservation{
			ID:             id,
			Code:           "C-" + id,
			UserID:         "u1",
			VehicleModelID: "M1",
			Pickup:         models.Endpoint{BranchID: branch, At: onDay(created + 1)},
			Dropoff:        models.Endpoint{BranchID: branch, At: onDay(created + 3)},
			Status:         status,
			Pricing:        models.PricingSnapshot{Currency: models.CurrencyUSD, GrandTotal: dec("100")},
			PaymentSummary: models.PaymentSummary{Status: ps, PaidTotal: dec(paid), Outstanding: dec("100").Sub(dec(paid))},
			CreatedAt:      onDay(created),
		}
	}
	for _, r := range []models.Reservation{
		res("r1", "B1", models.StatusPending, 1, models.PaymentUnpaid, "0"),
		res("r2", "B1", models.StatusConfirmed, 1, models.PaymentPaid, "100"),
		res("r3", "B1", models.StatusCancelled, 2, models.PaymentRefunded, "0"),
		res("r4", "B2", models.StatusCheckedOut, 2, models.PaymentPartial, "40"),
		res("old", "B1", models.StatusReturned, 1, models.PaymentUnpaid, "0"),
	} {
		if r.ID == "old" {
			r.CreatedAt = onDay(1).AddDate(0, -2, 0)
		}
		require.NoError(t, s.Reservations().InsertReservation(ctx, r))
	}

	pay := func(id, reservation string, kind models.PaymentKind, amount string, d int) models.Payment {
		return models.Payment{ID: id, ReservationID: reservation, PaymentID: id, Kind: kind, Amount: dec(amount), Currency: models.CurrencyUSD, At: onDay(d)}
	}
	for _, p := range []models.Payment{
		pay("p1", "r2", models.KindPayment, "100", 2),
		pay("p2", "r3", models.KindPayment, "50", 2),
		pay("p3", "r3", models.KindRefund, "50", 3),
		pay("p4", "r4", models.KindPayment, "40", 3),
	} {
		require.NoError(t, s.Payments().InsertPayment(ctx, p))
	}
	zwl := pay("p5", "r4", models.KindPayment, "9999", 3)
	zwl.Currency = models.CurrencyZWL
	require.NoError(t, s.Payments().InsertPayment(ctx, zwl))

	require.NoError(t, s.ServiceOrders().InsertServiceOrder(ctx, models.ServiceOrder{ID: "s1", VehicleID: "V2", Status: models.ServiceOpen, ScheduledAt: onDay(3), Cost: dec("80"), Currency: models.CurrencyUSD}))
	require.NoError(t, s.ServiceOrders().InsertServiceOrder(ctx, models.ServiceOrder{ID: "s2", VehicleID: "V3", Status: models.ServiceCompleted, ScheduledAt: onDay(4), Cost: dec("20"), Currency: models.CurrencyUSD}))
	require.NoError(t, s.Incidents().InsertIncident(ctx, models.Incident{ID: "i1", VehicleID: "V1", Severity: models.SeverityHigh, Status: models.IncidentOpen, OccurredAt: onDay(5), Cost: dec("300"), Currency: models.CurrencyUSD}))
	require.NoError(t, s.Incidents().InsertIncident(ctx, models.Incident{ID: "i2", VehicleID: "V3", Severity: models.SeverityLow, Status: models.IncidentResolved, OccurredAt: onDay(5)}))
	return s
}

func newReporter(t *testing.T) *Reporter {
	return New(seed(t), WithClock(func() time.Time { return now }))
}

var march = Query{From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 3, 7, 23, 59, 59, 0, time.UTC)}

func TestReservations(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()

	rep, err := r.Reservations(ctx, admin, march)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 1, rep.ByStatus[models.StatusPending])
	assert.Equal(t, 1, rep.ByStatus[models.StatusCheckedOut])
	assert.Contains(t, rep.ByStatus, models.StatusNoShow, "every status is reported")

	rep, err = r.Reservations(ctx, managerA, march)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 0, rep.ByStatus[models.StatusCheckedOut])
}

func TestScopeAndValidation(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()

	q := march
	q.BranchIDs = []string{"B2"}
	_, err := r.Reservations(ctx, managerA, q)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	_, err = r.Dashboard(ctx, customer, march)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	_, err = r.Fleet(ctx, nil, march)
	assert.Equal(t, errs.KindAuthRequired, errs.KindOf(err))

	inverted := Query{From: march.To, To: march.From}
	_, err = r.Payments(ctx, admin, inverted)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	long := Query{From: march.From.AddDate(-2, 0, 0), To: march.To}
	_, err = r.Dashboard(ctx, admin, long)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = r.Run(ctx, admin, Query{Type: "trackers"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	bad := march
	bad.Currency = "EUR"
	_, err = r.Services(ctx, admin, bad)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestDefaultWindow(t *testing.T) {
	r := newReporter(t)
	rep, err := r.Reservations(context.Background(), admin, Query{})
	require.NoError(t, err)
	assert.True(t, rep.Window.To.Equal(now))
	assert.True(t, rep.Window.From.Equal(now.Add(-30*24*time.Hour)))
	assert.Equal(t, 4, rep.Total, "the old reservation is outside the last 30 days")
}

func TestPayments(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()

	rep, err := r.Payments(ctx, admin, march)
	require.NoError(t, err)
	assert.Len(t, rep.Rows, 4, "ZWL rows are excluded")
	assert.Equal(t, "140", rep.Net.String())
	assert.Equal(t, 3, rep.ByKind[models.KindPayment].Count)
	assert.Equal(t, "190", rep.ByKind[models.KindPayment].Sum.String())
	assert.Equal(t, 1, rep.ByPaymentStatus[models.PaymentPaid].Count)
	assert.Equal(t, "100", rep.ByPaymentStatus[models.PaymentPaid].Sum.String())
	assert.Equal(t, 1, rep.ByPaymentStatus[models.PaymentRefunded].Count)
	assert.Equal(t, 1, rep.ByPaymentStatus[models.PaymentPartial].Count)

	rep, err = r.Payments(ctx, managerA, march)
	require.NoError(t, err)
	assert.Len(t, rep.Rows, 3)
	assert.Equal(t, "100", rep.Net.String())
	assert.NotContains(t, rep.ByPaymentStatus, models.PaymentPartial)
}

func TestFleetServicesIncidents(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()

	fleet, err := r.Fleet(ctx, managerA, march)
	require.NoError(t, err)
	assert.Equal(t, 2, fleet.Total)
	assert.Equal(t, map[string]int{"economy": 2}, fleet.ByClass)
	assert.Equal(t, 1, fleet.ByAvailability[models.StateBlocked])

	fleet, err = r.Fleet(ctx, admin, march)
	require.NoError(t, err)
	assert.Equal(t, 1, fleet.ByAvailability[models.StateAvailable], "a missing hint counts as available")

	services, err := r.Services(ctx, managerA, march)
	require.NoError(t, err)
	require.Len(t, services.Rows, 1)
	assert.Equal(t, "s1", services.Rows[0].ID)
	assert.Equal(t, "80", services.ByStatus[models.ServiceOpen].Sum.String())

	services, err = r.Services(ctx, admin, march)
	require.NoError(t, err)
	assert.Equal(t, 2, services.Total)

	incidents, err := r.Incidents(ctx, managerA, march)
	require.NoError(t, err)
	assert.Equal(t, 1, incidents.Total)
	assert.Equal(t, 1, incidents.BySeverity[models.SeverityHigh])
	assert.Equal(t, 0, incidents.BySeverity[models.SeverityLow])
	assert.Equal(t, "300", incidents.Cost.String())

	out, err := r.Run(ctx, admin, Query{Type: TypeIncidents, From: march.From, To: march.To})
	require.NoError(t, err)
	require.IsType(t, &IncidentReport{}, out)
	assert.Equal(t, 2, out.(*IncidentReport).Total)
}

func TestDashboard(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()

	d, err := r.Dashboard(ctx, admin, march)
	require.NoError(t, err)
	require.Len(t, d.Daily, 7)
	assert.Equal(t, "2025-03-01", d.Daily[0].Date)
	assert.Equal(t, 2, d.Daily[0].Reservations)
	assert.Equal(t, 2, d.Daily[1].Reservations)
	assert.Equal(t, "150", d.Daily[1].Revenue.String())
	assert.Equal(t, "-10", d.Daily[2].Revenue.String())
	assert.True(t, d.Daily[6].Revenue.IsZero())

	assert.Equal(t, map[string]int{SlicePending: 1, SliceConfirmed: 1, SliceCheckedOut: 1, SliceOther: 1}, d.StatusPie)

	require.Len(t, d.RevenueByBranch, 2)
	assert.Equal(t, "B1", d.RevenueByBranch[0].BranchID)
	assert.Equal(t, "HRE", d.RevenueByBranch[0].Code)
	assert.Equal(t, "100", d.RevenueByBranch[0].Revenue.String())
	assert.Equal(t, "40", d.RevenueByBranch[1].Revenue.String())

	assert.Equal(t, []ClassCount{{Class: "economy", Count: 2}, {Class: "suv", Count: 1}}, d.VehiclesByClass)
}

func TestDashboard_EmptyScopeEmitsAllSlices(t *testing.T) {
	r := New(memory.New(), WithClock(func() time.Time { return now }))
	d, err := r.Dashboard(context.Background(), managerA, march)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{SlicePending: 0, SliceConfirmed: 0, SliceCheckedOut: 0, SliceOther: 0}, d.StatusPie)
	assert.Empty(t, d.RevenueByBranch)
	assert.Len(t, d.Daily, 7)
}
