package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/fleet-rental/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConflict is returned when a conditional write matched nothing.
	ErrConflict = errors.New("conflict")
)

// Store is the transactional document store behind the reservation engine.
// Collection calls made with the context handed to WithTransaction's callback join that transaction.
type Store interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error

	Reservations() ReservationCollection
	Payments() PaymentCollection
	Counters() CounterCollection
	Vehicles() VehicleCollection
	VehicleModels() VehicleModelCollection
	Branches() BranchCollection
	Users() UserCollection
	RatePlans() RatePlanCollection
	PromoCodes() PromoCodeCollection
	ServiceOrders() ServiceOrderCollection
	Incidents() IncidentCollection
}

// ReservationCollection defines the interface for reservation data operations.
type ReservationCollection interface {
	InsertReservation(ctx context.Context, r models.Reservation) error
	FindReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	FindReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error)
	// FindBlockingReservations returns reservations on the vehicle in a blocking status
	// whose range overlaps [start, end).
	FindBlockingReservations(ctx context.Context, vehicleID string, start, end time.Time) ([]models.Reservation, error)
	UpdateReservation(ctx context.Context, id string, u models.ReservationUpdate) error
	// TransitionReservation sets status to `to` only if it is still `from`; otherwise ErrConflict.
	TransitionReservation(ctx context.Context, id string, from, to models.ReservationStatus, at time.Time) error
	SetPaymentSummary(ctx context.Context, id string, s models.PaymentSummary, at time.Time) error
	DeleteReservation(ctx context.Context, id string) error
	// GuardVehicle writes the per-vehicle guard document so concurrent transactions on the
	// same vehicle conflict.
	GuardVehicle(ctx context.Context, vehicleID string) error
}

// PaymentCollection is the payment ledger.
type PaymentCollection interface {
	InsertPayment(ctx context.Context, p models.Payment) error
	FindPayments(ctx context.Context, f models.PaymentFilter) ([]models.Payment, error)
}

// CounterCollection allocates monotonic sequences.
type CounterCollection interface {
	NextSequence(ctx context.Context, key string) (int64, error)
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicles(ctx context.Context, f models.VehicleFilter) ([]models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error
	SetAvailabilityState(ctx context.Context, id string, state models.AvailabilityState, at time.Time) error
	DeleteVehicle(ctx context.Context, id string) error
}

// VehicleModelCollection defines the interface for vehicle model data operations.
type VehicleModelCollection interface {
	InsertVehicleModel(ctx context.Context, m models.VehicleModel) error
	FindVehicleModels(ctx context.Context) ([]models.VehicleModel, error)
	FindVehicleModelByID(ctx context.Context, id string) (*models.VehicleModel, error)
	UpdateVehicleModel(ctx context.Context, id string, m models.VehicleModel) error
	DeleteVehicleModel(ctx context.Context, id string) error
}

// BranchCollection defines the interface for branch data operations.
type BranchCollection interface {
	InsertBranch(ctx context.Context, b models.Branch) error
	FindBranches(ctx context.Context) ([]models.Branch, error)
	FindBranchByID(ctx context.Context, id string) (*models.Branch, error)
	UpdateBranch(ctx context.Context, id string, b models.Branch) error
	DeleteBranch(ctx context.Context, id string) error
}

// UserCollection defines the interface for user data operations.
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// RatePlanCollection defines the interface for rate plan data operations.
type RatePlanCollection interface {
	InsertRatePlan(ctx context.Context, p models.RatePlan) error
	FindRatePlans(ctx context.Context, activeOnly bool) ([]models.RatePlan, error)
	FindRatePlanByID(ctx context.Context, id string) (*models.RatePlan, error)
	UpdateRatePlan(ctx context.Context, id string, p models.RatePlan) error
	DeleteRatePlan(ctx context.Context, id string) error
}

// PromoCodeCollection defines the interface for promo code data operations.
type PromoCodeCollection interface {
	InsertPromoCode(ctx context.Context, p models.PromoCode) error
	FindPromoCodes(ctx context.Context) ([]models.PromoCode, error)
	FindPromoCodeByID(ctx context.Context, id string) (*models.PromoCode, error)
	FindPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error)
	UpdatePromoCode(ctx context.Context, id string, p models.PromoCode) error
	// RedeemPromoCode increments usage_count if the promo is active and under its limit;
	// otherwise ErrConflict.
	RedeemPromoCode(ctx context.Context, id string) error
	DeletePromoCode(ctx context.Context, id string) error
}

// ServiceOrderCollection defines the interface for service order data operations.
type ServiceOrderCollection interface {
	InsertServiceOrder(ctx context.Context, o models.ServiceOrder) error
	FindServiceOrders(ctx context.Context, f models.ServiceOrderFilter) ([]models.ServiceOrder, error)
	FindServiceOrderByID(ctx context.Context, id string) (*models.ServiceOrder, error)
	UpdateServiceOrder(ctx context.Context, id string, o models.ServiceOrder) error
	DeleteServiceOrder(ctx context.Context, id string) error
}

// IncidentCollection defines the interface for incident data operations.
type IncidentCollection interface {
	InsertIncident(ctx context.Context, i models.Incident) error
	FindIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, error)
	FindIncidentByID(ctx context.Context, id string) (*models.Incident, error)
	UpdateIncident(ctx context.Context, id string, i models.Incident) error
	DeleteIncident(ctx context.Context, id string) error
}
