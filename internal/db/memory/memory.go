// Package memory is an in-process implementation of db.Store.
//
// A single mutex serializes every call, and WithTransaction holds it for the whole callback,
// so transactions are serializable. A failed callback restores the state it started from.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/models"
)

type txKey struct{}

type state struct {
	reservations  map[string]models.Reservation
	payments      map[string]models.Payment
	counters      map[string]int64
	guards        map[string]int64
	vehicles      map[string]models.Vehicle
	vehicleModels map[string]models.VehicleModel
	branches      map[string]models.Branch
	users         map[string]models.User
	ratePlans     map[string]models.RatePlan
	promoCodes    map[string]models.PromoCode
	serviceOrders map[string]models.ServiceOrder
	incidents     map[string]models.Incident
}

func newState() state {
	return state{
		reservations:  map[string]models.Reservation{},
		payments:      map[string]models.Payment{},
		counters:      map[string]int64{},
		guards:        map[string]int64{},
		vehicles:      map[string]models.Vehicle{},
		vehicleModels: map[string]models.VehicleModel{},
		branches:      map[string]models.Branch{},
		users:         map[string]models.User{},
		ratePlans:     map[string]models.RatePlan{},
		promoCodes:    map[string]models.PromoCode{},
		serviceOrders: map[string]models.ServiceOrder{},
		incidents:     map[string]models.Incident{},
	}
}

func (st state) clone() state {
	return state{
		reservations:  cloneMap(st.reservations),
		payments:      cloneMap(st.payments),
		counters:      cloneMap(st.counters),
		guards:        cloneMap(st.guards),
		vehicles:      cloneMap(st.vehicles),
		vehicleModels: cloneMap(st.vehicleModels),
		branches:      cloneMap(st.branches),
		users:         cloneMap(st.users),
		ratePlans:     cloneMap(st.ratePlans),
		promoCodes:    cloneMap(st.promoCodes),
		serviceOrders: cloneMap(st.serviceOrders),
		incidents:     cloneMap(st.incidents),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func values[V any](m map[string]V, keep func(V) bool, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex
	st state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

var _ db.Store = (*Store)(nil)

// lock takes the store mutex unless ctx belongs to a transaction that already holds it.
func (s *Store) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTransaction runs fn with exclusive access and rolls back on error.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = saved
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Reservations() db.ReservationCollection { return &reservations{s} }
func (s *Store) Payments() db.PaymentCollection { return &payments{s} }
func (s *Store) Counters() db.CounterCollection { return &counters{s} }
func (s *Store) Vehicles() db.VehicleCollection { return &vehicles{s} }
func (s *Store) VehicleModels() db.VehicleModelCollection { return &vehicleModels{s} }
func (s *Store) Branches() db.BranchCollection { return &branches{s} }
func (s *Store) Users() db.UserCollection { return &users{s} }
func (s *Store) RatePlans() db.RatePlanCollection { return &ratePlans{s} }
func (s *Store) PromoCodes() db.PromoCodeCollection { return &promoCodes{s} }
func (s *Store) ServiceOrders() db.ServiceOrderCollection { return &serviceOrders{s} }
func (s *Store) Incidents() db.IncidentCollection { return &incidents{s} }

type counters struct{ s *Store }

func (c *counters) NextSequence(ctx context.Context, key string) (int64, error) {
	defer c.s.lock(ctx)()
	c.s.st.counters[key]++
	return c.s.st.counters[key], nil
}
