package memory

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/models"
)

type vehicles struct{ s *Store }

func (c *vehicles) InsertVehicle(ctx context.Context, v models.Vehicle) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.vehicles[v.ID]; ok {
		return db.ErrDuplicateKey
	}
	for _, existing := range c.s.st.vehicles {
		if v.Plate != "" && existing.Plate == v.Plate {
			return db.ErrDuplicateKey
		}
	}
	c.s.st.vehicles[v.ID] = v
	return nil
}

func (c *vehicles) FindVehicles(ctx context.Context, f models.VehicleFilter) ([]models.Vehicle, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.vehicles, f.Match, func(a, b models.Vehicle) bool { return a.ID < b.ID }), nil
}

func (c *vehicles) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	defer c.s.lock(ctx)()
	v, ok := c.s.st.vehicles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

func (c *vehicles) UpdateVehicle(ctx context.Context, id string, v models.Vehicle) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.vehicles[id]; !ok {
		return db.ErrNotFound
	}
	v.ID = id
	c.s.st.vehicles[id] = v
	return nil
}

func (c *vehicles) SetAvailabilityState(ctx context.Context, id string, state models.AvailabilityState, at time.Time) error {
	defer c.s.lock(ctx)()
	v, ok := c.s.st.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	v.AvailabilityState = state
	v.UpdatedAt = at
	c.s.st.vehicles[id] = v
	return nil
}

func (c *vehicles) DeleteVehicle(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.vehicles[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.vehicles, id)
	return nil
}

type vehicleModels struct{ s *Store }

func (c *vehicleModels) InsertVehicleModel(ctx context.Context, m models.VehicleModel) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.vehicleModels[m.ID]; ok {
		return db.ErrDuplicateKey
	}
	c.s.st.vehicleModels[m.ID] = m
	return nil
}

func (c *vehicleModels) FindVehicleModels(ctx context.Context) ([]models.VehicleModel, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.vehicleModels, nil, func(a, b models.VehicleModel) bool { return a.ID < b.ID }), nil
}

func (c *vehicleModels) FindVehicleModelByID(ctx context.Context, id string) (*models.VehicleModel, error) {
	defer c.s.lock(ctx)()
	m, ok := c.s.st.vehicleModels[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &m, nil
}

func (c *vehicleModels) UpdateVehicleModel(ctx context.Context, id string, m models.VehicleModel) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.vehicleModels[id]; !ok {
		return db.ErrNotFound
	}
	m.ID = id
	c.s.st.vehicleModels[id] = m
	return nil
}

func (c *vehicleModels) DeleteVehicleModel(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.vehicleModels[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.vehicleModels, id)
	return nil
}

type branches struct{ s *Store }

func (c *branches) InsertBranch(ctx context.Context, b models.Branch) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.branches[b.ID]; ok {
		return db.ErrDuplicateKey
	}
	for _, existing := range c.s.st.branches {
		if existing.Code == b.Code {
			return db.ErrDuplicateKey
		}
	}
	c.s.st.branches[b.ID] = b
	return nil
}

func (c *branches) FindBranches(ctx context.Context) ([]models.Branch, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.branches, nil, func(a, b models.Branch) bool { return a.Code < b.Code }), nil
}

func (c *branches) FindBranchByID(ctx context.Context, id string) (*models.Branch, error) {
	defer c.s.lock(ctx)()
	b, ok := c.s.st.branches[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &b, nil
}

func (c *branches) UpdateBranch(ctx context.Context, id string, b models.Branch) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.branches[id]; !ok {
		return db.ErrNotFound
	}
	b.ID = id
	c.s.st.branches[id] = b
	return nil
}

func (c *branches) DeleteBranch(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.branches[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.branches, id)
	return nil
}

type users struct{ s *Store }

func (c *users) InsertUser(ctx context.Context, u models.User) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.users[u.ID]; ok {
		return db.ErrDuplicateKey
	}
	for _, existing := range c.s.st.users {
		if u.Email != "" && existing.Email == u.Email {
			return db.ErrDuplicateKey
		}
	}
	c.s.st.users[u.ID] = u
	return nil
}

func (c *users) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	defer c.s.lock(ctx)()
	u, ok := c.s.st.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (c *users) FindUsers(ctx context.Context) ([]models.User, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.users, nil, func(a, b models.User) bool { return a.ID < b.ID }), nil
}

func (c *users) UpdateUser(ctx context.Context, id string, u models.User) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.users[id]; !ok {
		return db.ErrNotFound
	}
	u.ID = id
	c.s.st.users[id] = u
	return nil
}

func (c *users) DeleteUser(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.users, id)
	return nil
}
