package memory

import (
	"context"

	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/models"
)

type serviceOrders struct{ s *Store }

func (c *serviceOrders) InsertServiceOrder(ctx context.Context, o models.ServiceOrder) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.serviceOrders[o.ID]; ok {
		return db.ErrDuplicateKey
	}
	c.s.st.serviceOrders[o.ID] = o
	return nil
}

func (c *serviceOrders) FindServiceOrders(ctx context.Context, f models.ServiceOrderFilter) ([]models.ServiceOrder, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.serviceOrders, f.Match, func(a, b models.ServiceOrder) bool {
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.ID < b.ID
	}), nil
}

func (c *serviceOrders) FindServiceOrderByID(ctx context.Context, id string) (*models.ServiceOrder, error) {
	defer c.s.lock(ctx)()
	o, ok := c.s.st.serviceOrders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &o, nil
}

func (c *serviceOrders) UpdateServiceOrder(ctx context.Context, id string, o models.ServiceOrder) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.serviceOrders[id]; !ok {
		return db.ErrNotFound
	}
	o.ID = id
	c.s.st.serviceOrders[id] = o
	return nil
}

func (c *serviceOrders) DeleteServiceOrder(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.serviceOrders[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.serviceOrders, id)
	return nil
}

type incidents struct{ s *Store }

func (c *incidents) InsertIncident(ctx context.Context, i models.Incident) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.incidents[i.ID]; ok {
		return db.ErrDuplicateKey
	}
	c.s.st.incidents[i.ID] = i
	return nil
}

func (c *incidents) FindIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.incidents, f.Match, func(a, b models.Incident) bool {
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		return a.ID < b.ID
	}), nil
}

func (c *incidents) FindIncidentByID(ctx context.Context, id string) (*models.Incident, error) {
	defer c.s.lock(ctx)()
	i, ok := c.s.st.incidents[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &i, nil
}

func (c *incidents) UpdateIncident(ctx context.Context, id string, i models.Incident) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.incidents[id]; !ok {
		return db.ErrNotFound
	}
	i.ID = id
	c.s.st.incidents[id] = i
	return nil
}

func (c *incidents) DeleteIncident(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.incidents[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.incidents, id)
	return nil
}
