package memory

import (
	"context"

	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/models"
)

type ratePlans struct{ s *Store }

func (c *ratePlans) InsertRatePlan(ctx context.Context, p models.RatePlan) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.ratePlans[p.ID]; ok {
		return db.ErrDuplicateKey
	}
	c.s.st.ratePlans[p.ID] = p
	return nil
}

func (c *ratePlans) FindRatePlans(ctx context.Context, activeOnly bool) ([]models.RatePlan, error) {
	defer c.s.lock(ctx)()
	keep := func(p models.RatePlan) bool { return !activeOnly || p.Active }
	return values(c.s.st.ratePlans, keep, func(a, b models.RatePlan) bool { return a.ID < b.ID }), nil
}

func (c *ratePlans) FindRatePlanByID(ctx context.Context, id string) (*models.RatePlan, error) {
	defer c.s.lock(ctx)()
	p, ok := c.s.st.ratePlans[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (c *ratePlans) UpdateRatePlan(ctx context.Context, id string, p models.RatePlan) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.ratePlans[id]; !ok {
		return db.ErrNotFound
	}
	p.ID = id
	c.s.st.ratePlans[id] = p
	return nil
}

func (c *ratePlans) DeleteRatePlan(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.ratePlans[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.ratePlans, id)
	return nil
}

type promoCodes struct{ s *Store }

func (c *promoCodes) InsertPromoCode(ctx context.Context, p models.PromoCode) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.promoCodes[p.ID]; ok {
		return db.ErrDuplicateKey
	}
	for _, existing := range c.s.st.promoCodes {
		if existing.Code == p.Code {
			return db.ErrDuplicateKey
		}
	}
	c.s.st.promoCodes[p.ID] = p
	return nil
}

func (c *promoCodes) FindPromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	defer c.s.lock(ctx)()
	return values(c.s.st.promoCodes, nil, func(a, b models.PromoCode) bool { return a.Code < b.Code }), nil
}

func (c *promoCodes) FindPromoCodeByID(ctx context.Context, id string) (*models.PromoCode, error) {
	defer c.s.lock(ctx)()
	p, ok := c.s.st.promoCodes[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (c *promoCodes) FindPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	defer c.s.lock(ctx)()
	for _, p := range c.s.st.promoCodes {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *promoCodes) UpdatePromoCode(ctx context.Context, id string, p models.PromoCode) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.promoCodes[id]; !ok {
		return db.ErrNotFound
	}
	p.ID = id
	c.s.st.promoCodes[id] = p
	return nil
}

func (c *promoCodes) RedeemPromoCode(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	p, ok := c.s.st.promoCodes[id]
	if !ok {
		return db.ErrNotFound
	}
	if !p.Active || (p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit) {
		return db.ErrConflict
	}
	p.UsageCount++
	c.s.st.promoCodes[id] = p
	return nil
}

func (c *promoCodes) DeletePromoCode(ctx context.Context, id string) error {
	defer c.s.lock(ctx)()
	if _, ok := c.s.st.promoCodes[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.s.st.promoCodes, id)
	return nil
}
