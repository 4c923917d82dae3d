package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/scope"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// Rate plans

// validateRatePlan checks p and that a branch scoped writer only touches its own branches.
func validateRatePlan(sc scope.Scope, p *models.RatePlan) error {
	if err := validation.Struct(p); err != nil {
		return err
	}
	if p.ValidTo != nil && !p.ValidFrom.Before(*p.ValidTo) {
		return errs.InvalidRange("valid_from must be before valid_to")
	}
	if !sc.All {
		if p.BranchID == nil {
			return errs.Forbidden("only admins may write plans for every branch")
		}
		if !sc.AllowsBranch(*p.BranchID) {
			return errs.Forbidden("branch %s is outside your scope", *p.BranchID)
		}
	}
	return nil
}

// ListRatePlans handles GET /api/rate-plans. active=true hides inactive plans.
func (h *Handler) ListRatePlans(w http.ResponseWriter, r *http.Request) {
	if _, err := staffScope(r); err != nil {
		h.fail(w, r, err)
		return
	}
	activeOnly, err := boolParam(r.URL.Query(), "active")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.RatePlans().FindRatePlans(r.Context(), activeOnly)
	if err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	if rows == nil {
		rows = []models.RatePlan{}
	}
	h.respond(w, http.StatusOK, rows)
}

// GetRatePlan handles GET /api/rate-plans/{id}.
func (h *Handler) GetRatePlan(w http.ResponseWriter, r *http.Request) {
	if _, err := staffScope(r); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.store.RatePlans().FindRatePlanByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	h.respond(w, http.StatusOK, p)
}

// CreateRatePlan handles POST /api/rate-plans.
func (h *Handler) CreateRatePlan(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var p models.RatePlan
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateRatePlan(sc, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = h.clock()
	p.UpdatedAt = p.CreatedAt
	if err := h.store.RatePlans().InsertRatePlan(r.Context(), p); err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	h.respond(w, http.StatusCreated, p)
}

// UpdateRatePlan handles PUT /api/rate-plans/{id}. Existing reservations keep their frozen prices.
func (h *Handler) UpdateRatePlan(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var p models.RatePlan
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.RatePlans()
	old, err := col.FindRatePlanByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	if err := validateRatePlan(sc, old); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateRatePlan(sc, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	p.ID, p.CreatedAt, p.UpdatedAt = old.ID, old.CreatedAt, h.clock()
	if err := col.UpdateRatePlan(r.Context(), p.ID, p); err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	h.respond(w, http.StatusOK, p)
}

// DeleteRatePlan handles DELETE /api/rate-plans/{id}.
func (h *Handler) DeleteRatePlan(w http.ResponseWriter, r *http.Request) {
	sc, err := staffScope(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.RatePlans()
	old, err := col.FindRatePlanByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	if err := validateRatePlan(sc, old); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := col.DeleteRatePlan(r.Context(), old.ID); err != nil {
		h.fail(w, r, storeErr(err, "rate plan"))
		return
	}
	h.respondMessage(w, http.StatusOK, "rate plan deleted")
}

// Promo codes

func validatePromoCode(p *models.PromoCode) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if err := validation.Struct(p); err != nil {
		return err
	}
	if !p.Discount.Valid() {
		return errs.Validation("percent discounts must be within [0, 100]")
	}
	if p.Discount.Type == models.DiscountFixed && p.Currency == nil {
		return errs.Validation("fixed discounts need a currency")
	}
	if p.ValidTo != nil && !p.ValidFrom.Before(*p.ValidTo) {
		return errs.InvalidRange("valid_from must be before valid_to")
	}
	return nil
}

// ListPromoCodes handles GET /api/promo-codes.
func (h *Handler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	if _, err := staffScope(r); err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.store.PromoCodes().FindPromoCodes(r.Context())
	if err != nil {
		h.fail(w, r, storeErr(err, "promo code"))
		return
	}
	if rows == nil {
		rows = []models.PromoCode{}
	}
	h.respond(w, http.StatusOK, rows)
}

// GetPromoCode handles GET /api/promo-codes/{id}.
func (h *Handler) GetPromoCode(w http.ResponseWriter, r *http.Request) {
	if _, err := staffScope(r); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.store.PromoCodes().FindPromoCodeByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "promo code"))
		return
	}
	h.respond(w, http.StatusOK, p)
}

// CreatePromoCode handles POST /api/promo-codes.
func (h *Handler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var p models.PromoCode
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validatePromoCode(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UsageCount = 0
	p.CreatedAt = h.clock()
	p.UpdatedAt = p.CreatedAt
	if err := h.store.PromoCodes().InsertPromoCode(r.Context(), p); err != nil {
		h.fail(w, r, storeErr(err, "promo code"))
		return
	}
	h.respond(w, http.StatusCreated, p)
}

// UpdatePromoCode handles PUT /api/promo-codes/{id}. The usage count is owned by redemptions.
func (h *Handler) UpdatePromoCode(w http.ResponseWriter, r *http.Request) {
	var p models.PromoCode
	if err := decode(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validatePromoCode(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	col := h.store.PromoCodes()
	old, err := col.FindPromoCodeByID(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, storeErr(err, "promo code"))
		return
	}
	p.ID, p.UsageCount, p.CreatedAt, p.UpdatedAt = old.ID, old.UsageCount, old.CreatedAt, h.clock()
	if err := col.UpdatePromoCode(r.Context(), p.ID, p); err != nil {
		h.fail(w, r, storeErr(err, "promo code"))
		return
	}
	h.respond(w, http.StatusOK, p)
}

// DeletePromoCode handles DELETE /api/promo-codes/{id}.
func (h *Handler) DeletePromoCode(w http.ResponseWriter, r *http.Request) {
	if err := h.store.PromoCodes().DeletePromoCode(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, storeErr(err, "promo code"))
		return
	}
	h.respondMessage(w, http.StatusOK, "promo code deleted")
}
