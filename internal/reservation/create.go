package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/notify"
	"github.com/ukydev/fleet-rental/internal/pricing"
	"github.com/ukydev/fleet-rental/internal/scope"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// CreateRequest is the body of a booking.
type CreateRequest struct {
	VehicleModelID string                 `json:"vehicle_model_id" validate:"required"`
	VehicleID      *string                `json:"vehicle_id,omitempty"`
	Pickup         models.Endpoint        `json:"pickup"`
	Dropoff        models.Endpoint        `json:"dropoff"`
	Channel        models.Channel         `json:"created_channel,omitempty" validate:"omitempty,oneof=web mobile kiosk agent"`
	Driver         *models.DriverSnapshot `json:"driver,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	PromoCode      string                 `json:"promo_code,omitempty"`
	Pricing        *pricing.Input         `json:"pricing,omitempty"`
}

func (r CreateRequest) vehicleID() string {
	if r.VehicleID == nil {
		return ""
	}
	return *r.VehicleID
}

// Create books a reservation for renterID (the actor when empty). Staff may book for anyone;
// customers only for themselves. The reservation is persisted pending.
func (e *Engine) Create(ctx context.Context, actor *models.Actor, renterID string, req CreateRequest) (res *models.Reservation, err error) {
	defer func() { e.metrics.ObserveOp("create", err) }()

	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if renterID == "" {
		renterID = actor.ID
	}
	if err := e.checkRenter(ctx, sc, actor, renterID); err != nil {
		return nil, err
	}
	if err := validateCreate(&req, sc); err != nil {
		return nil, err
	}

	pickupBranch, err := e.activeBranch(ctx, req.Pickup.BranchID)
	if err != nil {
		return nil, err
	}
	if req.Dropoff.BranchID != req.Pickup.BranchID {
		if _, err := e.activeBranch(ctx, req.Dropoff.BranchID); err != nil {
			return nil, err
		}
	}
	if sc.Staff && !sc.AllowsBranch(pickupBranch.ID) {
		return nil, errs.Forbidden("branch %s is outside your scope", pickupBranch.ID)
	}

	model, err := e.store.VehicleModels().FindVehicleModelByID(ctx, req.VehicleModelID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NotFound("vehicle model %s not found", req.VehicleModelID)
	}
	if err != nil {
		return nil, errs.Internal(err, "load vehicle model %s", req.VehicleModelID)
	}
	vehicleID := req.vehicleID()
	if vehicleID != "" {
		if _, err := e.bookableVehicle(ctx, vehicleID, model.ID); err != nil {
			return nil, err
		}
	}

	now := e.clock()
	snap, promoID, err := e.price(ctx, sc, req, model, now)
	if err != nil {
		return nil, err
	}

	r := models.Reservation{
		ID:             uuid.NewString(),
		UserID:         renterID,
		CreatedBy:      actor.ID,
		CreatedChannel: req.Channel,
		VehicleModelID: model.ID,
		Pickup:         req.Pickup,
		Dropoff:        req.Dropoff,
		Status:         models.StatusPending,
		Pricing:        snap,
		PaymentSummary: models.UnpaidSummary(snap.GrandTotal),
		Driver:         req.Driver,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if vehicleID != "" {
		r.VehicleID = &vehicleID
		unlock, err := e.lockVehicle(ctx, vehicleID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	if err := e.insertWithCode(ctx, &r, pickupBranch.Code, promoID); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"reservation_id": r.ID,
		"code":           r.Code,
		"vehicle_id":     vehicleID,
		"user_id":        r.UserID,
	}).Info("reservation created")
	e.publish(notify.ReservationCreated, &r, "", now)
	return &r, nil
}

func (e *Engine) checkRenter(ctx context.Context, sc scope.Scope, actor *models.Actor, renterID string) error {
	if !sc.Staff {
		if renterID != actor.ID {
			return errs.Forbidden("customers can only book for themselves")
		}
		return nil
	}
	if renterID == actor.ID {
		return nil
	}
	_, err := e.store.Users().FindUserByID(ctx, renterID)
	if errors.Is(err, db.ErrNotFound) {
		return errs.NotFound("renter %s not found", renterID)
	}
	if err != nil {
		return errs.Internal(err, "load renter %s", renterID)
	}
	return nil
}

func validateCreate(req *CreateRequest, sc scope.Scope) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if !req.Pickup.At.Before(req.Dropoff.At) {
		return errs.InvalidRange("pickup must be before dropoff")
	}
	req.Pickup.At = req.Pickup.At.UTC()
	req.Dropoff.At = req.Dropoff.At.UTC()
	if req.Channel == "" {
		req.Channel = models.ChannelWeb
		if sc.Staff {
			req.Channel = models.ChannelAgent
		}
	}
	if req.Pricing != nil && !sc.Staff {
		return errs.Forbidden("only staff may supply pricing")
	}
	if req.Pricing != nil && req.PromoCode != "" {
		return errs.Validation("promo_code cannot be combined with supplied pricing")
	}
	return validateDriver(req.Driver, req.Dropoff.At)
}

// price freezes the supplied pricing or quotes the booking from the winning rate plan.
// It returns the id of the promo code to redeem, if any.
func (e *Engine) price(ctx context.Context, sc scope.Scope, req CreateRequest, model *models.VehicleModel, at time.Time) (models.PricingSnapshot, *string, error) {
	if req.Pricing != nil {
		snap, err := pricing.Freeze(*req.Pricing, at)
		return snap, nil, err
	}

	plans, err := e.store.RatePlans().FindRatePlans(ctx, true)
	if err != nil {
		return models.PricingSnapshot{}, nil, errs.Internal(err, "load rate plans")
	}
	plan, err := pricing.ResolvePlan(plans, models.RateTarget{
		VehicleID:      req.vehicleID(),
		VehicleModelID: model.ID,
		VehicleClass:   model.Class,
		BranchID:       req.Pickup.BranchID,
		At:             req.Pickup.At,
	})
	if err != nil {
		return models.PricingSnapshot{}, nil, err
	}

	var promo *models.PromoCode
	if req.PromoCode != "" {
		promo, err = e.store.PromoCodes().FindPromoCodeByCode(ctx, strings.ToUpper(strings.TrimSpace(req.PromoCode)))
		if errors.Is(err, db.ErrNotFound) {
			return models.PricingSnapshot{}, nil, errs.Validation("unknown promo code %s", req.PromoCode)
		}
		if err != nil {
			return models.PricingSnapshot{}, nil, errs.Internal(err, "load promo code %s", req.PromoCode)
		}
	}

	snap, err := pricing.Quote(plan, req.Pickup.At, req.Dropoff.At, promo, at)
	if err != nil {
		return models.PricingSnapshot{}, nil, err
	}
	if promo == nil {
		return snap, nil, nil
	}
	return snap, &promo.ID, nil
}

// insertWithCode allocates a code and commits r, retrying with a fresh code when the code is
// already taken. Sequences are drawn outside the transaction so a retry never reuses one.
// The caller holds the vehicle lock, so a range found taken here is rejected before a
// sequence is spent; the claim inside the transaction still decides.
func (e *Engine) insertWithCode(ctx context.Context, r *models.Reservation, branchCode string, promoID *string) error {
	if vehicleID := r.AssignedVehicle(); vehicleID != "" {
		if err := e.checkFree(ctx, vehicleID, r.Pickup.At, r.Dropoff.At); err != nil {
			return storeErr(err, "check vehicle %s", vehicleID)
		}
	}
	year := r.CreatedAt.Year()
	for attempt := 0; attempt <= e.codeRetries; attempt++ {
		seq, err := e.store.Counters().NextSequence(ctx, counterKey(branchCode, year))
		if err != nil {
			return errs.Internal(err, "allocate reservation code")
		}
		r.Code = reservationCode(branchCode, year, seq)

		err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
			return e.commitCreate(ctx, r, promoID)
		})
		if errors.Is(err, db.ErrDuplicateKey) {
			e.metrics.IncCodeRetry()
			e.logger.WithField("code", r.Code).Warn("reservation code taken, retrying")
			continue
		}
		return storeErr(err, "create reservation")
	}
	return errs.CodeDuplicate("could not allocate a unique reservation code after %d attempts", e.codeRetries+1)
}

func (e *Engine) commitCreate(ctx context.Context, r *models.Reservation, promoID *string) error {
	vehicleID := r.AssignedVehicle()
	if vehicleID != "" {
		if err := e.claimVehicle(ctx, vehicleID, r.Pickup.At, r.Dropoff.At); err != nil {
			return err
		}
	}
	if promoID != nil {
		err := e.store.PromoCodes().RedeemPromoCode(ctx, *promoID)
		switch {
		case errors.Is(err, db.ErrConflict), errors.Is(err, db.ErrNotFound):
			return errs.Validation("promo code is no longer redeemable")
		case err != nil:
			return err
		}
	}
	if err := e.store.Reservations().InsertReservation(ctx, *r); err != nil {
		return err
	}
	return e.RefreshHint(ctx, vehicleID)
}
