package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/db"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/notify"
	"github.com/ukydev/fleet-rental/internal/validation"
)

// PaymentInput is a payment event reported by the payment subsystem.
type PaymentInput struct {
	PaymentID string             `json:"payment_id" validate:"required"`
	Kind      models.PaymentKind `json:"kind" validate:"required,oneof=payment refund void"`
	Amount    decimal.Decimal    `json:"amount" validate:"gt=0"`
	Currency  models.Currency    `json:"currency" validate:"required,oneof=USD ZWL"`
	Method    string             `json:"method,omitempty"`
	At        time.Time          `json:"at"`
}

// ApplyPayment records a payment event and recomputes the payment summary from the whole ledger.
// Replaying the same (reservation, payment_id) changes nothing.
func (e *Engine) ApplyPayment(ctx context.Context, reservationID string, in PaymentInput) (res *models.Reservation, err error) {
	defer func() { e.metrics.ObserveOp("apply_payment", err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r, err := e.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if in.Currency != r.Pricing.Currency {
		return nil, errs.Validation("payment currency %s does not match reservation currency %s", in.Currency, r.Pricing.Currency)
	}

	now := e.clock()
	if in.At.IsZero() {
		in.At = now
	}
	p := models.Payment{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		PaymentID:     in.PaymentID,
		Kind:          in.Kind,
		Amount:        in.Amount.RoundBank(in.Currency.MinorUnits()),
		Currency:      in.Currency,
		Method:        in.Method,
		At:            in.At.UTC(),
		CreatedAt:     now,
	}

	var summary models.PaymentSummary
	// A concurrent replay of the same payment_id loses on the unique index; the second attempt
	// then finds the row already in the ledger.
	for attempt := 0; attempt < 2; attempt++ {
		err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
			ledger, err := e.store.Payments().FindPayments(ctx, models.PaymentFilter{ReservationIDs: []string{reservationID}})
			if err != nil {
				return err
			}
			if !hasPayment(ledger, p.PaymentID) {
				if err := e.store.Payments().InsertPayment(ctx, p); err != nil {
					return err
				}
				ledger = append(ledger, p)
			}
			summary = models.Rollup(r.Pricing.GrandTotal, ledger)
			return e.store.Reservations().SetPaymentSummary(ctx, reservationID, summary, now)
		})
		if !errors.Is(err, db.ErrDuplicateKey) {
			break
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NotFound("reservation %s not found", reservationID)
	}
	if err != nil {
		return nil, storeErr(err, "apply payment to reservation %s", reservationID)
	}

	r.PaymentSummary = summary
	r.UpdatedAt = now
	e.logger.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"payment_id":     in.PaymentID,
		"payment_status": summary.Status,
	}).Info("payment applied")
	e.publish(notify.PaymentApplied, r, "", now)
	return r, nil
}

func hasPayment(ledger []models.Payment, paymentID string) bool {
	for _, p := range ledger {
		if p.PaymentID == paymentID {
			return true
		}
	}
	return false
}
