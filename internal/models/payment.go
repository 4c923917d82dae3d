package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the derived rollup state of a reservation's payments.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentVoid     PaymentStatus = "void"
)

// PaymentKind is the kind of a payment event reported by the payment subsystem.
type PaymentKind string

const (
	KindPayment PaymentKind = "payment"
	KindRefund  PaymentKind = "refund"
	KindVoid    PaymentKind = "void"
)

// PaymentSummary is derived from the payment ledger of a reservation. Never set it by hand.
type PaymentSummary struct {
	Status        PaymentStatus   `bson:"status" json:"status"`
	PaidTotal     decimal.Decimal `bson:"paid_total" json:"paid_total"`
	Outstanding   decimal.Decimal `bson:"outstanding" json:"outstanding"`
	LastPaymentAt *time.Time      `bson:"last_payment_at,omitempty" json:"last_payment_at,omitempty"`
}

// Payment is one ledger row. (ReservationID, PaymentID) is unique.
type Payment struct {
	ID            string          `bson:"_id" json:"id"`
	ReservationID string          `bson:"reservation_id" json:"reservation_id"`
	PaymentID     string          `bson:"payment_id" json:"payment_id"`
	Kind          PaymentKind     `bson:"kind" json:"kind"`
	Amount        decimal.Decimal `bson:"amount" json:"amount"`
	Currency      Currency        `bson:"currency" json:"currency"`
	Method        string          `bson:"method,omitempty" json:"method,omitempty"` // "card", "cash", "ecocash", "transfer"
	At            time.Time       `bson:"at" json:"at"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
}

// Rollup derives the summary of a reservation from its full payment ledger.
// The result depends only on the multiset of payments, never on their order.
func Rollup(grandTotal decimal.Decimal, payments []Payment) PaymentSummary {
	var paid, refunded, voided decimal.Decimal
	var last *time.Time
	for i := range payments {
		p := payments[i]
		switch p.Kind {
		case KindPayment:
			paid = paid.Add(p.Amount)
		case KindRefund:
			refunded = refunded.Add(p.Amount)
		case KindVoid:
			voided = voided.Add(p.Amount)
		}
		if last == nil || p.At.After(*last) {
			at := p.At
			last = &at
		}
	}

	net := paid.Sub(refunded).Sub(voided)
	if net.IsNegative() {
		net = decimal.Zero
	}

	status := PaymentPaid
	switch {
	case net.IsZero() && refunded.IsPositive():
		status = PaymentRefunded
	case net.IsZero() && voided.IsPositive():
		status = PaymentVoid
	case net.IsZero():
		status = PaymentUnpaid
	case net.LessThan(grandTotal):
		status = PaymentPartial
	}

	return PaymentSummary{
		Status:        status,
		PaidTotal:     net,
		Outstanding:   Outstanding(grandTotal, net),
		LastPaymentAt: last,
	}
}

// Outstanding is max(0, grandTotal - paid).
func Outstanding(grandTotal, paid decimal.Decimal) decimal.Decimal {
	o := grandTotal.Sub(paid)
	if o.IsNegative() {
		return decimal.Zero
	}
	return o
}

// UnpaidSummary is the summary of a reservation with no payments.
func UnpaidSummary(grandTotal decimal.Decimal) PaymentSummary {
	return Rollup(grandTotal, nil)
}
