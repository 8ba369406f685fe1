package btcinvoice

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/processor"
)

// State is the reconciliation state of an invoice.
//
// UNPAID is initial. READY_TO_SHIP, INVALID and MERCHANT_REVIEW are
// terminal. UNDERPAID is the one reversible state: further payments can
// still bring it to PAID before expiry.
type State string

const (
	StateUnpaid         State = "unpaid"
	StatePaid           State = "paid"
	StateUnderpaid      State = "underpaid"
	StateReadyToShip    State = "ready_to_ship"
	StateInvalid        State = "invalid"
	StateMerchantReview State = "merchant_review"
)

// Terminal reports whether reconciliation may no longer move s. PAID is
// not terminal: payments can still arrive (overpay counts the balance
// below zero) and confirmation advances it to READY_TO_SHIP.
func (s State) Terminal() bool {
	return s == StateReadyToShip || s == StateInvalid || s == StateMerchantReview
}

var (
	ErrNotFound = errors.New("invoice not found")

	// ErrPaymentProcessor surfaces an external processor failure during
	// invoice initiation. There is no retry; the caller re-initiates.
	ErrPaymentProcessor = errors.New("payment processor failure")

	// ErrAlreadyInvoiced guards the one-invoice-per-transfer relation.
	ErrAlreadyInvoiced = errors.New("transfer already has an invoice")

	ErrInvalidTransition = errors.New("invalid invoice state transition")
)

// Invoice tracks Bitcoin collection for exactly one transfer. BalanceDue
// counts down as payments arrive; negative means overpaid.
type Invoice struct {
	ID         uuid.UUID
	TransferID uuid.UUID
	Processor  processor.Kind
	InvoiceID  string // external processor reference
	BTCAddress string
	BTCRate    float64 // fiat per BTC committed at creation
	BalanceDue float64 // BTC
	State      State
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether a payment received at t missed the window. The
// committed exchange rate has gone stale past ExpiresAt, so late payments
// always go to a human.
func (i *Invoice) Expired(t time.Time) bool {
	return t.After(i.ExpiresAt)
}

// PaymentState tracks blockchain confirmation of a single payment.
type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentConfirmed PaymentState = "confirmed"
)

// Payment is one inbound BTC payment against an invoice. Rows are append
// only; nothing but State ever changes after creation.
type Payment struct {
	ID            uuid.UUID
	InvoiceID     uuid.UUID
	InputTxHash   string
	ForwardTxHash string
	Amount        float64 // BTC
	ReceivedAt    time.Time
	State         PaymentState
}
