package transfer

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
)

// State is the lifecycle state of a money transfer.
//
// INIT → PAID → PROCESSED is the happy path. INVALID and CANCELLED are
// terminal; cancellation is a state, never a row deletion.
type State string

const (
	StateInit      State = "init"
	StatePaid      State = "paid"
	StateProcessed State = "processed"
	StateInvalid   State = "invalid"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition is allowed out of s.
func (s State) Terminal() bool {
	return s == StateProcessed || s == StateInvalid || s == StateCancelled
}

var (
	ErrNotFound           = errors.New("transfer not found")
	ErrInvalidTransition  = errors.New("invalid transfer state transition")
	ErrProfileIncomplete  = errors.New("sender profile incomplete")
	ErrPricingUnavailable = errors.New("no current pricing available")
	ErrImmutableField     = errors.New("field cannot be changed after creation")
)

// Recipient is who gets paid out on the receiving side.
type Recipient struct {
	Name    string
	Phone   string
	Country string
}

// Transfer is one money-transfer record. PricingID is the pricing version
// that was current at creation; it is frozen for the life of the transfer so
// a later re-price can never change what the recipient is owed.
type Transfer struct {
	ID               uuid.UUID
	Sender           uuid.UUID
	Recipient        Recipient
	PricingID        uuid.UUID
	SentAmount       float64
	SentCurrency     pricing.Currency
	ReceivedAmount   float64
	ReceivedCurrency pricing.Currency
	ReceivingCountry string
	ReferenceNumber  string
	State            State
	CreatedAt        time.Time
	PaidAt           *time.Time
	ProcessedAt      *time.Time
	InvalidatedAt    *time.Time
	CancelledAt      *time.Time
}

type ListFilter struct {
	State     *State
	Sender    *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}
