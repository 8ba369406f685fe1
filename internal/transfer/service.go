package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/limit"
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/profile"
	"github.com/kwabenaio/sika/internal/validation"
	"github.com/kwabenaio/sika/internal/versioned"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=transfer
type Repository interface {
	CreateTransfer(ctx context.Context, t *Transfer) error
	GetTransfer(ctx context.Context, id uuid.UUID) (*Transfer, error)
	ListTransfers(ctx context.Context, filter ListFilter) ([]*Transfer, error)
	UpdateRecipient(ctx context.Context, id uuid.UUID, r Recipient) error

	// TransitionState moves id from one of the allowed states to the target
	// state with a compare-and-swap, so two near-simultaneous transitions
	// cannot both apply. Returns ErrInvalidTransition when the current state
	// is not in from.
	TransitionState(ctx context.Context, id uuid.UUID, from []State, to State, at time.Time) error
}

// Pricer provides the current pricing and rate versions.
type Pricer interface {
	Current(ctx context.Context, site string) (*pricing.Version, error)
	CurrentRates(ctx context.Context) (*pricing.RateSet, error)
}

// Profiles provides sender KYC profiles.
type Profiles interface {
	Get(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
}

// Limiter provides the current sending limits.
type Limiter interface {
	Current(ctx context.Context, site string) (*limit.Version, error)
}

// Notifier dispatches transactional mail. Implementations log failures and
// never block the money path on mail delivery.
type Notifier interface {
	TransferCreated(ctx context.Context, t *Transfer)
	TransferPaid(ctx context.Context, t *Transfer)
	TransferProcessed(ctx context.Context, t *Transfer)
}

type Service struct {
	repo     Repository
	pricer   Pricer
	profiles Profiles
	limits   Limiter
	notifier Notifier
}

func NewService(repo Repository, pricer Pricer, profiles Profiles, limits Limiter, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		pricer:   pricer,
		profiles: profiles,
		limits:   limits,
		notifier: notifier,
	}
}

type CreateParams struct {
	Site             string
	Sender           uuid.UUID
	Recipient        Recipient
	SentAmount       float64
	SentCurrency     pricing.Currency
	ReceivedCurrency pricing.Currency
	ReceivingCountry string
}

// Create opens a transfer in state INIT. The current pricing version is
// snapshotted onto the transfer and never re-read; the payout amount is
// fixed here.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transfer, error) {
	sender, err := s.profiles.Get(ctx, params.Sender)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrProfileIncomplete
		}

		return nil, fmt.Errorf("loading sender profile: %w", err)
	}

	if !sender.Complete() {
		return nil, ErrProfileIncomplete
	}

	p, rs, err := s.currentPricing(ctx, params.Site)
	if err != nil {
		return nil, err
	}

	if err := s.checkLimits(ctx, params, rs, sender.Level); err != nil {
		return nil, err
	}

	received, err := pricing.ReceivedAmount(p, rs, params.SentAmount, params.SentCurrency, params.ReceivedCurrency)
	if err != nil {
		return nil, validation.Errorf("sent_currency", "%v", err)
	}

	t := &Transfer{
		Sender:           params.Sender,
		Recipient:        params.Recipient,
		PricingID:        p.ID,
		SentAmount:       params.SentAmount,
		SentCurrency:     params.SentCurrency,
		ReceivedAmount:   received,
		ReceivedCurrency: params.ReceivedCurrency,
		ReceivingCountry: params.ReceivingCountry,
		ReferenceNumber:  newReferenceNumber(),
		State:            StateInit,
	}

	if err := s.repo.CreateTransfer(ctx, t); err != nil {
		return nil, err
	}

	s.notifier.TransferCreated(ctx, t)

	return t, nil
}

func (s *Service) currentPricing(ctx context.Context, site string) (*pricing.Version, *pricing.RateSet, error) {
	p, err := s.pricer.Current(ctx, site)
	if err != nil {
		if errors.Is(err, versioned.ErrNoCurrentRecord) {
			return nil, nil, ErrPricingUnavailable
		}

		return nil, nil, fmt.Errorf("loading current pricing: %w", err)
	}

	rs, err := s.pricer.CurrentRates(ctx)
	if err != nil {
		if errors.Is(err, versioned.ErrNoCurrentRecord) {
			return nil, nil, ErrPricingUnavailable
		}

		return nil, nil, fmt.Errorf("loading current rates: %w", err)
	}

	return p, rs, nil
}

func (s *Service) checkLimits(ctx context.Context, params CreateParams, rs *pricing.RateSet, level profile.Level) error {
	lv, err := s.limits.Current(ctx, params.Site)
	if err != nil {
		if errors.Is(err, versioned.ErrNoCurrentRecord) {
			return ErrPricingUnavailable
		}

		return fmt.Errorf("loading current limits: %w", err)
	}

	// Limits are kept in the base currency; bring the sent amount to base
	// before comparing.
	baseAmount := params.SentAmount

	if params.SentCurrency != pricing.Base {
		rate, ok := rs.Rate(params.SentCurrency)
		if !ok {
			return validation.Errorf("sent_currency", "no exchange rate for %s", params.SentCurrency)
		}

		baseAmount = params.SentAmount / rate
	}

	if baseAmount < lv.TransactionMin {
		return validation.Errorf("sent_amount", "below the minimum of %v %s", lv.TransactionMin, pricing.Base)
	}

	if baseAmount > lv.TransactionMax {
		return validation.Errorf("sent_amount", "above the maximum of %v %s", lv.TransactionMax, pricing.Base)
	}

	// The KYC level picks the per-user cap: basic profiles send less per
	// transfer than fully verified ones.
	userLimit := lv.UserLimitBasic
	if level == profile.LevelComplete {
		userLimit = lv.UserLimitComplete
	}

	if baseAmount > userLimit {
		return validation.Errorf("sent_amount",
			"above the %s-profile sending limit of %v %s", level, userLimit, pricing.Base)
	}

	return nil
}

// SetPaid records that funds for the transfer were collected in full.
// Allowed from INIT only.
func (s *Service) SetPaid(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.TransitionState(ctx, id, []State{StateInit}, StatePaid, time.Now().UTC()); err != nil {
		return err
	}

	if t, err := s.repo.GetTransfer(ctx, id); err == nil {
		s.notifier.TransferPaid(ctx, t)
	}

	return nil
}

// SetProcessed records that the payout was delivered to the recipient.
func (s *Service) SetProcessed(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.TransitionState(ctx, id, []State{StatePaid}, StateProcessed, time.Now().UTC()); err != nil {
		return err
	}

	if t, err := s.repo.GetTransfer(ctx, id); err == nil {
		s.notifier.TransferProcessed(ctx, t)
	}

	return nil
}

// SetInvalid marks the transfer rejected or expired. Allowed from any
// non-terminal state.
func (s *Service) SetInvalid(ctx context.Context, id uuid.UUID) error {
	return s.repo.TransitionState(ctx, id, []State{StateInit, StatePaid}, StateInvalid, time.Now().UTC())
}

// Cancel is the manual operator action.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.repo.TransitionState(ctx, id, []State{StateInit, StatePaid}, StateCancelled, time.Now().UTC())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transfer, error) {
	return s.repo.ListTransfers(ctx, filter)
}

// UpdateRecipient fixes up recipient contact details. The pricing reference
// is immutable on every update path: a changed PricingID is rejected here,
// and the store never writes the pricing column on update.
func (s *Service) UpdateRecipient(ctx context.Context, id uuid.UUID, pricingID uuid.UUID, r Recipient) error {
	existing, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		return err
	}

	if pricingID != existing.PricingID {
		return ErrImmutableField
	}

	return s.repo.UpdateRecipient(ctx, id, r)
}

// newReferenceNumber generates the 6-digit human-support lookup code.
// Collisions are possible and accepted: it is not a primary key, support
// staff always pair it with sender details.
func newReferenceNumber() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}
