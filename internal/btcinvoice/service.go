package btcinvoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/processor"
	"github.com/kwabenaio/sika/internal/transfer"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=btcinvoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByExternalID(ctx context.Context, kind processor.Kind, externalID string) (*Invoice, error)
	GetByTransfer(ctx context.Context, transferID uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, states []State) ([]*Invoice, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID) error

	// BeginReconcile opens a database transaction holding a row lock on the
	// invoice. Every balance or state change happens through it, so a
	// duplicate webhook delivery re-reads the already-updated row and
	// resolves as a no-op.
	BeginReconcile(ctx context.Context, invoiceID uuid.UUID) (ReconcileTx, error)
}

type ReconcileTx interface {
	Invoice() *Invoice
	HasPayment(ctx context.Context, inputTxHash string) (bool, error)
	Payments(ctx context.Context) ([]*Payment, error)
	AddPayment(ctx context.Context, p *Payment) error
	ConfirmPayment(ctx context.Context, inputTxHash string) error
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	MarkTransferPaid(ctx context.Context, transferID uuid.UUID, at time.Time) error
	MarkTransferInvalid(ctx context.Context, transferID uuid.UUID, at time.Time) error
	Commit() error
	Rollback() error
}

// Pricing gives access to the frozen pricing version a transfer was created
// under, for the fee component of the invoice total.
type Pricing interface {
	GetVersion(ctx context.Context, id uuid.UUID) (*pricing.Version, error)
	CurrentRates(ctx context.Context) (*pricing.RateSet, error)
}

// Transfers is the slice of the transfer service the cascade needs.
type Transfers interface {
	Get(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error)
}

type Service struct {
	repo        Repository
	processors  *processor.Service
	prices      Pricing
	transfers   Transfers
	notifier    transfer.Notifier
	callbackURL string
	timeout     time.Duration
}

func NewService(
	repo Repository,
	processors *processor.Service,
	prices Pricing,
	transfers Transfers,
	notifier transfer.Notifier,
	callbackURL string,
	timeout time.Duration,
) *Service {
	return &Service{
		repo:        repo,
		processors:  processors,
		prices:      prices,
		transfers:   transfers,
		notifier:    notifier,
		callbackURL: callbackURL,
		timeout:     timeout,
	}
}

// Initiate allocates a receiving address and BTC amount with the processor
// for the transfer's sent amount plus the fee from its frozen pricing
// version, then persists the invoice linked one-to-one to the transfer.
func (s *Service) Initiate(ctx context.Context, t *transfer.Transfer, kind processor.Kind) (*Invoice, error) {
	client, err := s.processors.Client(kind)
	if err != nil {
		return nil, err
	}

	// One invoice per transfer. Checked before the processor call so a
	// client retry does not mint a second collectible address; the unique
	// constraint on transfer_id closes the race.
	existing, err := s.repo.GetByTransfer(ctx, t.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrAlreadyInvoiced, existing.ID)
	}

	total, err := s.amountDue(ctx, t)
	if err != nil {
		return nil, err
	}

	res, err := client.CreateInvoice(ctx, processor.InvoiceRequest{
		Amount:      total,
		Currency:    string(t.SentCurrency),
		CallbackURL: fmt.Sprintf("%s/%s", s.callbackURL, kind),
	})
	if err != nil {
		slog.Error("processor invoice creation failed",
			"processor", kind, "transfer", t.ID, "error", err)

		return nil, fmt.Errorf("%w: %v", ErrPaymentProcessor, err)
	}

	now := time.Now().UTC()

	inv := &Invoice{
		TransferID: t.ID,
		Processor:  kind,
		InvoiceID:  res.InvoiceID,
		BTCAddress: res.BTCAddress,
		BTCRate:    res.BTCRate,
		BalanceDue: res.BTCAmount,
		State:      StateUnpaid,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.timeout),
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) amountDue(ctx context.Context, t *transfer.Transfer) (float64, error) {
	pv, err := s.prices.GetVersion(ctx, t.PricingID)
	if err != nil {
		return 0, fmt.Errorf("loading frozen pricing: %w", err)
	}

	if pv.Fee == 0 || pv.FeeCurrency == t.SentCurrency {
		return t.SentAmount + pv.Fee, nil
	}

	// Fee is denominated in another currency; bring it into the sent
	// currency through the current rate set.
	rs, err := s.prices.CurrentRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading rates for fee conversion: %w", err)
	}

	feeRate, ok := rs.Rate(pv.FeeCurrency)
	if !ok {
		return 0, fmt.Errorf("no exchange rate for fee currency %s", pv.FeeCurrency)
	}

	sentRate, ok := rs.Rate(t.SentCurrency)
	if !ok {
		return 0, fmt.Errorf("no exchange rate for %s", t.SentCurrency)
	}

	return t.SentAmount + pv.Fee/feeRate*sentRate, nil
}

// PaymentNotice is a verified, normalized payment notification.
type PaymentNotice struct {
	InputTxHash   string
	ForwardTxHash string
	Amount        float64
	ReceivedAt    time.Time
	Confirmed     bool
}

// RecordPayment applies one payment notification to an invoice.
//
// The whole step runs inside a single locked database transaction:
// duplicate deliveries of the same input transaction hash are detected
// against already-committed payments and dropped, so the balance is
// decremented exactly once per real payment.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, notice PaymentNotice) error {
	rtx, err := s.repo.BeginReconcile(ctx, invoiceID)
	if err != nil {
		return err
	}
	defer rtx.Rollback()

	inv := rtx.Invoice()

	seen, err := rtx.HasPayment(ctx, notice.InputTxHash)
	if err != nil {
		return err
	}

	if seen {
		// Processors redeliver the same transaction as confirmations
		// accumulate; only the confirmation flip is applied, never the
		// amount.
		if notice.Confirmed {
			if err := rtx.ConfirmPayment(ctx, notice.InputTxHash); err != nil {
				return err
			}

			if err := rtx.Commit(); err != nil {
				return fmt.Errorf("committing reconciliation: %w", err)
			}

			return nil
		}

		slog.Info("duplicate payment delivery ignored",
			"invoice", inv.ID, "input_tx", notice.InputTxHash)

		return nil
	}

	state := PaymentPending
	if notice.Confirmed {
		state = PaymentConfirmed
	}

	payment := &Payment{
		InvoiceID:     inv.ID,
		InputTxHash:   notice.InputTxHash,
		ForwardTxHash: notice.ForwardTxHash,
		Amount:        notice.Amount,
		ReceivedAt:    notice.ReceivedAt,
		State:         state,
	}

	if err := rtx.AddPayment(ctx, payment); err != nil {
		return err
	}

	if inv.State.Terminal() {
		// The payment is kept for the audit trail, but a closed invoice
		// never moves again and the transfer is never touched. Whatever
		// arrived here is a human's problem.
		if err := rtx.Commit(); err != nil {
			return fmt.Errorf("committing reconciliation: %w", err)
		}

		slog.Warn("payment recorded against closed invoice",
			"invoice", inv.ID, "state", inv.State,
			"input_tx", notice.InputTxHash, "amount", notice.Amount)

		return nil
	}

	if inv.Expired(notice.ReceivedAt) {
		// The committed rate is stale; never auto-accept, even a full
		// payment. A human reconciles from merchant review.
		inv.State = StateMerchantReview

		if err := rtx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}

		if err := rtx.MarkTransferInvalid(ctx, inv.TransferID, time.Now().UTC()); err != nil {
			return err
		}

		if err := rtx.Commit(); err != nil {
			return fmt.Errorf("committing reconciliation: %w", err)
		}

		slog.Warn("late payment routed to merchant review",
			"invoice", inv.ID, "input_tx", notice.InputTxHash,
			"amount", notice.Amount, "expired_at", inv.ExpiresAt)

		return nil
	}

	inv.BalanceDue -= notice.Amount

	becamePaid := false

	if inv.BalanceDue <= 0 {
		becamePaid = inv.State != StatePaid
		inv.State = StatePaid
	} else {
		inv.State = StateUnderpaid
	}

	if err := rtx.UpdateInvoice(ctx, inv); err != nil {
		return err
	}

	if becamePaid {
		if err := rtx.MarkTransferPaid(ctx, inv.TransferID, time.Now().UTC()); err != nil {
			return err
		}
	}

	if err := rtx.Commit(); err != nil {
		return fmt.Errorf("committing reconciliation: %w", err)
	}

	slog.Info("payment recorded",
		"invoice", inv.ID, "input_tx", notice.InputTxHash,
		"amount", notice.Amount, "balance_due", inv.BalanceDue, "state", inv.State)

	if becamePaid {
		s.notifyPaid(ctx, inv.TransferID)
	}

	return nil
}

func (s *Service) notifyPaid(ctx context.Context, transferID uuid.UUID) {
	t, err := s.transfers.Get(ctx, transferID)
	if err != nil {
		slog.Error("loading transfer for paid notification", "transfer", transferID, "error", err)
		return
	}

	s.notifier.TransferPaid(ctx, t)
}

// ConfirmPayment flips a payment to confirmed once the processor reports
// enough blockchain confirmations.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) error {
	return s.repo.ConfirmPayment(ctx, paymentID)
}

// ConfirmReadyToShip moves a settled invoice to ready-to-ship. The
// preconditions (nothing due, every payment confirmed) make it an
// idempotent no-op when not yet met, not an error.
func (s *Service) ConfirmReadyToShip(ctx context.Context, invoiceID uuid.UUID) error {
	rtx, err := s.repo.BeginReconcile(ctx, invoiceID)
	if err != nil {
		return err
	}
	defer rtx.Rollback()

	inv := rtx.Invoice()

	// Only a settled invoice ships; in particular an invoice parked in
	// merchant review stays there until an operator resolves it.
	if inv.State != StatePaid || inv.BalanceDue > 0 {
		return nil
	}

	payments, err := rtx.Payments(ctx)
	if err != nil {
		return err
	}

	for _, p := range payments {
		if p.State != PaymentConfirmed {
			return nil
		}
	}

	inv.State = StateReadyToShip

	if err := rtx.UpdateInvoice(ctx, inv); err != nil {
		return err
	}

	if err := rtx.Commit(); err != nil {
		return fmt.Errorf("committing ready-to-ship: %w", err)
	}

	return nil
}

// Invalidate is the operator resolution for an invoice that will never
// settle, typically out of merchant review. The transfer is invalidated
// with it; any collected BTC is refunded out of band.
func (s *Service) Invalidate(ctx context.Context, invoiceID uuid.UUID) error {
	rtx, err := s.repo.BeginReconcile(ctx, invoiceID)
	if err != nil {
		return err
	}
	defer rtx.Rollback()

	inv := rtx.Invoice()

	switch inv.State {
	case StateInvalid:
		return nil
	case StatePaid, StateReadyToShip:
		return fmt.Errorf("%w: %s invoice cannot be invalidated", ErrInvalidTransition, inv.State)
	}

	inv.State = StateInvalid

	if err := rtx.UpdateInvoice(ctx, inv); err != nil {
		return err
	}

	if err := rtx.MarkTransferInvalid(ctx, inv.TransferID, time.Now().UTC()); err != nil {
		return err
	}

	if err := rtx.Commit(); err != nil {
		return fmt.Errorf("committing invalidation: %w", err)
	}

	slog.Info("invoice invalidated", "invoice", inv.ID, "transfer", inv.TransferID)

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) GetByExternalID(ctx context.Context, kind processor.Kind, externalID string) (*Invoice, error) {
	return s.repo.GetByExternalID(ctx, kind, externalID)
}

func (s *Service) GetByTransfer(ctx context.Context, transferID uuid.UUID) (*Invoice, error) {
	return s.repo.GetByTransfer(ctx, transferID)
}

func (s *Service) List(ctx context.Context, states []State) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, states)
}
