package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kwabenaio/sika/internal/btcinvoice"
	"github.com/kwabenaio/sika/internal/processor"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectInvoiceColumns = `
	id, transfer_id, processor, external_id, btc_address, btc_rate,
	balance_due, state, created_at, expires_at
`

func scanInvoice(s scanner) (*btcinvoice.Invoice, error) {
	var inv btcinvoice.Invoice

	var kind, state string

	if err := s.Scan(
		&inv.ID, &inv.TransferID, &kind, &inv.InvoiceID, &inv.BTCAddress,
		&inv.BTCRate, &inv.BalanceDue, &state, &inv.CreatedAt, &inv.ExpiresAt,
	); err != nil {
		return nil, err
	}

	inv.Processor = processor.Kind(kind)
	inv.State = btcinvoice.State(state)

	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *btcinvoice.Invoice) error {
	query := `
		INSERT INTO btc_invoices (transfer_id, processor, external_id, btc_address,
			btc_rate, balance_due, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		inv.TransferID, string(inv.Processor), inv.InvoiceID, inv.BTCAddress,
		inv.BTCRate, inv.BalanceDue, string(inv.State), inv.CreatedAt, inv.ExpiresAt,
	).Scan(&inv.ID)
	if err != nil {
		// Two concurrent Initiate calls race past the service-level
		// lookup; the unique constraint on transfer_id decides.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
			strings.Contains(pgErr.ConstraintName, "transfer_id") {
			return btcinvoice.ErrAlreadyInvoiced
		}

		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*btcinvoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM btc_invoices WHERE id = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, btcinvoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) GetByExternalID(ctx context.Context, kind processor.Kind, externalID string) (*btcinvoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM btc_invoices WHERE processor = $1 AND external_id = $2`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, string(kind), externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, btcinvoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice by external id: %w", err)
	}

	return inv, nil
}

func (s *Store) GetByTransfer(ctx context.Context, transferID uuid.UUID) (*btcinvoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM btc_invoices WHERE transfer_id = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, transferID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, btcinvoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice by transfer: %w", err)
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, states []btcinvoice.State) ([]*btcinvoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM btc_invoices`

	var args []any

	if len(states) > 0 {
		query += " WHERE state IN ("

		for i, st := range states {
			if i > 0 {
				query += ", "
			}

			query += fmt.Sprintf("$%d", i+1)
			args = append(args, string(st))
		}

		query += ")"
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invs []*btcinvoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return invs, nil
}

func (s *Store) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) error {
	query := `
		UPDATE btc_payments
		SET state = $1
		WHERE id = $2 AND state = $3
	`

	_, err := s.db.ExecContext(ctx, query,
		string(btcinvoice.PaymentConfirmed), paymentID, string(btcinvoice.PaymentPending))
	if err != nil {
		return fmt.Errorf("confirming payment: %w", err)
	}

	return nil
}

type reconcileTx struct {
	tx  *sql.Tx
	inv *btcinvoice.Invoice
}

// BeginReconcile opens a transaction and locks the invoice row so a
// concurrent callback for the same invoice waits and then sees the updated
// balance and payment set.
func (s *Store) BeginReconcile(ctx context.Context, invoiceID uuid.UUID) (btcinvoice.ReconcileTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning reconcile tx: %w", err)
	}

	query := `SELECT ` + selectInvoiceColumns + ` FROM btc_invoices WHERE id = $1 FOR UPDATE`

	inv, err := scanInvoice(tx.QueryRowContext(ctx, query, invoiceID))
	if err != nil {
		tx.Rollback()

		if err == sql.ErrNoRows {
			return nil, btcinvoice.ErrNotFound
		}

		return nil, fmt.Errorf("locking invoice: %w", err)
	}

	return &reconcileTx{tx: tx, inv: inv}, nil
}

func (r *reconcileTx) Invoice() *btcinvoice.Invoice { return r.inv }
func (r *reconcileTx) Commit() error                { return r.tx.Commit() }
func (r *reconcileTx) Rollback() error              { return r.tx.Rollback() }

func (r *reconcileTx) HasPayment(ctx context.Context, inputTxHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM btc_payments WHERE invoice_id = $1 AND input_tx_hash = $2)`

	var exists bool
	if err := r.tx.QueryRowContext(ctx, query, r.inv.ID, inputTxHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for duplicate payment: %w", err)
	}

	return exists, nil
}

func (r *reconcileTx) Payments(ctx context.Context) ([]*btcinvoice.Payment, error) {
	query := `
		SELECT id, invoice_id, input_tx_hash, forward_tx_hash, amount, received_at, state
		FROM btc_payments
		WHERE invoice_id = $1
		ORDER BY received_at ASC
	`

	rows, err := r.tx.QueryContext(ctx, query, r.inv.ID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []*btcinvoice.Payment

	for rows.Next() {
		var p btcinvoice.Payment

		var state string

		if err := rows.Scan(
			&p.ID, &p.InvoiceID, &p.InputTxHash, &p.ForwardTxHash,
			&p.Amount, &p.ReceivedAt, &state,
		); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}

		p.State = btcinvoice.PaymentState(state)
		payments = append(payments, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment rows: %w", err)
	}

	return payments, nil
}

func (r *reconcileTx) AddPayment(ctx context.Context, p *btcinvoice.Payment) error {
	query := `
		INSERT INTO btc_payments (invoice_id, input_tx_hash, forward_tx_hash, amount, received_at, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.tx.QueryRowContext(ctx, query,
		p.InvoiceID, p.InputTxHash, p.ForwardTxHash, p.Amount, p.ReceivedAt, string(p.State),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("adding payment: %w", err)
	}

	return nil
}

func (r *reconcileTx) ConfirmPayment(ctx context.Context, inputTxHash string) error {
	query := `
		UPDATE btc_payments
		SET state = $1
		WHERE invoice_id = $2 AND input_tx_hash = $3 AND state = $4
	`

	_, err := r.tx.ExecContext(ctx, query,
		string(btcinvoice.PaymentConfirmed), r.inv.ID, inputTxHash, string(btcinvoice.PaymentPending))
	if err != nil {
		return fmt.Errorf("confirming payment: %w", err)
	}

	return nil
}

func (r *reconcileTx) UpdateInvoice(ctx context.Context, inv *btcinvoice.Invoice) error {
	query := `
		UPDATE btc_invoices
		SET balance_due = $1, state = $2
		WHERE id = $3
	`

	_, err := r.tx.ExecContext(ctx, query, inv.BalanceDue, string(inv.State), inv.ID)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	return nil
}

// MarkTransferPaid cascades the paid transition inside the reconcile
// transaction. The compare-and-swap means an already-paid transfer is left
// untouched.
func (r *reconcileTx) MarkTransferPaid(ctx context.Context, transferID uuid.UUID, at time.Time) error {
	query := `
		UPDATE transfers
		SET state = 'paid', paid_at = $1
		WHERE id = $2 AND state = 'init'
	`

	if _, err := r.tx.ExecContext(ctx, query, at, transferID); err != nil {
		return fmt.Errorf("marking transfer paid: %w", err)
	}

	return nil
}

func (r *reconcileTx) MarkTransferInvalid(ctx context.Context, transferID uuid.UUID, at time.Time) error {
	query := `
		UPDATE transfers
		SET state = 'invalid', invalidated_at = $1
		WHERE id = $2 AND state IN ('init', 'paid')
	`

	if _, err := r.tx.ExecContext(ctx, query, at, transferID); err != nil {
		return fmt.Errorf("marking transfer invalid: %w", err)
	}

	return nil
}
