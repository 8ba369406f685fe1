package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/transfer"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransferColumns = `
	id, sender, recipient_name, recipient_phone, recipient_country,
	pricing_id, sent_amount, sent_currency, received_amount, received_currency,
	receiving_country, reference_number, state,
	created_at, paid_at, processed_at, invalidated_at, cancelled_at
`

func scanTransfer(s scanner) (*transfer.Transfer, error) {
	var t transfer.Transfer

	var sentCur, receivedCur, state string

	if err := s.Scan(
		&t.ID, &t.Sender, &t.Recipient.Name, &t.Recipient.Phone, &t.Recipient.Country,
		&t.PricingID, &t.SentAmount, &sentCur, &t.ReceivedAmount, &receivedCur,
		&t.ReceivingCountry, &t.ReferenceNumber, &state,
		&t.CreatedAt, &t.PaidAt, &t.ProcessedAt, &t.InvalidatedAt, &t.CancelledAt,
	); err != nil {
		return nil, err
	}

	t.SentCurrency = pricing.Currency(sentCur)
	t.ReceivedCurrency = pricing.Currency(receivedCur)
	t.State = transfer.State(state)

	return &t, nil
}

func (s *Store) CreateTransfer(ctx context.Context, t *transfer.Transfer) error {
	query := `
		INSERT INTO transfers (sender, recipient_name, recipient_phone, recipient_country,
			pricing_id, sent_amount, sent_currency, received_amount, received_currency,
			receiving_country, reference_number, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		t.Sender, t.Recipient.Name, t.Recipient.Phone, t.Recipient.Country,
		t.PricingID, t.SentAmount, string(t.SentCurrency), t.ReceivedAmount,
		string(t.ReceivedCurrency), t.ReceivingCountry, t.ReferenceNumber, string(t.State),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transfer: %w", err)
	}

	return nil
}

func (s *Store) GetTransfer(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `SELECT ` + selectTransferColumns + ` FROM transfers WHERE id = $1`

	t, err := scanTransfer(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transfer.ErrNotFound
		}

		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	return t, nil
}

func (s *Store) ListTransfers(ctx context.Context, filter transfer.ListFilter) ([]*transfer.Transfer, error) {
	query := `SELECT ` + selectTransferColumns + ` FROM transfers WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argIdx)

		args = append(args, string(*filter.State))
		argIdx++
	}

	if filter.Sender != nil {
		query += fmt.Sprintf(" AND sender = $%d", argIdx)

		args = append(args, *filter.Sender)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var ts []*transfer.Transfer

	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}

		ts = append(ts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transfer rows: %w", err)
	}

	return ts, nil
}

// UpdateRecipient only ever touches recipient columns; the pricing reference
// is immutable and has no update path at the SQL level.
func (s *Store) UpdateRecipient(ctx context.Context, id uuid.UUID, r transfer.Recipient) error {
	query := `
		UPDATE transfers
		SET recipient_name = $1, recipient_phone = $2, recipient_country = $3
		WHERE id = $4
	`

	_, err := s.db.ExecContext(ctx, query, r.Name, r.Phone, r.Country, id)
	if err != nil {
		return fmt.Errorf("updating recipient: %w", err)
	}

	return nil
}

// stampColumns maps a target state to the timestamp column it sets.
var stampColumns = map[transfer.State]string{
	transfer.StatePaid:      "paid_at",
	transfer.StateProcessed: "processed_at",
	transfer.StateInvalid:   "invalidated_at",
	transfer.StateCancelled: "cancelled_at",
}

// TransitionState performs a compare-and-swap: the UPDATE only applies when
// the current state is one of the allowed source states, so a concurrent
// transition that got there first makes this one fail cleanly.
func (s *Store) TransitionState(ctx context.Context, id uuid.UUID, from []transfer.State, to transfer.State, at time.Time) error {
	col, ok := stampColumns[to]
	if !ok {
		return fmt.Errorf("no timestamp column for state %s", to)
	}

	query := fmt.Sprintf("UPDATE transfers SET state = $1, %s = $2 WHERE id = $3 AND state IN (", col)

	args := []any{string(to), at, id}

	for i, st := range from {
		if i > 0 {
			query += ", "
		}

		query += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, string(st))
	}

	query += ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transitioning transfer state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transitioning transfer state: %w", err)
	}

	if n == 0 {
		if _, err := s.GetTransfer(ctx, id); err != nil {
			return err
		}

		return transfer.ErrInvalidTransition
	}

	return nil
}
