package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/versioned"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CurrentVersion(ctx context.Context, site string) (*pricing.Version, error) {
	query := `
		SELECT id, site, markup, fee, fee_currency, start_at, end_at
		FROM pricing_versions
		WHERE site = $1 AND end_at IS NULL
	`

	var v pricing.Version

	var feeCurrency string

	err := s.db.QueryRowContext(ctx, query, site).Scan(
		&v.ID, &v.Site, &v.Markup, &v.Fee, &feeCurrency, &v.Start, &v.End,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, versioned.ErrNoCurrentRecord
		}

		return nil, fmt.Errorf("getting current pricing version: %w", err)
	}

	v.FeeCurrency = pricing.Currency(feeCurrency)

	return &v, nil
}

func (s *Store) CurrentRateSet(ctx context.Context) (*pricing.RateSet, error) {
	query := `
		SELECT id, rates, start_at, end_at
		FROM exchange_rate_sets
		WHERE end_at IS NULL
	`

	var rs pricing.RateSet

	var raw []byte

	err := s.db.QueryRowContext(ctx, query).Scan(&rs.ID, &raw, &rs.Start, &rs.End)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, versioned.ErrNoCurrentRecord
		}

		return nil, fmt.Errorf("getting current rate set: %w", err)
	}

	if err := json.Unmarshal(raw, &rs.Rates); err != nil {
		return nil, fmt.Errorf("decoding rates: %w", err)
	}

	return &rs, nil
}

// CreateVersion closes the open version for the site and inserts the new one
// in a single database transaction, so at most one row per site is ever open.
func (s *Store) CreateVersion(ctx context.Context, v *pricing.Version) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if err := versioned.CloseOpen(ctx, tx, "pricing_versions", &v.Site, now); err != nil {
		return err
	}

	query := `
		INSERT INTO pricing_versions (site, markup, fee, fee_currency, start_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, start_at
	`

	err = tx.QueryRowContext(ctx, query,
		v.Site, v.Markup, v.Fee, string(v.FeeCurrency), now,
	).Scan(&v.ID, &v.Start)
	if err != nil {
		return fmt.Errorf("creating pricing version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) CreateRateSet(ctx context.Context, rs *pricing.RateSet) error {
	raw, err := json.Marshal(rs.Rates)
	if err != nil {
		return fmt.Errorf("encoding rates: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if err := versioned.CloseOpen(ctx, tx, "exchange_rate_sets", nil, now); err != nil {
		return err
	}

	query := `
		INSERT INTO exchange_rate_sets (rates, start_at)
		VALUES ($1, $2)
		RETURNING id, start_at
	`

	if err := tx.QueryRowContext(ctx, query, raw, now).Scan(&rs.ID, &rs.Start); err != nil {
		return fmt.Errorf("creating rate set: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetVersion loads a specific (possibly closed) pricing version. Transfers
// hold a frozen reference, so closed versions are still read.
func (s *Store) GetVersion(ctx context.Context, id uuid.UUID) (*pricing.Version, error) {
	query := `
		SELECT id, site, markup, fee, fee_currency, start_at, end_at
		FROM pricing_versions
		WHERE id = $1
	`

	var v pricing.Version

	var feeCurrency string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Site, &v.Markup, &v.Fee, &feeCurrency, &v.Start, &v.End,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, pricing.ErrNotFound
		}

		return nil, fmt.Errorf("getting pricing version: %w", err)
	}

	v.FeeCurrency = pricing.Currency(feeCurrency)

	return &v, nil
}
