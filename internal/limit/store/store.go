package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kwabenaio/sika/internal/limit"
	"github.com/kwabenaio/sika/internal/versioned"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CurrentVersion(ctx context.Context, site string) (*limit.Version, error) {
	query := `
		SELECT id, site, transaction_min, transaction_max,
		       user_limit_basic, user_limit_complete, start_at, end_at
		FROM limit_versions
		WHERE site = $1 AND end_at IS NULL
	`

	var v limit.Version

	err := s.db.QueryRowContext(ctx, query, site).Scan(
		&v.ID, &v.Site, &v.TransactionMin, &v.TransactionMax,
		&v.UserLimitBasic, &v.UserLimitComplete, &v.Start, &v.End,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, versioned.ErrNoCurrentRecord
		}

		return nil, fmt.Errorf("getting current limit version: %w", err)
	}

	return &v, nil
}

// CreateVersion closes the open version for the site and inserts the new one
// atomically.
func (s *Store) CreateVersion(ctx context.Context, v *limit.Version) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if err := versioned.CloseOpen(ctx, tx, "limit_versions", &v.Site, now); err != nil {
		return err
	}

	query := `
		INSERT INTO limit_versions (site, transaction_min, transaction_max,
			user_limit_basic, user_limit_complete, start_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, start_at
	`

	err = tx.QueryRowContext(ctx, query,
		v.Site, v.TransactionMin, v.TransactionMax,
		v.UserLimitBasic, v.UserLimitComplete, now,
	).Scan(&v.ID, &v.Start)
	if err != nil {
		return fmt.Errorf("creating limit version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
