package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/profile"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	query := `
		SELECT user_id, full_name, date_of_birth, address, city, postal_code,
		       country, phone, level, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p profile.Profile

	var level string

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.FullName, &p.DateOfBirth, &p.Address, &p.City,
		&p.PostalCode, &p.Country, &p.Phone, &level, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, profile.ErrNotFound
		}

		return nil, fmt.Errorf("getting profile: %w", err)
	}

	p.Level = profile.Level(level)

	return &p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (user_id, full_name, date_of_birth, address, city,
			postal_code, country, phone, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country,
			phone = EXCLUDED.phone,
			updated_at = NOW()
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		p.UserID, p.FullName, p.DateOfBirth, p.Address, p.City,
		p.PostalCode, p.Country, p.Phone, string(p.Level),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}

	return nil
}

func (s *Store) UpdateLevel(ctx context.Context, userID uuid.UUID, level profile.Level) error {
	query := `
		UPDATE profiles
		SET level = $1, updated_at = NOW()
		WHERE user_id = $2
	`

	_, err := s.db.ExecContext(ctx, query, string(level), userID)
	if err != nil {
		return fmt.Errorf("updating profile level: %w", err)
	}

	return nil
}
