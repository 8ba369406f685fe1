package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=profile
type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	UpdateLevel(ctx context.Context, userID uuid.UUID, level Level) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *Service) Save(ctx context.Context, p *Profile) error {
	if p.Level == "" {
		p.Level = LevelBasic
	}

	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}

	return nil
}

// Promote bumps a sender to the completed-verification tier after their
// documents have been reviewed.
func (s *Service) Promote(ctx context.Context, userID uuid.UUID) error {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if !p.Complete() {
		return fmt.Errorf("profile %s is missing required fields", userID)
	}

	return s.repo.UpdateLevel(ctx, userID, LevelComplete)
}
