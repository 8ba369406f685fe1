package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/validation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=pricing
type Repository interface {
	CurrentVersion(ctx context.Context, site string) (*Version, error)
	CurrentRateSet(ctx context.Context) (*RateSet, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*Version, error)
	CreateVersion(ctx context.Context, v *Version) error
	CreateRateSet(ctx context.Context, rs *RateSet) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Current returns the open pricing version for a site. Staleness is the
// caller's concern: transfers snapshot the version they were created under
// and never re-read it.
func (s *Service) Current(ctx context.Context, site string) (*Version, error) {
	return s.repo.CurrentVersion(ctx, site)
}

func (s *Service) CurrentRates(ctx context.Context) (*RateSet, error) {
	return s.repo.CurrentRateSet(ctx)
}

// GetVersion loads a specific, possibly closed, pricing version. Transfers
// hold a frozen reference to the version they were created under.
func (s *Service) GetVersion(ctx context.Context, id uuid.UUID) (*Version, error) {
	return s.repo.GetVersion(ctx, id)
}

type PublishParams struct {
	Site        string
	Markup      float64
	Fee         float64
	FeeCurrency Currency
}

// Publish closes the open pricing version for the site and opens a new one.
func (s *Service) Publish(ctx context.Context, params PublishParams) (*Version, error) {
	if params.Site == "" {
		return nil, validation.Errorf("site", "must not be empty")
	}

	if params.Markup < 0 || params.Markup > 1 {
		return nil, validation.Errorf("markup", "must be between 0 and 1, got %v", params.Markup)
	}

	if params.Fee < 0 {
		return nil, validation.Errorf("fee", "must not be negative, got %v", params.Fee)
	}

	v := &Version{
		Site:        params.Site,
		Markup:      params.Markup,
		Fee:         params.Fee,
		FeeCurrency: params.FeeCurrency,
	}

	if err := s.repo.CreateVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("publishing pricing version: %w", err)
	}

	return v, nil
}

// PublishRates closes the open global rate set and opens a new one.
func (s *Service) PublishRates(ctx context.Context, rates map[Currency]float64) (*RateSet, error) {
	if len(rates) == 0 {
		return nil, validation.Errorf("rates", "must not be empty")
	}

	for c, r := range rates {
		if r <= 0 {
			return nil, validation.Errorf("rates", "rate for %s must be positive, got %v", c, r)
		}
	}

	rs := &RateSet{Rates: rates}

	if err := s.repo.CreateRateSet(ctx, rs); err != nil {
		return nil, fmt.Errorf("publishing rate set: %w", err)
	}

	return rs, nil
}

// Quote is the public price preview: the effective rate, the fee, and the
// payout for the given amount, computed against the current versions.
type Quote struct {
	EffectiveRate  float64
	Fee            float64
	FeeCurrency    Currency
	ReceivedAmount float64
}

func (s *Service) Quote(ctx context.Context, site string, sentAmount float64, sentCurrency, dest Currency) (*Quote, error) {
	v, err := s.repo.CurrentVersion(ctx, site)
	if err != nil {
		return nil, err
	}

	rs, err := s.repo.CurrentRateSet(ctx)
	if err != nil {
		return nil, err
	}

	effective, err := EffectiveRate(v, rs, dest)
	if err != nil {
		return nil, err
	}

	received, err := ReceivedAmount(v, rs, sentAmount, sentCurrency, dest)
	if err != nil {
		return nil, err
	}

	return &Quote{
		EffectiveRate:  effective,
		Fee:            v.Fee,
		FeeCurrency:    v.FeeCurrency,
		ReceivedAmount: received,
	}, nil
}
