package limit

import (
	"context"
	"fmt"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/validation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=limit
type Repository interface {
	CurrentVersion(ctx context.Context, site string) (*Version, error)
	CreateVersion(ctx context.Context, v *Version) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Current(ctx context.Context, site string) (*Version, error) {
	return s.repo.CurrentVersion(ctx, site)
}

type PublishParams struct {
	Site              string
	TransactionMin    float64
	TransactionMax    float64
	UserLimitBasic    float64
	UserLimitComplete float64
}

// Publish closes the open limit version for the site and opens a new one.
func (s *Service) Publish(ctx context.Context, params PublishParams) (*Version, error) {
	if params.Site == "" {
		return nil, validation.Errorf("site", "must not be empty")
	}

	if params.TransactionMin < 0 {
		return nil, validation.Errorf("transaction_min", "must not be negative, got %v", params.TransactionMin)
	}

	if params.TransactionMin >= params.TransactionMax {
		return nil, validation.Errorf("transaction_max", "must be greater than minimum %v, got %v",
			params.TransactionMin, params.TransactionMax)
	}

	if params.UserLimitBasic <= 0 || params.UserLimitComplete <= 0 {
		return nil, validation.Errorf("user_limit", "must be positive")
	}

	if params.UserLimitBasic > params.UserLimitComplete {
		return nil, validation.Errorf("user_limit_basic", "must not exceed the completed-profile limit")
	}

	v := &Version{
		Site:              params.Site,
		TransactionMin:    params.TransactionMin,
		TransactionMax:    params.TransactionMax,
		UserLimitBasic:    params.UserLimitBasic,
		UserLimitComplete: params.UserLimitComplete,
	}

	if err := s.repo.CreateVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("publishing limit version: %w", err)
	}

	return v, nil
}

// InCurrency derives a limit version into another currency.
//
// Base amounts are always converted at the markup-adjusted effective rate:
// that is the rate the customer actually transacts at, so limits stated in a
// foreign currency line up with what a transfer of that size would cost.
func InCurrency(lv *Version, p *pricing.Version, rs *pricing.RateSet, currency pricing.Currency) (*Limits, error) {
	rate := 1.0

	if currency != pricing.Base {
		effective, err := pricing.EffectiveRate(p, rs, currency)
		if err != nil {
			return nil, err
		}

		rate = effective
	}

	return &Limits{
		Currency:          currency,
		TransactionMin:    lv.TransactionMin * rate,
		TransactionMax:    lv.TransactionMax * rate,
		UserLimitBasic:    lv.UserLimitBasic * rate,
		UserLimitComplete: lv.UserLimitComplete * rate,
	}, nil
}
