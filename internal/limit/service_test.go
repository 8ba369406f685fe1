package limit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kwabenaio/sika/internal/limit"
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/validation"
)

func TestService_Publish(t *testing.T) {
	valid := limit.PublishParams{
		Site:              "gh",
		TransactionMin:    5,
		TransactionMax:    1000,
		UserLimitBasic:    500,
		UserLimitComplete: 3000,
	}

	type testCase struct {
		name      string
		mutate    func(p *limit.PublishParams)
		setupMock func(m *limit.MockRepository)
		wantField string
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *limit.MockRepository) {
				m.EXPECT().
					CreateVersion(gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name:      "MinAboveMax",
			mutate:    func(p *limit.PublishParams) { p.TransactionMin = 2000 },
			wantField: "transaction_max",
		},
		{
			name:      "NegativeMin",
			mutate:    func(p *limit.PublishParams) { p.TransactionMin = -1 },
			wantField: "transaction_min",
		},
		{
			name:      "BasicAboveComplete",
			mutate:    func(p *limit.PublishParams) { p.UserLimitBasic = 5000 },
			wantField: "user_limit_basic",
		},
		{
			name:      "EmptySite",
			mutate:    func(p *limit.PublishParams) { p.Site = "" },
			wantField: "site",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := limit.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			params := valid
			if tt.mutate != nil {
				tt.mutate(&params)
			}

			svc := limit.NewService(repo)
			got, err := svc.Publish(context.Background(), params)

			if tt.wantField != "" {
				var verr *validation.Error
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, params.Site, got.Site)
		})
	}
}

func TestInCurrency(t *testing.T) {
	lv := &limit.Version{
		Site:              "gh",
		TransactionMin:    5,
		TransactionMax:    1000,
		UserLimitBasic:    500,
		UserLimitComplete: 3000,
	}

	p := &pricing.Version{Site: "gh", Markup: 0.03}
	rs := &pricing.RateSet{Rates: map[pricing.Currency]float64{pricing.GHS: 5.3}}

	t.Run("BaseCurrencyIdentity", func(t *testing.T) {
		got, err := limit.InCurrency(lv, p, rs, pricing.GBP)
		require.NoError(t, err)
		assert.InDelta(t, 5, got.TransactionMin, 1e-9)
		assert.InDelta(t, 1000, got.TransactionMax, 1e-9)
	})

	t.Run("EffectiveRateApplied", func(t *testing.T) {
		got, err := limit.InCurrency(lv, p, rs, pricing.GHS)
		require.NoError(t, err)

		// 5.3 * 0.97 = 5.141 per base unit.
		assert.InDelta(t, 5*5.141, got.TransactionMin, 1e-9)
		assert.InDelta(t, 1000*5.141, got.TransactionMax, 1e-9)
		assert.InDelta(t, 500*5.141, got.UserLimitBasic, 1e-9)
		assert.InDelta(t, 3000*5.141, got.UserLimitComplete, 1e-9)
	})

	t.Run("UnknownCurrency", func(t *testing.T) {
		_, err := limit.InCurrency(lv, p, rs, pricing.Currency("XXX"))
		assert.Error(t, err)
	})
}
