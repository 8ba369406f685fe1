package pricing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/validation"
)

func TestService_Publish(t *testing.T) {
	type testCase struct {
		name      string
		params    pricing.PublishParams
		setupMock func(m *pricing.MockRepository)
		wantErr   bool
		wantField string
	}

	tests := []testCase{
		{
			name: "Success",
			params: pricing.PublishParams{
				Site:        "gh",
				Markup:      0.03,
				Fee:         1.5,
				FeeCurrency: pricing.GBP,
			},
			setupMock: func(m *pricing.MockRepository) {
				m.EXPECT().
					CreateVersion(gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "MarkupAboveOne",
			params: pricing.PublishParams{
				Site:   "gh",
				Markup: 1.5,
			},
			wantErr:   true,
			wantField: "markup",
		},
		{
			name: "NegativeMarkup",
			params: pricing.PublishParams{
				Site:   "gh",
				Markup: -0.01,
			},
			wantErr:   true,
			wantField: "markup",
		},
		{
			name: "NegativeFee",
			params: pricing.PublishParams{
				Site: "gh",
				Fee:  -1,
			},
			wantErr:   true,
			wantField: "fee",
		},
		{
			name:      "EmptySite",
			params:    pricing.PublishParams{Markup: 0.03},
			wantErr:   true,
			wantField: "site",
		},
		{
			name: "RepoError",
			params: pricing.PublishParams{
				Site:        "gh",
				Markup:      0.03,
				FeeCurrency: pricing.GBP,
			},
			setupMock: func(m *pricing.MockRepository) {
				m.EXPECT().
					CreateVersion(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := pricing.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := pricing.NewService(repo)
			got, err := svc.Publish(context.Background(), tt.params)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)

				if tt.wantField != "" {
					var verr *validation.Error
					require.ErrorAs(t, err, &verr)
					assert.Equal(t, tt.wantField, verr.Field)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.params.Markup, got.Markup)
			assert.Equal(t, tt.params.Site, got.Site)
		})
	}
}

func TestService_PublishRates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := pricing.NewMockRepository(ctrl)
	svc := pricing.NewService(repo)

	t.Run("RejectsEmpty", func(t *testing.T) {
		_, err := svc.PublishRates(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("RejectsNonPositiveRate", func(t *testing.T) {
		_, err := svc.PublishRates(context.Background(), map[pricing.Currency]float64{
			pricing.GHS: 0,
		})

		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "rates", verr.Field)
	})

	t.Run("Success", func(t *testing.T) {
		repo.EXPECT().
			CreateRateSet(gomock.Any(), gomock.Any()).
			Return(nil)

		rs, err := svc.PublishRates(context.Background(), map[pricing.Currency]float64{
			pricing.GHS: 5.3,
			pricing.SLL: 7050,
		})
		require.NoError(t, err)
		assert.Len(t, rs.Rates, 2)
	})
}

func TestService_Quote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := pricing.NewMockRepository(ctrl)
	svc := pricing.NewService(repo)

	version := &pricing.Version{Site: "gh", Markup: 0.03, Fee: 1.5, FeeCurrency: pricing.GBP}

	repo.EXPECT().CurrentVersion(gomock.Any(), "gh").Return(version, nil)
	repo.EXPECT().CurrentRateSet(gomock.Any()).Return(testRates(), nil)

	q, err := svc.Quote(context.Background(), "gh", 100, pricing.GBP, pricing.GHS)
	require.NoError(t, err)
	assert.InDelta(t, 5.141, q.EffectiveRate, 1e-9)
	assert.InDelta(t, 520, q.ReceivedAmount, 1e-9)
	assert.InDelta(t, 1.5, q.Fee, 1e-9)
	assert.Equal(t, pricing.GBP, q.FeeCurrency)
}
