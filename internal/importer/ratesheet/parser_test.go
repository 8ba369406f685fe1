package ratesheet_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/importer/ratesheet"
	"github.com/kwabenaio/sika/internal/pricing"
)

func TestParserDailySheet(t *testing.T) {
	input := strings.Join([]string{
		"Treasury Daily Rates",
		"As of 2026-08-28",
		"",
		"Currency,Rate",
		"GHS,5.30",
		"SLL,\"7,050\"",
		"USD,1.60",
		"",
		"Indicative only",
	}, "\n")

	rates, err := ratesheet.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, rates, 3)
	assert.InDelta(t, 5.3, rates[pricing.GHS], 1e-9)
	assert.InDelta(t, 7050, rates[pricing.SLL], 1e-9)
	assert.InDelta(t, 1.6, rates[pricing.USD], 1e-9)
}

func TestParserDealingSheetUsesSellSide(t *testing.T) {
	input := strings.Join([]string{
		"Currency,Buy,Sell",
		"GHS,5.25,5.30",
		"USD,1.58,1.60",
	}, "\n")

	rates, err := ratesheet.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.InDelta(t, 5.3, rates[pricing.GHS], 1e-9)
	assert.InDelta(t, 1.6, rates[pricing.USD], 1e-9)
}

func TestParserSkipsBaseCurrencyRow(t *testing.T) {
	input := strings.Join([]string{
		"Currency,Rate",
		"GBP,1.00",
		"GHS,5.30",
	}, "\n")

	rates, err := ratesheet.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, rates, 1)
	_, hasBase := rates[pricing.GBP]
	assert.False(t, hasBase)
}

func TestParserEuropeanDecimals(t *testing.T) {
	input := strings.Join([]string{
		"ISO Code,Mid Rate",
		"SLL,\"7.050,50\"",
	}, "\n")

	rates, err := ratesheet.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.InDelta(t, 7050.50, rates[pricing.SLL], 1e-9)
}

func TestParserRejectsBadSheets(t *testing.T) {
	tests := map[string]string{
		"NoHeader":        "just,some,cells\n1,2,3\n",
		"NonPositiveRate": "Currency,Rate\nGHS,-5.30\n",
		"DuplicateRow":    "Currency,Rate\nGHS,5.30\nGHS,5.40\n",
		"OnlyFooters":     "Currency,Rate\n\nIndicative only\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ratesheet.NewParser().Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
