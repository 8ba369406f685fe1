package pricing

import (
	"fmt"
	"math"
)

// roundsToTen lists destination currencies that pay out in multiples of 10.
// Everything else rounds up to the nearest 0.1 unit. Rounding is always
// upward so float truncation can never short the recipient; the bounded
// rounding loss is absorbed by the operator.
var roundsToTen = map[Currency]bool{
	GHS: true,
}

// EffectiveRate is the raw base→dest rate with the house markup taken off.
func EffectiveRate(p *Version, rs *RateSet, dest Currency) (float64, error) {
	raw, ok := rs.Rate(dest)
	if !ok {
		return 0, fmt.Errorf("no exchange rate for %s", dest)
	}

	return raw * (1 - p.Markup), nil
}

// ReceivedAmount computes the payout for a transfer funded with sentAmount of
// sentCurrency and delivered in dest:
//
//  1. convert sentAmount to base (rates are target-per-base, so dividing by
//     the base→sent rate converts back to base),
//  2. convert base to dest at the markup-adjusted rate,
//  3. round up to the destination currency's payout unit.
func ReceivedAmount(p *Version, rs *RateSet, sentAmount float64, sentCurrency, dest Currency) (float64, error) {
	if sentAmount < 0 {
		return 0, fmt.Errorf("negative sent amount %v", sentAmount)
	}

	baseAmount := sentAmount

	if sentCurrency != Base {
		rate, ok := rs.Rate(sentCurrency)
		if !ok {
			return 0, fmt.Errorf("no exchange rate for %s", sentCurrency)
		}

		baseAmount = sentAmount / rate
	}

	effective, err := EffectiveRate(p, rs, dest)
	if err != nil {
		return 0, err
	}

	return roundUp(baseAmount*effective, dest), nil
}

func roundUp(amount float64, dest Currency) float64 {
	if roundsToTen[dest] {
		return math.Ceil(amount/10) * 10
	}

	return math.Ceil(amount*10) / 10
}
