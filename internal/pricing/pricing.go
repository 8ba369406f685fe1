package pricing

import (
	"errors"

	"github.com/kwabenaio/sika/internal/versioned"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	GBP Currency = "GBP"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GHS Currency = "GHS"
	SLL Currency = "SLL"
)

// Base is the currency all exchange rates are quoted against: a rate is the
// number of target units per 1 base unit, pre-markup.
const Base = GBP

var ErrNotFound = errors.New("pricing version not found")

// Version is one effective-dated pricing record for a site. Once a transfer
// snapshots it, it is read-only history.
type Version struct {
	versioned.Record
	Site        string
	Markup      float64 // fraction of the raw rate kept as house margin, 0..1
	Fee         float64
	FeeCurrency Currency
}

// RateSet is the global effective-dated exchange-rate record.
type RateSet struct {
	versioned.Record
	Rates map[Currency]float64
}

// Rate returns units of c per 1 base unit.
func (rs *RateSet) Rate(c Currency) (float64, bool) {
	if c == Base {
		return 1, true
	}

	r, ok := rs.Rates[c]

	return r, ok
}
