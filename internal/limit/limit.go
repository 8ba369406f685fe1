package limit

import (
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/versioned"
)

// Version is one effective-dated set of sending limits for a site, all
// denominated in the base currency. Limits in other currencies are derived
// on read, never stored.
type Version struct {
	versioned.Record
	Site              string
	TransactionMin    float64
	TransactionMax    float64
	UserLimitBasic    float64
	UserLimitComplete float64
}

// Limits is a limit version expressed in a specific currency.
type Limits struct {
	Currency          pricing.Currency
	TransactionMin    float64
	TransactionMax    float64
	UserLimitBasic    float64
	UserLimitComplete float64
}
