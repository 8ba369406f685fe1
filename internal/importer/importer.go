package importer

import (
	"io"

	"github.com/kwabenaio/sika/internal/pricing"
)

type Provider string

const (
	ProviderTreasury Provider = "treasury"
)

// Importer turns an uploaded rate sheet into per-currency rates against the
// base currency.
type Importer interface {
	Parse(r io.Reader) (map[pricing.Currency]float64, error)
}
