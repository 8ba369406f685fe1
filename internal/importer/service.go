package importer

import (
	"fmt"
	"io"

	"github.com/kwabenaio/sika/internal/importer/ratesheet"
	"github.com/kwabenaio/sika/internal/pricing"
)

type Service struct {
	treasuryImporter Importer
}

func NewService() *Service {
	return &Service{
		treasuryImporter: ratesheet.NewParser(),
	}
}

func (s *Service) Import(provider Provider, r io.Reader) (map[pricing.Currency]float64, error) {
	var importer Importer

	switch provider {
	case ProviderTreasury:
		importer = s.treasuryImporter
	default:
		return nil, fmt.Errorf("unknown rate provider: %s", provider)
	}

	return importer.Parse(r)
}
