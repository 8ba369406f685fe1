package ratesheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	enc "github.com/kwabenaio/sika/internal/encoding"
	"github.com/kwabenaio/sika/internal/pricing"
)

// Parser reads treasury rate-sheet CSV exports and produces per-currency
// rates against GBP. It auto-detects which export layout is in use by
// matching column headers against known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (map[pricing.Currency]float64, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching rate-sheet layout found")
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header matching a known profile. Sheets
// often carry a title block above the real header, so every row is a
// candidate.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) (map[pricing.Currency]float64, error) {
	currencyIdx := cols[p.CurrencyCol]

	rates := make(map[pricing.Currency]float64)

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, past the header

		code := parseCurrency(row, currencyIdx)
		if code == "" {
			// Footer or blank separator row.
			continue
		}

		if code == pricing.Base {
			continue
		}

		rate, ok := parseRate(p, cols, row)
		if !ok {
			continue
		}

		if rate <= 0 {
			return nil, fmt.Errorf("row %d: non-positive rate %g for %s", rowNum, rate, code)
		}

		if _, dup := rates[code]; dup {
			return nil, fmt.Errorf("row %d: duplicate entry for %s", rowNum, code)
		}

		rates[code] = rate
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("rate sheet contains no usable rows")
	}

	return rates, nil
}

// parseCurrency returns an ISO-style three-letter code, or "" for anything
// that cannot be one.
func parseCurrency(row []string, idx int) pricing.Currency {
	s := strings.ToUpper(cellValue(row, idx))
	if len(s) != 3 {
		return ""
	}

	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return ""
		}
	}

	return pricing.Currency(s)
}

func parseRate(p *Profile, cols colIndex, row []string) (float64, bool) {
	switch p.Mode {
	case rateMid:
		return parseNumber(cellValue(row, cols[p.RateCol]))
	case rateSpread:
		return parseNumber(cellValue(row, cols[p.SellCol]))
	}

	return 0, false
}

// parseNumber accepts both "5,300.25" and European "5.300,25" styles. A
// lone comma followed by exactly three digits is a thousands separator, so
// "7,050" is seven thousand fifty, not 7.05.
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	lastComma, lastDot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot && (lastDot >= 0 || len(s)-lastComma-1 != 3):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
