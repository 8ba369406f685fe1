package ratesheet

// rateMode determines how the rate is extracted from a row.
type rateMode int

const (
	// rateMid means one mid-market rate column.
	rateMid rateMode = iota
	// rateSpread means separate buy and sell columns; the sell side is what
	// customers get, so that is the one published.
	rateSpread
)

// Profile describes the column layout of one treasury export format.
// Supporting a new export is a new entry in the profiles slice.
type Profile struct {
	Name        string
	CurrencyCol string
	Mode        rateMode
	RateCol     string // used when Mode == rateMid
	BuyCol      string // used when Mode == rateSpread
	SellCol     string // used when Mode == rateSpread
}

func (p Profile) requiredCols() []string {
	cols := []string{p.CurrencyCol}

	switch p.Mode {
	case rateMid:
		cols = append(cols, p.RateCol)
	case rateSpread:
		cols = append(cols, p.BuyCol, p.SellCol)
	}

	return cols
}

// profiles is the ordered list of export formats to try. More specific
// layouts come first so the spread sheet is never mistaken for the mid one.
var profiles = []Profile{
	{
		Name:        "dealing",
		CurrencyCol: "Currency",
		Mode:        rateSpread,
		BuyCol:      "Buy",
		SellCol:     "Sell",
	},
	{
		Name:        "daily",
		CurrencyCol: "Currency",
		Mode:        rateMid,
		RateCol:     "Rate",
	},
	{
		Name:        "iso",
		CurrencyCol: "ISO Code",
		Mode:        rateMid,
		RateCol:     "Mid Rate",
	},
}
