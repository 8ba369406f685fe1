package view

import (
	"context"
	"fmt"
	"time"

	"github.com/kwabenaio/sika/internal/pricing"
)

const dbTimeout = 5 * time.Second

// FormatMoney renders an amount with its currency code.
func FormatMoney(amount float64, currency pricing.Currency) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// FormatBTC renders a BTC amount with the precision payments need.
func FormatBTC(amount float64) string {
	return fmt.Sprintf("%.8f BTC", amount)
}

// FormatDate formats a time.Time into YYYY-MM-DD HH:MM.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
