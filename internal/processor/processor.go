// Package processor holds the thin clients for the Bitcoin payment
// processors the platform can collect through. All processors expose the
// same two capabilities: allocate an invoice with a receiving address, and
// deliver signed payment callbacks. One reconciliation state machine serves
// all of them; only the wire formats differ.
package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind tags which third-party processor backs an invoice.
type Kind string

const (
	KindGoCoin     Kind = "gocoin"
	KindBlockchain Kind = "blockchain"
	KindCoinapult  Kind = "coinapult"
)

// ErrProcessor wraps any external API failure or malformed response. There
// is no automatic retry: the caller re-initiates.
var ErrProcessor = errors.New("payment processor error")

type InvoiceRequest struct {
	Amount      float64
	Currency    string
	CallbackURL string
}

// InvoiceResult is what every processor hands back for a new invoice.
type InvoiceResult struct {
	InvoiceID  string
	BTCAddress string
	BTCRate    float64 // fiat units per BTC, committed at creation
	BTCAmount  float64 // BTC due
}

// Callback is the normalized payment-notification payload.
type Callback struct {
	InvoiceID     string
	InputTxHash   string
	ForwardTxHash string
	Amount        float64 // BTC
	ReceivedAt    time.Time
	Confirmed     bool
}

type Client interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error)

	// VerifyCallback authenticates an inbound webhook before any state
	// transition is trusted. Forged and replayed callbacks are the primary
	// threat model here.
	VerifyCallback(r *http.Request, body []byte) error

	ParseCallback(body []byte) (*Callback, error)
}

// Service dispatches to the configured processor clients by tag.
type Service struct {
	clients map[Kind]Client
}

func NewService(clients map[Kind]Client) *Service {
	return &Service{clients: clients}
}

func (s *Service) Client(kind Kind) (Client, error) {
	c, ok := s.clients[kind]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", kind)
	}

	return c, nil
}
