package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kwabenaio/sika/internal/processor"
)

const satoshi = 1e8

// Client talks to the Blockchain.info receive-payments API. Unlike the
// invoice processors it only allocates forwarding addresses; the fiat rate
// is fetched from the ticker at creation time.
type Client struct {
	baseURL string
	xpub    string
	apiKey  string
	secret  string
	client  *http.Client
}

func New(baseURL, xpub, apiKey, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		xpub:    xpub,
		apiKey:  apiKey,
		secret:  secret,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type receiveResponse struct {
	Address string `json:"address"`
	Index   int    `json:"index"`
}

func (c *Client) CreateInvoice(ctx context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error) {
	rate, err := c.tickerRate(ctx, req.Currency)
	if err != nil {
		return nil, err
	}

	// The shared secret rides on the callback URL; the webhook echoes it
	// back and that echo is what authenticates the callback.
	callback := fmt.Sprintf("%s?secret=%s", req.CallbackURL, url.QueryEscape(c.secret))

	q := url.Values{}
	q.Set("xpub", c.xpub)
	q.Set("key", c.apiKey)
	q.Set("callback", callback)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/receive?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: blockchain: %v", processor.ErrProcessor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: blockchain: unexpected status %d", processor.ErrProcessor, resp.StatusCode)
	}

	var recv receiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&recv); err != nil {
		return nil, fmt.Errorf("%w: blockchain: decoding response: %v", processor.ErrProcessor, err)
	}

	if recv.Address == "" {
		return nil, fmt.Errorf("%w: blockchain: no receiving address allocated", processor.ErrProcessor)
	}

	return &processor.InvoiceResult{
		InvoiceID:  fmt.Sprintf("%s-%d", c.xpub, recv.Index),
		BTCAddress: recv.Address,
		BTCRate:    rate,
		BTCAmount:  req.Amount / rate,
	}, nil
}

func (c *Client) tickerRate(ctx context.Context, currency string) (float64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ticker", nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: blockchain ticker: %v", processor.ErrProcessor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: blockchain ticker: unexpected status %d", processor.ErrProcessor, resp.StatusCode)
	}

	var ticker map[string]struct {
		Last float64 `json:"last"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return 0, fmt.Errorf("%w: blockchain ticker: decoding response: %v", processor.ErrProcessor, err)
	}

	entry, ok := ticker[currency]
	if !ok || entry.Last <= 0 {
		return 0, fmt.Errorf("%w: blockchain ticker: no rate for %s", processor.ErrProcessor, currency)
	}

	return entry.Last, nil
}

// VerifyCallback checks the echoed shared secret. Blockchain.info has no
// signed header; the secret embedded in the callback URL at invoice
// creation is the only authenticity token.
func (c *Client) VerifyCallback(r *http.Request, _ []byte) error {
	if r.URL.Query().Get("secret") != c.secret {
		return fmt.Errorf("callback secret mismatch")
	}

	return nil
}

func (c *Client) ParseCallback(body []byte) (*processor.Callback, error) {
	// Callbacks arrive as form-encoded query pairs.
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: blockchain: decoding callback: %v", processor.ErrProcessor, err)
	}

	sats, err := strconv.ParseInt(vals.Get("value"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: blockchain: bad value %q", processor.ErrProcessor, vals.Get("value"))
	}

	confirmations, _ := strconv.Atoi(vals.Get("confirmations"))

	return &processor.Callback{
		InvoiceID:     vals.Get("invoice_id"),
		InputTxHash:   vals.Get("input_transaction_hash"),
		ForwardTxHash: vals.Get("transaction_hash"),
		Amount:        float64(sats) / satoshi,
		ReceivedAt:    time.Now().UTC(),
		Confirmed:     confirmations >= 6,
	}, nil
}
