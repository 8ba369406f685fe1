package coinapult

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwabenaio/sika/internal/processor"
)

const (
	keyHeader  = "cpt-key"
	hmacHeader = "cpt-hmac"
)

// Client talks to the Coinapult receive API.
type Client struct {
	baseURL string
	apiKey  string
	secret  []byte
	client  *http.Client
}

func New(baseURL, apiKey, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type receiveResponse struct {
	TransactionID string  `json:"transaction_id"`
	Address       string  `json:"address"`
	InAmount      float64 `json:"in_expected,string"`
	QuotedRate    float64 `json:"quoted_rate,string"`
}

func (c *Client) CreateInvoice(ctx context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error) {
	form := url.Values{}
	form.Set("outCurrency", req.Currency)
	form.Set("outAmount", fmt.Sprintf("%f", req.Amount))
	form.Set("inCurrency", "BTC")
	form.Set("callback", req.CallbackURL)

	body := form.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/t/receive", strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set(keyHeader, c.apiKey)
	httpReq.Header.Set(hmacHeader, processor.Sign(c.secret, []byte(body)))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: coinapult: %v", processor.ErrProcessor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: coinapult: unexpected status %d", processor.ErrProcessor, resp.StatusCode)
	}

	var recv receiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&recv); err != nil {
		return nil, fmt.Errorf("%w: coinapult: decoding response: %v", processor.ErrProcessor, err)
	}

	if recv.Address == "" || recv.InAmount <= 0 {
		return nil, fmt.Errorf("%w: coinapult: incomplete receive response", processor.ErrProcessor)
	}

	return &processor.InvoiceResult{
		InvoiceID:  recv.TransactionID,
		BTCAddress: recv.Address,
		BTCRate:    recv.QuotedRate,
		BTCAmount:  recv.InAmount,
	}, nil
}

// VerifyCallback checks the cpt-hmac header over the raw body under the
// shared secret, and that the key header matches our API key.
func (c *Client) VerifyCallback(r *http.Request, body []byte) error {
	if r.Header.Get(keyHeader) != c.apiKey {
		return fmt.Errorf("callback api key mismatch")
	}

	return processor.VerifySignature(c.secret, body, r.Header.Get(hmacHeader))
}

type callbackPayload struct {
	TransactionID string  `json:"transaction_id"`
	State         string  `json:"state"`
	InTxHash      string  `json:"in_tx_hash"`
	InAmount      float64 `json:"in_actual,string"`
	CompletedAt   int64   `json:"completed_at"`
}

func (c *Client) ParseCallback(body []byte) (*processor.Callback, error) {
	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: coinapult: decoding callback: %v", processor.ErrProcessor, err)
	}

	receivedAt := time.Now().UTC()
	if p.CompletedAt > 0 {
		receivedAt = time.Unix(p.CompletedAt, 0).UTC()
	}

	return &processor.Callback{
		InvoiceID:   p.TransactionID,
		InputTxHash: p.InTxHash,
		Amount:      p.InAmount,
		ReceivedAt:  receivedAt,
		Confirmed:   p.State == "complete",
	}, nil
}
