package gocoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kwabenaio/sika/internal/processor"
)

const signatureHeader = "X-Gocoin-Signature"

// Client talks to the GoCoin merchant invoice API.
type Client struct {
	baseURL string
	token   string
	secret  []byte
	client  *http.Client
}

func New(baseURL, token, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type createInvoiceRequest struct {
	BasePrice         float64 `json:"base_price"`
	BasePriceCurrency string  `json:"base_price_currency"`
	CallbackURL       string  `json:"callback_url"`
}

type invoiceResponse struct {
	ID             string  `json:"id"`
	PaymentAddress string  `json:"payment_address"`
	Price          float64 `json:"price,string"`
	InverseRate    float64 `json:"inverse_rate,string"`
}

func (c *Client) CreateInvoice(ctx context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error) {
	payload, err := json.Marshal(createInvoiceRequest{
		BasePrice:         req.Amount,
		BasePriceCurrency: req.Currency,
		CallbackURL:       req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding invoice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: gocoin: %v", processor.ErrProcessor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gocoin: unexpected status %d", processor.ErrProcessor, resp.StatusCode)
	}

	var inv invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return nil, fmt.Errorf("%w: gocoin: decoding response: %v", processor.ErrProcessor, err)
	}

	if inv.PaymentAddress == "" || inv.Price <= 0 {
		return nil, fmt.Errorf("%w: gocoin: incomplete invoice response", processor.ErrProcessor)
	}

	return &processor.InvoiceResult{
		InvoiceID:  inv.ID,
		BTCAddress: inv.PaymentAddress,
		BTCRate:    inv.InverseRate,
		BTCAmount:  inv.Price,
	}, nil
}

// VerifyCallback checks the HMAC the GoCoin webhook carries over the raw
// body.
func (c *Client) VerifyCallback(r *http.Request, body []byte) error {
	return processor.VerifySignature(c.secret, body, r.Header.Get(signatureHeader))
}

type callbackPayload struct {
	Payload struct {
		ID      string  `json:"id"`
		Status  string  `json:"status"`
		TxHash  string  `json:"transaction_hash"`
		BTCPaid float64 `json:"btc_paid,string"`
		PaidAt  string  `json:"paid_at"`
	} `json:"payload"`
}

func (c *Client) ParseCallback(body []byte) (*processor.Callback, error) {
	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: gocoin: decoding callback: %v", processor.ErrProcessor, err)
	}

	receivedAt := time.Now().UTC()

	if p.Payload.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, p.Payload.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("%w: gocoin: bad paid_at %q", processor.ErrProcessor, p.Payload.PaidAt)
		}

		receivedAt = t
	}

	return &processor.Callback{
		InvoiceID:   p.Payload.ID,
		InputTxHash: p.Payload.TxHash,
		Amount:      p.Payload.BTCPaid,
		ReceivedAt:  receivedAt,
		Confirmed:   p.Payload.Status == "paid" || p.Payload.Status == "ready_to_ship",
	}, nil
}
