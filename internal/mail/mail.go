// Package mail delivers transactional email through an HTTP mail provider.
// Delivery is best effort: a transfer never fails because an email did.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/transfer"
)

const (
	templateTransferCreated   = "transfer_created"
	templateTransferPaid      = "transfer_paid"
	templateTransferProcessed = "transfer_processed"
)

type Sender struct {
	baseURL string
	token   string
	from    string
	client  *http.Client
}

func NewSender(baseURL, token, from string) *Sender {
	return &Sender{
		baseURL: baseURL,
		token:   token,
		from:    from,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	From     string            `json:"from"`
	UserID   string            `json:"user_id"` // provider resolves the account's address
	Template string            `json:"template"`
	Context  map[string]string `json:"context"`
}

func (s *Sender) send(ctx context.Context, userID uuid.UUID, template string, tctx map[string]string) error {
	body, err := json.Marshal(message{
		From:     s.from,
		UserID:   userID.String(),
		Template: template,
		Context:  tctx,
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, b)
	}

	return nil
}

func (s *Sender) notify(ctx context.Context, t *transfer.Transfer, template string) {
	tctx := map[string]string{
		"reference":         t.ReferenceNumber,
		"sent_amount":       fmt.Sprintf("%.2f", t.SentAmount),
		"sent_currency":     string(t.SentCurrency),
		"received_amount":   fmt.Sprintf("%.2f", t.ReceivedAmount),
		"received_currency": string(t.ReceivedCurrency),
		"recipient_name":    t.Recipient.Name,
	}

	if err := s.send(ctx, t.Sender, template, tctx); err != nil {
		slog.Error("transfer notification failed",
			"transfer", t.ID, "template", template, "error", err)
	}
}

func (s *Sender) TransferCreated(ctx context.Context, t *transfer.Transfer) {
	s.notify(ctx, t, templateTransferCreated)
}

func (s *Sender) TransferPaid(ctx context.Context, t *transfer.Transfer) {
	s.notify(ctx, t, templateTransferPaid)
}

func (s *Sender) TransferProcessed(ctx context.Context, t *transfer.Transfer) {
	s.notify(ctx, t, templateTransferProcessed)
}

// Noop satisfies the notifier without sending anything. Used in tests and
// local development where no mail provider is configured.
type Noop struct{}

func (Noop) TransferCreated(ctx context.Context, t *transfer.Transfer) {
	slog.Debug("skipping created notification", "transfer", t.ID)
}

func (Noop) TransferPaid(ctx context.Context, t *transfer.Transfer) {
	slog.Debug("skipping paid notification", "transfer", t.ID)
}

func (Noop) TransferProcessed(ctx context.Context, t *transfer.Transfer) {
	slog.Debug("skipping processed notification", "transfer", t.ID)
}
