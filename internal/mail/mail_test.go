package mail_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/mail"
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/transfer"
)

func TestSenderTransferPaid(t *testing.T) {
	type message struct {
		From     string            `json:"from"`
		UserID   string            `json:"user_id"`
		Template string            `json:"template"`
		Context  map[string]string `json:"context"`
	}

	var got message

	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/messages", r.URL.Path)

		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := mail.NewSender(srv.URL, "mail-token", "no-reply@sika.example")

	tr := &transfer.Transfer{
		ID:               uuid.New(),
		Sender:           uuid.New(),
		ReferenceNumber:  "482910",
		SentAmount:       100,
		SentCurrency:     pricing.GBP,
		ReceivedAmount:   520,
		ReceivedCurrency: pricing.GHS,
	}

	sender.TransferPaid(context.Background(), tr)

	assert.Equal(t, "Bearer mail-token", gotAuth)
	assert.Equal(t, "no-reply@sika.example", got.From)
	assert.Equal(t, tr.Sender.String(), got.UserID)
	assert.Equal(t, "transfer_paid", got.Template)
	assert.Equal(t, "482910", got.Context["reference"])
	assert.Equal(t, "520.00", got.Context["received_amount"])
	assert.Equal(t, "GHS", got.Context["received_currency"])
}

func TestSenderProviderFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := mail.NewSender(srv.URL, "mail-token", "no-reply@sika.example")

	// Must not panic or propagate; delivery is best effort.
	sender.TransferCreated(context.Background(), &transfer.Transfer{ID: uuid.New()})
}
