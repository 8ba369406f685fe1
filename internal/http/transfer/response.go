package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/transfer"
)

type transferResponse struct {
	ID               uuid.UUID        `json:"id"`
	Sender           uuid.UUID        `json:"sender"`
	Recipient        recipientDTO     `json:"recipient"`
	PricingID        uuid.UUID        `json:"pricing_id"`
	SentAmount       float64          `json:"sent_amount"`
	SentCurrency     pricing.Currency `json:"sent_currency"`
	ReceivedAmount   float64          `json:"received_amount"`
	ReceivedCurrency pricing.Currency `json:"received_currency"`
	ReceivingCountry string           `json:"receiving_country"`
	ReferenceNumber  string           `json:"reference_number"`
	State            transfer.State   `json:"state"`
	CreatedAt        time.Time        `json:"created_at"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
	InvalidatedAt    *time.Time       `json:"invalidated_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
}

func toResponse(t *transfer.Transfer) transferResponse {
	return transferResponse{
		ID:     t.ID,
		Sender: t.Sender,
		Recipient: recipientDTO{
			Name:    t.Recipient.Name,
			Phone:   t.Recipient.Phone,
			Country: t.Recipient.Country,
		},
		PricingID:        t.PricingID,
		SentAmount:       t.SentAmount,
		SentCurrency:     t.SentCurrency,
		ReceivedAmount:   t.ReceivedAmount,
		ReceivedCurrency: t.ReceivedCurrency,
		ReceivingCountry: t.ReceivingCountry,
		ReferenceNumber:  t.ReferenceNumber,
		State:            t.State,
		CreatedAt:        t.CreatedAt,
		PaidAt:           t.PaidAt,
		ProcessedAt:      t.ProcessedAt,
		InvalidatedAt:    t.InvalidatedAt,
		CancelledAt:      t.CancelledAt,
	}
}

func toResponseList(transfers []*transfer.Transfer) []transferResponse {
	resp := make([]transferResponse, len(transfers))
	for i, t := range transfers {
		resp[i] = toResponse(t)
	}

	return resp
}
