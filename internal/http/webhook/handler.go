// Package webhook ingests payment notifications from the BTC processors.
//
// Every response is 200 regardless of outcome. Processors retry non-200
// responses aggressively, and a retry storm against a failing handler only
// makes the failure worse; anything that could not be applied is logged and
// reconciled by hand.
package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kwabenaio/sika/internal/btcinvoice"
	"github.com/kwabenaio/sika/internal/processor"
)

const maxBodySize = 1 << 20

type Handler struct {
	processors *processor.Service
	invoices   *btcinvoice.Service
}

func NewHandler(processors *processor.Service, invoices *btcinvoice.Service) *Handler {
	return &Handler{processors: processors, invoices: invoices}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/{processor}", h.receive)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	// Nothing below may change the response; acknowledge unconditionally.
	defer w.WriteHeader(http.StatusOK)

	kind := processor.Kind(chi.URLParam(r, "processor"))

	client, err := h.processors.Client(kind)
	if err != nil {
		slog.Warn("callback for unknown processor", "processor", kind)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		slog.Warn("failed to read callback body", "processor", kind, "error", err)
		return
	}

	if err := client.VerifyCallback(r, body); err != nil {
		slog.Warn("callback failed verification",
			"processor", kind, "remote", r.RemoteAddr, "error", err)

		return
	}

	cb, err := client.ParseCallback(body)
	if err != nil {
		slog.Warn("unparseable callback", "processor", kind, "error", err)
		return
	}

	inv, err := h.invoices.GetByExternalID(r.Context(), kind, cb.InvoiceID)
	if err != nil {
		slog.Warn("callback for unknown invoice",
			"processor", kind, "external_id", cb.InvoiceID, "error", err)

		return
	}

	notice := btcinvoice.PaymentNotice{
		InputTxHash:   cb.InputTxHash,
		ForwardTxHash: cb.ForwardTxHash,
		Amount:        cb.Amount,
		ReceivedAt:    cb.ReceivedAt,
		Confirmed:     cb.Confirmed,
	}

	if err := h.invoices.RecordPayment(r.Context(), inv.ID, notice); err != nil {
		slog.Error("failed to record payment",
			"processor", kind, "invoice", inv.ID, "input_tx", cb.InputTxHash, "error", err)

		return
	}

	if cb.Confirmed {
		if err := h.invoices.ConfirmReadyToShip(r.Context(), inv.ID); err != nil {
			slog.Error("failed to advance invoice to ready-to-ship",
				"processor", kind, "invoice", inv.ID, "error", err)
		}
	}
}
