package invoice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/btcinvoice"
	"github.com/kwabenaio/sika/internal/processor"
	"github.com/kwabenaio/sika/internal/transfer"
)

type Handler struct {
	svc       *btcinvoice.Service
	transfers *transfer.Service
}

func NewHandler(svc *btcinvoice.Service, transfers *transfer.Service) *Handler {
	return &Handler{svc: svc, transfers: transfers}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.initiate)
	r.Get("/{id}", h.get)
}

func (h *Handler) OperatorRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/ready", h.readyToShip)
	r.Post("/{id}/invalidate", h.invalidate)
}

type initiateRequest struct {
	TransferID uuid.UUID      `json:"transfer_id"`
	Processor  processor.Kind `json:"processor"`
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.transfers.Get(r.Context(), req.TransferID)
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			http.Error(w, "transfer not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	inv, err := h.svc.Initiate(r.Context(), t, req.Processor)
	if err != nil {
		if errors.Is(err, btcinvoice.ErrPaymentProcessor) {
			http.Error(w, "payment processor unavailable", http.StatusBadGateway)
			return
		}

		if errors.Is(err, btcinvoice.ErrAlreadyInvoiced) {
			http.Error(w, "transfer already has an invoice", http.StatusConflict)
			return
		}

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, btcinvoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var states []btcinvoice.State

	for _, s := range r.URL.Query()["state"] {
		states = append(states, btcinvoice.State(s))
	}

	invs, err := h.svc.List(r.Context(), states)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]invoiceResponse, len(invs))
	for i, inv := range invs {
		resp[i] = toResponse(inv)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) readyToShip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.ConfirmReadyToShip(r.Context(), id); err != nil {
		if errors.Is(err, btcinvoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Invalidate(r.Context(), id); err != nil {
		if errors.Is(err, btcinvoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		if errors.Is(err, btcinvoice.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type invoiceResponse struct {
	ID         uuid.UUID        `json:"id"`
	TransferID uuid.UUID        `json:"transfer_id"`
	Processor  processor.Kind   `json:"processor"`
	BTCAddress string           `json:"btc_address"`
	BTCRate    float64          `json:"btc_rate"`
	BalanceDue float64          `json:"balance_due"`
	State      btcinvoice.State `json:"state"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

func toResponse(inv *btcinvoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:         inv.ID,
		TransferID: inv.TransferID,
		Processor:  inv.Processor,
		BTCAddress: inv.BTCAddress,
		BTCRate:    inv.BTCRate,
		BalanceDue: inv.BalanceDue,
		State:      inv.State,
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
	}
}
