package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/transfer"
	"github.com/kwabenaio/sika/internal/validation"
)

type Handler struct {
	svc *transfer.Service
}

func NewHandler(svc *transfer.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers customer routes; OperatorRoutes the state-forcing ones.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/recipient", h.updateRecipient)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) OperatorRoutes(r chi.Router) {
	r.Post("/{id}/processed", h.setProcessed)
	r.Post("/{id}/invalid", h.setInvalid)
}

type recipientDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Country string `json:"country"`
}

type createTransferRequest struct {
	Site             string           `json:"site"`
	Sender           uuid.UUID        `json:"sender"`
	Recipient        recipientDTO     `json:"recipient"`
	SentAmount       float64          `json:"sent_amount"`
	SentCurrency     pricing.Currency `json:"sent_currency"`
	ReceivedCurrency pricing.Currency `json:"received_currency"`
	ReceivingCountry string           `json:"receiving_country"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.svc.Create(r.Context(), transfer.CreateParams{
		Site:   req.Site,
		Sender: req.Sender,
		Recipient: transfer.Recipient{
			Name:    req.Recipient.Name,
			Phone:   req.Recipient.Phone,
			Country: req.Recipient.Country,
		},
		SentAmount:       req.SentAmount,
		SentCurrency:     req.SentCurrency,
		ReceivedCurrency: req.ReceivedCurrency,
		ReceivingCountry: req.ReceivingCountry,
	})
	if err != nil {
		writeCreateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(t)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeCreateError(w http.ResponseWriter, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, transfer.ErrProfileIncomplete):
		http.Error(w, "sender profile incomplete", http.StatusUnprocessableEntity)
	case errors.Is(err, transfer.ErrPricingUnavailable):
		http.Error(w, "pricing unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transfer.ListFilter{}

	if s := r.URL.Query().Get("state"); s != "" {
		filter.State = new(transfer.State(s))
	}

	if s := r.URL.Query().Get("sender"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.Sender = new(id)
		}
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	transfers, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(transfers)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			http.Error(w, "transfer not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(t)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateRecipientRequest struct {
	PricingID uuid.UUID    `json:"pricing_id"`
	Recipient recipientDTO `json:"recipient"`
}

func (h *Handler) updateRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.svc.UpdateRecipient(r.Context(), id, req.PricingID, transfer.Recipient{
		Name:    req.Recipient.Name,
		Phone:   req.Recipient.Phone,
		Country: req.Recipient.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrNotFound):
			http.Error(w, "transfer not found", http.StatusNotFound)
		case errors.Is(err, transfer.ErrImmutableField):
			http.Error(w, "pricing cannot be changed after creation", http.StatusConflict)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *Handler) setProcessed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SetProcessed)
}

func (h *Handler) setInvalid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SetInvalid)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := fn(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, transfer.ErrNotFound):
			http.Error(w, "transfer not found", http.StatusNotFound)
		case errors.Is(err, transfer.ErrInvalidTransition):
			http.Error(w, "transition not allowed from current state", http.StatusConflict)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
