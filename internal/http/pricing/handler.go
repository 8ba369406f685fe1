package pricing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/validation"
	"github.com/kwabenaio/sika/internal/versioned"
)

type Handler struct {
	svc *pricing.Service
}

func NewHandler(svc *pricing.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/quote", h.quote)
	r.Get("/current", h.current)
}

func (h *Handler) OperatorRoutes(r chi.Router) {
	r.Post("/", h.publish)
	r.Post("/rates", h.publishRates)
}

type quoteResponse struct {
	EffectiveRate  float64          `json:"effective_rate"`
	Fee            float64          `json:"fee"`
	FeeCurrency    pricing.Currency `json:"fee_currency"`
	ReceivedAmount float64          `json:"received_amount"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	site := q.Get("site")
	from := pricing.Currency(q.Get("from"))
	to := pricing.Currency(q.Get("to"))

	if site == "" || from == "" || to == "" {
		http.Error(w, "site, from and to are required", http.StatusBadRequest)
		return
	}

	quote, err := h.svc.Quote(r.Context(), site, amount, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(quoteResponse{
		EffectiveRate:  quote.EffectiveRate,
		Fee:            quote.Fee,
		FeeCurrency:    quote.FeeCurrency,
		ReceivedAmount: quote.ReceivedAmount,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type versionResponse struct {
	ID          uuid.UUID        `json:"id"`
	Site        string           `json:"site"`
	Markup      float64          `json:"markup"`
	Fee         float64          `json:"fee"`
	FeeCurrency pricing.Currency `json:"fee_currency"`
	StartAt     time.Time        `json:"start_at"`
	EndAt       *time.Time       `json:"end_at,omitempty"`
}

func toVersionResponse(v *pricing.Version) versionResponse {
	return versionResponse{
		ID:          v.ID,
		Site:        v.Site,
		Markup:      v.Markup,
		Fee:         v.Fee,
		FeeCurrency: v.FeeCurrency,
		StartAt:     v.Start,
		EndAt:       v.End,
	}
}

type currentResponse struct {
	Pricing versionResponse              `json:"pricing"`
	Rates   map[pricing.Currency]float64 `json:"rates"`
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	if site == "" {
		http.Error(w, "site is required", http.StatusBadRequest)
		return
	}

	v, err := h.svc.Current(r.Context(), site)
	if err != nil {
		writeError(w, err)
		return
	}

	rs, err := h.svc.CurrentRates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(currentResponse{
		Pricing: toVersionResponse(v),
		Rates:   rs.Rates,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type publishRequest struct {
	Site        string           `json:"site"`
	Markup      float64          `json:"markup"`
	Fee         float64          `json:"fee"`
	FeeCurrency pricing.Currency `json:"fee_currency"`
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := h.svc.Publish(r.Context(), pricing.PublishParams{
		Site:        req.Site,
		Markup:      req.Markup,
		Fee:         req.Fee,
		FeeCurrency: req.FeeCurrency,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toVersionResponse(v)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type publishRatesRequest struct {
	Rates map[pricing.Currency]float64 `json:"rates"`
}

func (h *Handler) publishRates(w http.ResponseWriter, r *http.Request) {
	var req publishRatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rs, err := h.svc.PublishRates(r.Context(), req.Rates)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(rs.Rates); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, versioned.ErrNoCurrentRecord):
		http.Error(w, "no current pricing published", http.StatusServiceUnavailable)
	case errors.Is(err, pricing.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
