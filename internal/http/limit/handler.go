package limit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kwabenaio/sika/internal/limit"
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/validation"
	"github.com/kwabenaio/sika/internal/versioned"
)

type Handler struct {
	svc    *limit.Service
	prices *pricing.Service
}

func NewHandler(svc *limit.Service, prices *pricing.Service) *Handler {
	return &Handler{svc: svc, prices: prices}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{site}", h.get)
}

func (h *Handler) OperatorRoutes(r chi.Router) {
	r.Post("/", h.publish)
}

type limitsResponse struct {
	Currency          pricing.Currency `json:"currency"`
	TransactionMin    float64          `json:"transaction_min"`
	TransactionMax    float64          `json:"transaction_max"`
	UserLimitBasic    float64          `json:"user_limit_basic"`
	UserLimitComplete float64          `json:"user_limit_complete"`
}

// get returns the current limits for a site, converted to the requested
// currency at the effective rate.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	currency := pricing.Base
	if c := r.URL.Query().Get("currency"); c != "" {
		currency = pricing.Currency(c)
	}

	lv, err := h.svc.Current(r.Context(), site)
	if err != nil {
		writeError(w, err)
		return
	}

	pv, err := h.prices.Current(r.Context(), site)
	if err != nil {
		writeError(w, err)
		return
	}

	rs, err := h.prices.CurrentRates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	limits, err := limit.InCurrency(lv, pv, rs, currency)
	if err != nil {
		http.Error(w, "no rate for requested currency", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(limitsResponse{
		Currency:          limits.Currency,
		TransactionMin:    limits.TransactionMin,
		TransactionMax:    limits.TransactionMax,
		UserLimitBasic:    limits.UserLimitBasic,
		UserLimitComplete: limits.UserLimitComplete,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type publishRequest struct {
	Site              string  `json:"site"`
	TransactionMin    float64 `json:"transaction_min"`
	TransactionMax    float64 `json:"transaction_max"`
	UserLimitBasic    float64 `json:"user_limit_basic"`
	UserLimitComplete float64 `json:"user_limit_complete"`
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lv, err := h.svc.Publish(r.Context(), limit.PublishParams{
		Site:              req.Site,
		TransactionMin:    req.TransactionMin,
		TransactionMax:    req.TransactionMax,
		UserLimitBasic:    req.UserLimitBasic,
		UserLimitComplete: req.UserLimitComplete,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(limitsResponse{
		Currency:          pricing.Base,
		TransactionMin:    lv.TransactionMin,
		TransactionMax:    lv.TransactionMax,
		UserLimitBasic:    lv.UserLimitBasic,
		UserLimitComplete: lv.UserLimitComplete,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, versioned.ErrNoCurrentRecord):
		http.Error(w, "no current limits published", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
