package profile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/profile"
)

type Handler struct {
	svc *profile.Service
}

func NewHandler(svc *profile.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{userID}", h.get)
	r.Put("/{userID}", h.save)
}

func (h *Handler) OperatorRoutes(r chi.Router) {
	r.Post("/{userID}/promote", h.promote)
}

type profileRequest struct {
	FullName    string     `json:"full_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	PostalCode  string     `json:"postal_code"`
	Country     string     `json:"country"`
	Phone       string     `json:"phone"`
}

type profileResponse struct {
	UserID      uuid.UUID     `json:"user_id"`
	FullName    string        `json:"full_name"`
	DateOfBirth *time.Time    `json:"date_of_birth,omitempty"`
	Address     string        `json:"address"`
	City        string        `json:"city"`
	PostalCode  string        `json:"postal_code"`
	Country     string        `json:"country"`
	Phone       string        `json:"phone"`
	Level       profile.Level `json:"level"`
	Complete    bool          `json:"complete"`
}

func toResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		FullName:    p.FullName,
		DateOfBirth: p.DateOfBirth,
		Address:     p.Address,
		City:        p.City,
		PostalCode:  p.PostalCode,
		Country:     p.Country,
		Phone:       p.Phone,
		Level:       p.Level,
		Complete:    p.Complete(),
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := &profile.Profile{
		UserID:      userID,
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
		Phone:       req.Phone,
	}

	if err := h.svc.Save(r.Context(), p); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Promote(r.Context(), userID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
