package importrates

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kwabenaio/sika/internal/importer"
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/validation"
)

type Handler struct {
	importSvc  *importer.Service
	pricingSvc *pricing.Service
}

func NewHandler(importSvc *importer.Service, pricingSvc *pricing.Service) *Handler {
	return &Handler{importSvc: importSvc, pricingSvc: pricingSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importRates)
}

type importResponse struct {
	Published int                          `json:"published"`
	Rates     map[pricing.Currency]float64 `json:"rates"`
}

// importRates parses an uploaded rate sheet and publishes it as the new
// current rate set in one step.
func (h *Handler) importRates(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	provider := importer.Provider(r.FormValue("provider"))
	if provider == "" {
		provider = importer.ProviderTreasury
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rates, err := h.importSvc.Import(provider, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rs, err := h.pricingSvc.PublishRates(r.Context(), rates)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(importResponse{
		Published: len(rs.Rates),
		Rates:     rs.Rates,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
