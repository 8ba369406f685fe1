package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kwabenaio/sika/internal/admission"
	"github.com/kwabenaio/sika/internal/http/auth"
	"github.com/kwabenaio/sika/internal/http/importrates"
	"github.com/kwabenaio/sika/internal/http/invoice"
	"github.com/kwabenaio/sika/internal/http/limit"
	"github.com/kwabenaio/sika/internal/http/pricing"
	"github.com/kwabenaio/sika/internal/http/profile"
	"github.com/kwabenaio/sika/internal/http/transfer"
	"github.com/kwabenaio/sika/internal/http/webhook"
)

type Config struct {
	AuthSecret string
	Checker    admission.Checker

	TransfersV1 *transfer.Handler
	ProfilesV1  *profile.Handler
	PricingV1   *pricing.Handler
	LimitsV1    *limit.Handler
	InvoicesV1  *invoice.Handler
	WebhooksV1  *webhook.Handler
	ImportV1    *importrates.Handler
}

func New(cfg Config) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*.sika.money"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	operator := auth.Middleware(cfg.AuthSecret)
	admitted := admission.Middleware(cfg.Checker)

	// Customer routes sit behind IP admission; operator routes behind JWT.
	// Processor callbacks authenticate per-processor signature, never by IP.
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/transfers", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(admitted, middleware.AllowContentType("application/json"))
				cfg.TransfersV1.Routes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(operator)
				cfg.TransfersV1.OperatorRoutes(r)
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(admitted, middleware.AllowContentType("application/json"))
				cfg.ProfilesV1.Routes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(operator)
				cfg.ProfilesV1.OperatorRoutes(r)
			})
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(admitted, middleware.AllowContentType("application/json"))
				cfg.InvoicesV1.Routes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(operator)
				cfg.InvoicesV1.OperatorRoutes(r)
			})
		})

		r.Route("/pricing", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(admitted)
				cfg.PricingV1.Routes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(operator, middleware.AllowContentType("application/json"))
				cfg.PricingV1.OperatorRoutes(r)
			})
		})

		r.Route("/limits", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(admitted)
				cfg.LimitsV1.Routes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(operator, middleware.AllowContentType("application/json"))
				cfg.LimitsV1.OperatorRoutes(r)
			})
		})

		r.Route("/callbacks", cfg.WebhooksV1.Routes)

		r.Route("/rates/import", func(r chi.Router) {
			r.Use(operator)
			cfg.ImportV1.Routes(r)
		})
	})

	return router
}
