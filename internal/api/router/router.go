// Package router assembles the chi router for the intake backend.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mlima/intake-backend/internal/http/handlers"
	httpmiddleware "github.com/mlima/intake-backend/internal/http/middleware"
	"github.com/mlima/intake-backend/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Conversation       *handlers.ConversationHandler
	WhatsApp           *handlers.WhatsAppHandler
	Claim              *handlers.ClaimHandler
	Health             *handlers.HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Check)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.Conversation != nil {
			api.Route("/conversation", func(c chi.Router) {
				c.Post("/start", cfg.Conversation.Start)
				c.Post("/respond", cfg.Conversation.Respond)
				c.Post("/submit-phone", cfg.Conversation.SubmitPhone)
				c.Get("/status/{sessionID}", cfg.Conversation.Status)
				c.Post("/reset/{sessionID}", cfg.Conversation.Reset)
			})
		}
		if cfg.WhatsApp != nil {
			api.Post("/whatsapp/webhook", cfg.WhatsApp.Webhook)
		}
		if cfg.Claim != nil {
			api.Get("/leads/{leadID}", cfg.Claim.Details)
			api.Get("/leads/{leadID}/assign/{lawyerID}", cfg.Claim.Assign)
		}
	})

	return r
}
