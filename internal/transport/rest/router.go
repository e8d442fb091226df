package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/chatmate/api"
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/auth"
	"github.com/frahmantamala/chatmate/internal/payment"
	"github.com/frahmantamala/chatmate/internal/permission"
	"github.com/frahmantamala/chatmate/internal/transport/middleware"
	"github.com/frahmantamala/chatmate/internal/transport/swagger"
)

// Routes carries everything the router mounts. Nil handlers leave their
// routes out.
type Routes struct {
	Auth           *auth.Handler
	Assistants     *assistant.Handler
	Permissions    *permission.Handler
	Payments       *payment.Handler
	Health         *HealthHandler
	Validator      *middleware.RequestValidator
	Instrument     func(http.Handler) http.Handler
	Metrics        http.Handler
	MetricsPath    string
	AllowedOrigins string
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(routes.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware(logger))
	if routes.Instrument != nil {
		router.Use(routes.Instrument)
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	if routes.Metrics != nil && routes.MetricsPath != "" {
		router.Handle(routes.MetricsPath, routes.Metrics)
	}

	// Mount API under /api/v1 to match the OpenAPI server url
	router.Route("/api/v1", func(r chi.Router) {
		if routes.Validator != nil {
			r.Use(routes.Validator.Middleware)
		}

		if routes.Health != nil {
			r.Get("/health", routes.Health.healthCheckHandler)
			r.Get("/ping", routes.Health.pingHandler)
		}

		if routes.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", routes.Auth.Login)
				sr.Post("/refresh", routes.Auth.RefreshToken)
			})
		}

		// Public reads
		if routes.Assistants != nil {
			r.Get("/assistants/{assistant}", routes.Assistants.GetProfile)
			r.Get("/owners/{owner}/assistant", routes.Assistants.GetProfileByOwner)
		}
		if routes.Permissions != nil {
			r.Get("/assistants/{assistant}/permissions/{visitor}", routes.Permissions.GetPermission)
			r.Get("/assistants/{assistant}/permissions/{visitor}/valid", routes.Permissions.CheckValid)
			r.Get("/assistants/{assistant}/permissions/{visitor}/access", routes.Permissions.RequireAccess)
		}
		if routes.Payments != nil {
			r.Get("/accounts/{identity}/balance", routes.Payments.GetBalance)
		}

		if routes.Auth == nil {
			return
		}

		// Signed operations act as the token's identity
		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.AuthMiddleware)

			if routes.Assistants != nil {
				pr.Post("/assistants", routes.Assistants.CreateProfile)
				pr.Patch("/assistants/me", routes.Assistants.UpdateOwnProfile)
				pr.Patch("/assistants/{assistant}", routes.Assistants.UpdateProfile)
			}
			if routes.Permissions != nil {
				pr.Put("/assistants/{assistant}/permissions/{visitor}", routes.Permissions.GrantAccess)
				pr.Delete("/assistants/{assistant}/permissions/{visitor}", routes.Permissions.RevokeAccess)
			}
			if routes.Payments != nil {
				pr.Post("/assistants/{assistant}/access-payments", routes.Payments.PayForAccess)
				pr.Post("/assistants/{assistant}/tips", routes.Payments.Tip)
			}
		})
	})
}
