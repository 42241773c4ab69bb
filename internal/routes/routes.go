package routes

import (
	"log/slog"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/handlers"
	"github.com/BradenHooton/surveyhub/internal/middleware"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/ratelimit"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Surveys   *handlers.SurveyHandler
	Links     *handlers.SurveyLinkHandler
	Responses *handlers.ResponseHandler
	Analytics *handlers.AnalyticsHandler
	Health    *handlers.HealthHandler
}

// Security holds the session, limiter and proxy settings shared by the routes
type Security struct {
	Sessions        *auth.SessionManager
	Revocations     auth.RevocationChecker
	Revocation      auth.RevocationConfig
	LoginLimiter    *ratelimit.Limiter
	RegisterLimiter *ratelimit.Limiter
	ResponseLimiter *ratelimit.Limiter
	PublicRateLimit middleware.RateLimitConfig
	IPConfig        *pkghttp.IPConfig
	Logger          *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, sec Security) {
	byIP := ratelimit.ByClientIP(sec.IPConfig)

	router.Get("/health", h.Health.Health)

	// Public routes - no authentication required
	router.With(sec.LoginLimiter.Middleware(byIP)).Post("/auth/login", h.Auth.Login)
	router.With(sec.RegisterLimiter.Middleware(byIP)).Post("/auth/register", h.Auth.Register)
	router.With(sec.ResponseLimiter.Middleware(byIP)).Post("/responses", h.Responses.Submit)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(sec.PublicRateLimit))
		r.Get("/short-link/{code}", h.Links.ResolveShortCode)
		r.Get("/public/surveys/{token}", h.Links.PublicSurvey)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(sec.Sessions, sec.Revocations, sec.Revocation))
		r.Use(middleware.CSRFProtection(sec.Logger))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/me", h.Auth.Me)

		r.Route("/surveys", func(r chi.Router) {
			r.Get("/", h.Surveys.List)
			r.Post("/", h.Surveys.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Surveys.Get)
				r.Put("/", h.Surveys.Update)
				r.Delete("/", h.Surveys.Delete)
				r.Post("/publish", h.Surveys.Publish)
				r.Post("/unpublish", h.Surveys.Unpublish)
				r.Get("/links", h.Links.List)
				r.Get("/responses", h.Responses.List)
				r.Get("/analytics", h.Analytics.Summary)
				r.Get("/export", h.Analytics.Export)
			})
		})

		r.Post("/survey-links", h.Links.Create)
		r.Post("/survey-links/email", h.Links.Email)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			h.Users.RegisterRoutes(r)
		})
	})
}
