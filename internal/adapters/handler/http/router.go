package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

// NewHandler assembles the gateway: RealIP → RequestID → Logger → rate
// limiter on everything, bearer auth on the protected group, idempotency on
// mutating routes. Handlers behind it never see an unadmitted or
// unauthenticated request.
func NewHandler(
	tokens ports.TokenService,
	limiter ports.RateLimitService,
	idem ports.IdempotencyService,
	authHandler *AuthHandler,
	profileHandler *ProfileHandler,
	adminHandler *AdminHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(RateLimit(limiter))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.GoogleLogin)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(tokens))

			r.Get("/me", profileHandler.Me)

			r.Group(func(r chi.Router) {
				r.Use(Idempotency(idem))
				r.Patch("/me", profileHandler.UpdateMe)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin))
				r.Use(Idempotency(idem))
				r.Post("/users/{id}/revoke-sessions", adminHandler.RevokeUserSessions)
			})
		})
	})

	return r
}
