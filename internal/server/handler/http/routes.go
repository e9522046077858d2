package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/middleware"
)

const registerPath = "/api/register"

// NewRouter constructs the snapshot server's HTTP handler.
//
// Routes:
//
//	POST /api/register   → authHandler.Register (no certificate needed)
//	POST /api/login      → authHandler.Login
//	POST /api/sync       → syncHandler.Sync
//	GET  /api/vault      → syncHandler.Vault
//
// Every request is logged. Bodies must be JSON, and everything except
// registration requires a client certificate.
func NewRouter(
	authHandler *AuthHandler,
	syncHandler *SyncHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	// Only applies to requests with a body.
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.CertAuth(registerPath))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/sync", syncHandler.Sync)
		r.Get("/vault", syncHandler.Vault)
	})

	return r
}
