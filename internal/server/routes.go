package server

import (
	"log/slog"
	"net/http"

	"github.com/acharya-09/cameleon-tryon/internal/ratelimit"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing; requests with an
// unregistered method on a known path get 405 from the mux itself.
func NewRouter(h *Handlers, limiter ratelimit.Limiter, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /v1/generations/{id}", h.GetGeneration)

	// Only the generation endpoint is rate limited.
	mux.Handle("POST /v1/tryon",
		RateLimitMiddleware(limiter, logger)(http.HandlerFunc(h.Tryon)))

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
