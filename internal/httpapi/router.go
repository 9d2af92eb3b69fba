// Package httpapi assembles the HTTP surface of the auth daemon: the
// /auth route group, health and metrics endpoints, and the shared
// middleware stack.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	authd "github.com/naviriti/authd"
)

// RouterConfig holds the transport-level knobs of the HTTP surface.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

// NewRouter builds the daemon's full handler tree. redisClient is only
// used by the readiness probe; passing nil degrades /readyz to a liveness
// check.
func NewRouter(engine *authd.Engine, redisClient redis.UniversalClient, logger *slog.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"http://localhost:*"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Access-Token", "X-Auth-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(clientIP)

	r.Get("/healthz", healthHandler())
	r.Get("/readyz", readyHandler(redisClient))
	r.Handle("/metrics", promhttp.Handler())

	handler := NewHandler(engine, logger)
	r.Mount("/auth", handler.Routes())

	return r
}

// clientIP copies the resolved remote address into the engine's context
// slot so audit events carry it.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authd.WithClientIP(r.Context(), r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{"status": "success", "message": "ok"})
	}
}

func readyHandler(redisClient redis.UniversalClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, envelope{
					"status":  "error",
					"message": "redis unavailable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, envelope{"status": "success", "message": "ready"})
	}
}
