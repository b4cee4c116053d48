// Package http provides the HTTP delivery layer for the URL shortener service.
// It wires routes and middleware, validates input and maps use case errors to
// status codes.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortener/docs"
	"github.com/vadimbarashkov/shortener/internal/ratelimit"
	"github.com/vadimbarashkov/shortener/pkg/middleware/recoverer"

	httpSwagger "github.com/swaggo/http-swagger"
)

type routerOptions struct {
	baseURL     string
	limiter     ratelimit.Limiter
	exposeStack bool
}

type RouterOption func(*routerOptions)

// WithBaseURL fixes the host used to build short URLs. Without it the host
// of each request is used.
func WithBaseURL(baseURL string) RouterOption {
	return func(o *routerOptions) {
		o.baseURL = baseURL
	}
}

// WithRateLimiter limits URL creation per client IP.
func WithRateLimiter(limiter ratelimit.Limiter) RouterOption {
	return func(o *routerOptions) {
		o.limiter = limiter
	}
}

// WithStackTraces includes panic stack traces in 500 responses.
func WithStackTraces(expose bool) RouterOption {
	return func(o *routerOptions) {
		o.exposeStack = expose
	}
}

// NewRouter initializes a chi router with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts ...RouterOption) *chi.Mux {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, o.exposeStack))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	h := newURLHandler(urlUseCase, validator.New(), o.baseURL)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlePing)
		r.Get("/health", h.healthCheck)

		r.Group(func(r chi.Router) {
			if o.limiter != nil {
				r.Use(ratelimit.Middleware(o.limiter, logger.Logger.With(slog.String("component", "ratelimit"))))
			}
			r.Post("/shorten", h.shortenURL)
		})

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", h.listURLs)
			r.Get("/top", h.listTopURLs)
			r.Get("/range", h.listURLsByDateRange)
			r.Get("/{id:[0-9]+}", h.getURLByID)
			r.Delete("/{shortCode}", h.deleteURL)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.getStats)
			r.Get("/{shortCode}", h.getURLStats)
		})
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}
