package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortener/pkg/middleware"
	"github.com/vadimbarashkov/shortener/pkg/response"
)

// clientKey expects RemoteAddr to be rewritten by middleware.RealIP when the
// service runs behind a proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429. Limiter failures are
// logged and the request is let through.
func Middleware(limiter Limiter, logger *slog.Logger) middleware.Middleware {
	const op = "ratelimit.Middleware"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn(
					"rate limiter unavailable, request allowed",
					slog.Group(op, slog.String("key", key), slog.Any("err", err)),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int64(math.Ceil(res.RetryAfter.Seconds()))
				h.Set("Retry-After", strconv.FormatInt(max(retryAfter, 1), 10))

				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests, please try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
