package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortener/pkg/middleware"
	"github.com/vadimbarashkov/shortener/pkg/response"
)

// New converts panics into a 500 response. The stack trace is logged always
// and returned to the client only when exposeStack is set.
func New(logger *slog.Logger, exposeStack bool) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				stack := string(debug.Stack())

				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op,
						slog.Any("err", rvr),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", stack),
					),
				)

				resp := response.Error("internal server error")
				if exposeStack {
					resp.Details = strings.Split(strings.TrimSpace(stack), "\n")
				}

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
