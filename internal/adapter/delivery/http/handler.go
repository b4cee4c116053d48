package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/pkg/response"
)

//go:embed templates/*.html
var templatesFS embed.FS

var notFoundTmpl = template.Must(template.ParseFS(templatesFS, "templates/not_found.html"))

var errInvalidQuery = errors.New("invalid query parameter")

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL, customCode string) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error)
	GetURLByID(ctx context.Context, id int64) (*entity.URL, error)
	ListURLs(ctx context.Context, page, limit int) (*entity.URLPage, error)
	ListURLsByDateRange(ctx context.Context, start, end time.Time) ([]*entity.URL, error)
	ListTopURLs(ctx context.Context, limit int) ([]*entity.URL, error)
	DeleteURL(ctx context.Context, shortCode string) error
	GetStats(ctx context.Context) (*entity.Stats, error)
	HealthCheck(ctx context.Context) bool
}

type urlHandler struct {
	useCase  urlUseCase
	validate *validator.Validate
	baseURL  string
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate, baseURL string) *urlHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &urlHandler{
		useCase:  useCase,
		validate: validate,
		baseURL:  baseURL,
	}
}

// requestBaseURL returns the configured base URL or derives one from the request.
func (h *urlHandler) requestBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
	case "http", "https":
		scheme = proto
	}

	return scheme + "://" + r.Host
}

func (h *urlHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidURL):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid url format"))
	case errors.Is(err, entity.ErrInvalidShortCode):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid custom code: use 3-20 letters or digits, reserved words are not allowed"))
	case errors.Is(err, entity.ErrShortCodeExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("custom code already exists"))
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("url not found"))
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
	}
}

func (h *urlHandler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if !h.useCase.HealthCheck(r.Context()) {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("service unhealthy"))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}))
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("empty request body"))
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err))
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.URL, req.CustomCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.Success(toURLResponse(url, h.requestBaseURL(r)), "URL shortened successfully"))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			if err := notFoundTmpl.Execute(w, struct{ ShortCode string }{shortCode}); err != nil {
				httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
			}
			return
		}

		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusMovedPermanently)
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.GetURLStats(r.Context(), shortCode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toURLStatsResponse(url, h.requestBaseURL(r))))
}

func (h *urlHandler) getURLByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	url, err := h.useCase.GetURLByID(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toURLStatsResponse(url, h.requestBaseURL(r))))
}

// queryInt parses a positive integer query parameter capped at upper.
// A missing parameter yields def.
func queryInt(r *http.Request, name string, def, upper int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > upper {
		return 0, fmt.Errorf("%w: %s", errInvalidQuery, name)
	}

	return n, nil
}

// queryTime accepts RFC 3339 timestamps and plain dates. A plain end date
// covers the whole day.
func queryTime(r *http.Request, name string, endOfDay bool) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errInvalidQuery, name)
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", errInvalidQuery, name)
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return t, nil
}

func (h *urlHandler) listURLs(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage, maxPage)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(fmt.Sprintf("page must be between 1 and %d", maxPage)))
		return
	}

	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(fmt.Sprintf("limit must be between 1 and %d", maxLimit)))
		return
	}

	urlPage, err := h.useCase.ListURLs(r.Context(), page, limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Paginated(
		toURLStatsResponses(urlPage.URLs, h.requestBaseURL(r)),
		response.NewPagination(page, limit, urlPage.Total),
	))
}

func (h *urlHandler) listTopURLs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(fmt.Sprintf("limit must be between 1 and %d", maxLimit)))
		return
	}

	urls, err := h.useCase.ListTopURLs(r.Context(), limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toURLStatsResponses(urls, h.requestBaseURL(r))))
}

func (h *urlHandler) listURLsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start", false)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	end, err := queryTime(r, "end", true)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	if end.Before(start) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("end must not be before start"))
		return
	}

	urls, err := h.useCase.ListURLsByDateRange(r.Context(), start, end)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toURLStatsResponses(urls, h.requestBaseURL(r))))
}

func (h *urlHandler) deleteURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if err := h.useCase.DeleteURL(r.Context(), shortCode); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(nil, "URL deleted successfully"))
}

func (h *urlHandler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.useCase.GetStats(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toStatsResponse(stats)))
}
