package http

import (
	"math"
	"time"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	// maxPage keeps (page-1)*limit within int for any accepted limit.
	maxPage = math.MaxInt/maxLimit + 1
)

type shortenRequest struct {
	URL        string `json:"url" validate:"required"`
	CustomCode string `json:"customCode,omitempty"`
}

type urlResponse struct {
	ID          int64     `json:"id"`
	OriginalURL string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toURLResponse(url *entity.URL, baseURL string) urlResponse {
	return urlResponse{
		ID:          url.ID,
		OriginalURL: url.OriginalURL,
		ShortCode:   url.ShortCode,
		ShortURL:    url.ShortURL(baseURL),
		CreatedAt:   url.CreatedAt,
	}
}

type urlStatsResponse struct {
	urlResponse
	ClickCount int64 `json:"clickCount"`
}

func toURLStatsResponse(url *entity.URL, baseURL string) urlStatsResponse {
	return urlStatsResponse{
		urlResponse: toURLResponse(url, baseURL),
		ClickCount:  url.ClickCount,
	}
}

func toURLStatsResponses(urls []*entity.URL, baseURL string) []urlStatsResponse {
	resp := make([]urlStatsResponse, 0, len(urls))
	for _, url := range urls {
		resp = append(resp, toURLStatsResponse(url, baseURL))
	}
	return resp
}

type statsResponse struct {
	TotalURLs        int64   `json:"totalUrls"`
	TotalClicks      int64   `json:"totalClicks"`
	AvgClicksPerURL  float64 `json:"avgClicksPerUrl"`
	URLsCreatedToday int64   `json:"urlsCreatedToday"`
}

func toStatsResponse(stats *entity.Stats) statsResponse {
	return statsResponse{
		TotalURLs:        stats.TotalURLs,
		TotalClicks:      stats.TotalClicks,
		AvgClicksPerURL:  stats.AvgClicksPerURL,
		URLsCreatedToday: stats.URLsCreatedToday,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
