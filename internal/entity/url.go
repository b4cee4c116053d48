// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, aggregate statistics and the error taxonomy shared by
// every layer.
package entity

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidURL is returned when the submitted URL is missing, malformed,
	// not http(s) or points to a private or loopback host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidShortCode is returned when a custom short code violates the length,
	// character or reserved-word policy.
	ErrInvalidShortCode = errors.New("invalid short code")
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	URLStats              // URLStats contains statistics about the URL.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	ClickCount int64 // ClickCount is the number of times the short code has been resolved.
}

// ShortURL builds the public short link for the URL in the form <scheme>://<host>/<shortCode>.
func (u *URL) ShortURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + u.ShortCode
}

// URLPage is a single page of URLs together with the total number of stored URLs.
type URLPage struct {
	URLs  []*URL
	Total int64
}

// Stats holds aggregate counters over all stored URLs.
type Stats struct {
	TotalURLs        int64
	TotalClicks      int64
	AvgClicksPerURL  float64
	URLsCreatedToday int64
}

// NewStats builds Stats from raw counters, rounding the average to two decimals.
func NewStats(totalURLs, totalClicks, createdToday int64) *Stats {
	stats := &Stats{
		TotalURLs:        totalURLs,
		TotalClicks:      totalClicks,
		URLsCreatedToday: createdToday,
	}

	if totalURLs > 0 {
		avg := float64(totalClicks) / float64(totalURLs)
		stats.AvgClicksPerURL = math.Round(avg*100) / 100
	}

	return stats
}
