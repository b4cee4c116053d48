package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/pkg/shortcode"
	"github.com/vadimbarashkov/shortener/pkg/urlcheck"
)

// ErrMaxRetriesExceeded is returned when no free short code was found within the attempt bound.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

const maxRetries = 10

type urlRepository interface {
	Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveByID(ctx context.Context, id int64) (*entity.URL, error)
	RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error)
	List(ctx context.Context, limit, offset int) (*entity.URLPage, error)
	RetrieveByDateRange(ctx context.Context, start, end time.Time) ([]*entity.URL, error)
	RetrieveTopByClicks(ctx context.Context, limit int) ([]*entity.URL, error)
	Remove(ctx context.Context, shortCode string) (bool, error)
	Stats(ctx context.Context, since time.Time) (*entity.Stats, error)
	HealthCheck(ctx context.Context) bool
}

type URLUseCase struct {
	shortCodeLength int
	urlRepo         urlRepository
	generate        func(length int) (string, error)
	now             func() time.Time
}

func New(shortCodeLength int, urlRepo urlRepository) *URLUseCase {
	if shortCodeLength <= 0 {
		shortCodeLength = shortcode.DefaultLength
	}

	return &URLUseCase{
		shortCodeLength: shortCodeLength,
		urlRepo:         urlRepo,
		generate:        shortcode.Generate,
		now:             time.Now,
	}
}

// ShortenURL validates originalURL, resolves a unique short code and stores the record.
// A non-empty customCode is used verbatim and never overwrites an existing record;
// otherwise random codes are tried until a free one is stored or maxRetries is reached.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL, customCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if !urlcheck.IsValid(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}
	originalURL = urlcheck.Normalize(originalURL)

	if customCode != "" {
		url, err := uc.shortenWithCustomCode(ctx, originalURL, customCode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return url, nil
	}

	for i := 0; i < maxRetries; i++ {
		code, err := uc.generate(uc.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		taken, err := uc.isTaken(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if taken {
			continue
		}

		url, err := uc.urlRepo.Save(ctx, code, originalURL)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

func (uc *URLUseCase) shortenWithCustomCode(ctx context.Context, originalURL, customCode string) (*entity.URL, error) {
	if !shortcode.IsValidCustom(customCode) {
		return nil, entity.ErrInvalidShortCode
	}

	taken, err := uc.isTaken(ctx, customCode)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, entity.ErrShortCodeExists
	}

	url, err := uc.urlRepo.Save(ctx, customCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to shorten url: %w", err)
	}

	return url, nil
}

func (uc *URLUseCase) isTaken(ctx context.Context, shortCode string) (bool, error) {
	_, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check short code: %w", err)
	}

	return true, nil
}

// ResolveShortCode returns the URL for shortCode and counts the visit.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.urlRepo.RetrieveAndUpdateStats(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) GetURLByID(ctx context.Context, id int64) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLByID"

	url, err := uc.urlRepo.RetrieveByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

// ListURLs returns the given 1-based page of URLs, newest first.
func (uc *URLUseCase) ListURLs(ctx context.Context, page, limit int) (*entity.URLPage, error) {
	const op = "usecase.URLUseCase.ListURLs"

	urls, err := uc.urlRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}

func (uc *URLUseCase) ListURLsByDateRange(ctx context.Context, start, end time.Time) ([]*entity.URL, error) {
	const op = "usecase.URLUseCase.ListURLsByDateRange"

	urls, err := uc.urlRepo.RetrieveByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}

func (uc *URLUseCase) ListTopURLs(ctx context.Context, limit int) ([]*entity.URL, error) {
	const op = "usecase.URLUseCase.ListTopURLs"

	urls, err := uc.urlRepo.RetrieveTopByClicks(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list top urls: %w", op, err)
	}

	return urls, nil
}

func (uc *URLUseCase) DeleteURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeleteURL"

	removed, err := uc.urlRepo.Remove(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}
	if !removed {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

// GetStats returns aggregate counters; "today" starts at local midnight.
func (uc *URLUseCase) GetStats(ctx context.Context) (*entity.Stats, error) {
	const op = "usecase.URLUseCase.GetStats"

	now := uc.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := uc.urlRepo.Stats(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get stats: %w", op, err)
	}

	return stats, nil
}

func (uc *URLUseCase) HealthCheck(ctx context.Context) bool {
	return uc.urlRepo.HealthCheck(ctx)
}
