package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortener/internal/entity"
)

const uniqueViolationErrCode = "23505"

const urlColumns = `id, short_code, original_url, click_count, created_at`

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

type urlDB struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	ClickCount  int64     `db:"click_count"`
	CreatedAt   time.Time `db:"created_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		URLStats: entity.URLStats{
			ClickCount: u.ClickCount,
		},
		CreatedAt: u.CreatedAt,
	}
}

func toEntities(rows []urlDB) []*entity.URL {
	urls := make([]*entity.URL, 0, len(rows))
	for i := range rows {
		urls = append(urls, rows[i].toEntity())
	}
	return urls
}

type statsDB struct {
	TotalURLs        int64 `db:"total_urls"`
	TotalClicks      int64 `db:"total_clicks"`
	URLsCreatedToday int64 `db:"urls_created_today"`
}

type Option func(*URLRepository)

// WithQueryTimeout bounds every repository call by d. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *URLRepository) {
		r.queryTimeout = d
	}
}

type URLRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func NewURLRepository(db *sqlx.DB, opts ...Option) *URLRepository {
	r := &URLRepository{db: db}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func (r *URLRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO urls (short_code, original_url) VALUES ($1, $2) RETURNING ` + urlColumns

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, shortCode, originalURL); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByShortCode"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE short_code = $1`

	return r.getOne(ctx, op, query, shortCode)
}

func (r *URLRepository) RetrieveByID(ctx context.Context, id int64) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByID"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE id = $1`

	return r.getOne(ctx, op, query, id)
}

// RetrieveAndUpdateStats increments the click counter in a single statement and
// returns the updated row, so concurrent redirects never lose an update.
func (r *URLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveAndUpdateStats"
	const query = `UPDATE urls SET click_count = click_count + 1 WHERE short_code = $1 RETURNING ` + urlColumns

	return r.getOne(ctx, op, query, shortCode)
}

func (r *URLRepository) getOne(ctx context.Context, op, query string, args ...any) (*entity.URL, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) List(ctx context.Context, limit, offset int) (*entity.URLPage, error) {
	const op = "adapter.repository.postgres.URLRepository.List"
	const countQuery = `SELECT COUNT(*) FROM urls`
	const query = `SELECT ` + urlColumns + ` FROM urls ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, fmt.Errorf("%s: failed to count urls: %w", op, err)
	}

	var rows []urlDB
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: failed to select from urls table: %w", op, err)
	}

	return &entity.URLPage{URLs: toEntities(rows), Total: total}, nil
}

func (r *URLRepository) RetrieveByDateRange(ctx context.Context, start, end time.Time) ([]*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByDateRange"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at DESC, id DESC`

	return r.selectMany(ctx, op, query, start, end)
}

func (r *URLRepository) RetrieveTopByClicks(ctx context.Context, limit int) ([]*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveTopByClicks"
	const query = `SELECT ` + urlColumns + ` FROM urls ORDER BY click_count DESC, created_at DESC LIMIT $1`

	return r.selectMany(ctx, op, query, limit)
}

func (r *URLRepository) selectMany(ctx context.Context, op, query string, args ...any) ([]*entity.URL, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rows []urlDB

	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select from urls table: %w", op, err)
	}

	return toEntities(rows), nil
}

// Remove reports whether a row with shortCode existed and was deleted.
func (r *URLRepository) Remove(ctx context.Context, shortCode string) (bool, error) {
	const op = "adapter.repository.postgres.URLRepository.Remove"
	const query = `DELETE FROM urls WHERE short_code = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return false, fmt.Errorf("%s: failed to delete from urls table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return rowsAffected > 0, nil
}

// Stats aggregates all rows; URLsCreatedToday counts rows created at or after since.
func (r *URLRepository) Stats(ctx context.Context, since time.Time) (*entity.Stats, error) {
	const op = "adapter.repository.postgres.URLRepository.Stats"
	const query = `SELECT
		COUNT(*) AS total_urls,
		COALESCE(SUM(click_count), 0)::BIGINT AS total_clicks,
		COUNT(*) FILTER (WHERE created_at >= $1) AS urls_created_today
	FROM urls`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stats statsDB

	if err := r.db.GetContext(ctx, &stats, query, since); err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate urls table: %w", op, err)
	}

	return entity.NewStats(stats.TotalURLs, stats.TotalClicks, stats.URLsCreatedToday), nil
}

func (r *URLRepository) HealthCheck(ctx context.Context) bool {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var one int
	return r.db.GetContext(ctx, &one, `SELECT 1`) == nil
}
