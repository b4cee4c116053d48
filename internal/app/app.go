package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortener/internal/config"
	"github.com/vadimbarashkov/shortener/internal/ratelimit"
	"github.com/vadimbarashkov/shortener/internal/usecase"
	"github.com/vadimbarashkov/shortener/migrations"
	"github.com/vadimbarashkov/shortener/pkg/postgres"
	"github.com/vadimbarashkov/shortener/pkg/sqlite"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortener/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/shortener/internal/adapter/repository/postgres"
	sqliterepo "github.com/vadimbarashkov/shortener/internal/adapter/repository/sqlite"
)

const shutdownTimeout = 10 * time.Second

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg)

	urlUseCase, closeStore, err := newURLUseCase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeStore()

	routerOpts := []delivery.RouterOption{
		delivery.WithBaseURL(cfg.BaseURL),
		delivery.WithStackTraces(cfg.Env != config.EnvProd),
	}

	if cfg.RateLimit.Enabled {
		limiter, closeLimiter, err := newLimiter(ctx, cfg, logger.Logger)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer closeLimiter()

		routerOpts = append(routerOpts, delivery.WithRateLimiter(limiter))
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, urlUseCase, routerOpts...),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env),
			slog.String("storage", cfg.Storage),
		)

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func newLogger(cfg *config.Config) *httplog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	return httplog.NewLogger("url-shortener", httplog.Options{
		LogLevel:         level,
		JSON:             cfg.Env == config.EnvProd,
		Concise:          cfg.Env != config.EnvProd,
		RequestHeaders:   cfg.Env != config.EnvProd,
		MessageFieldName: "message",
		TimeFieldFormat:  time.RFC3339,
		Tags: map[string]string{
			"env": cfg.Env,
		},
		QuietDownRoutes: []string{
			"/api/ping",
			"/api/health",
		},
		QuietDownPeriod: 10 * time.Second,
	})
}

// newURLUseCase opens the configured store and returns a use case bound to it
// together with a function releasing the store.
func newURLUseCase(ctx context.Context, cfg *config.Config) (*usecase.URLUseCase, func() error, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		db, err := sqlite.New(ctx, cfg.SQLite.DSN, migrations.SQLiteSchema)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}

		urlRepo := sqliterepo.NewURLRepository(db, sqliterepo.WithQueryTimeout(cfg.SQLite.QueryTimeout))
		return usecase.New(cfg.ShortCodeLength, urlRepo), db.Close, nil
	default:
		dsn := cfg.Postgres.DSN()

		db, err := postgres.New(
			ctx,
			dsn,
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(migrations.Postgres, migrations.PostgresDir, dsn); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		urlRepo := pgrepo.NewURLRepository(db, pgrepo.WithQueryTimeout(cfg.Postgres.QueryTimeout))
		return usecase.New(cfg.ShortCodeLength, urlRepo), db.Close, nil
	}
}

func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, func() error, error) {
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis is unreachable, rate limiting will fail open until it recovers",
				slog.String("addr", cfg.Redis.Addr),
				slog.Any("err", err),
			)
		}

		limiter, err := ratelimit.NewRedis(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}

		return limiter, client.Close, nil
	default:
		limiter, err := ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}

		return limiter, func() error { return nil }, nil
	}
}
