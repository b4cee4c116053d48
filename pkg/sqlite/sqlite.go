// Package sqlite opens an embedded SQLite database through sqlx and the pure Go
// modernc driver.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// New opens dsn, applies schema and pins the pool to a single connection.
// SQLite allows one writer at a time and an in-memory database lives only as
// long as its connection, so both file and ":memory:" DSNs share that limit.
func New(ctx context.Context, dsn, schema string) (*sqlx.DB, error) {
	const op = "sqlite.New"

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if schema != "" {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: failed to apply schema: %w", op, err)
		}
	}

	return db, nil
}
