// Package migrations embeds the SQL schema shipped with the binary.
package migrations

import "embed"

// Postgres holds the golang-migrate files for PostgreSQL under the "postgres" directory.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// PostgresDir is the directory inside Postgres that contains the migration files.
const PostgresDir = "postgres"

// SQLiteSchema is applied as is when the SQLite store is opened. created_at is
// stored as Unix nanoseconds in UTC.
//
//go:embed sqlite/schema.sql
var SQLiteSchema string
