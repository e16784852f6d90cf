package database

import (
	"database/sql"
	"time"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sqlx.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders to the driver's bindvar syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertProgressQuery inserts a user_progress row or overwrites the one with the same
	// (user_id, english_id) key. Placeholders, in order: user_id, english_id, ease, seen,
	// correct_count, incorrect_count, last_seen.
	UpsertProgressQuery() string

	// ResetSequenceQuery returns the statement that moves table's id sequence past the
	// largest stored id after rows were inserted with explicit ids, or "" if not needed
	ResetSequenceQuery(table string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

const progressColumns = "user_id, english_id, ease, seen, correct_count, incorrect_count, last_seen"

// upsertOnConflict works for both SQLite and PostgreSQL
const upsertOnConflict = `INSERT INTO user_progress (` + progressColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, english_id) DO UPDATE SET
		ease = excluded.ease,
		seen = excluded.seen,
		correct_count = excluded.correct_count,
		incorrect_count = excluded.incorrect_count,
		last_seen = excluded.last_seen`

// poolLimits sizes a connection pool
type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

func (p poolLimits) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
	db.SetConnMaxIdleTime(p.maxIdleTime)
}

// serverPool is shared by the Postgres and MySQL dialects. An answered question
// costs one read and one upsert, so a small pool covers many learners.
var serverPool = poolLimits{
	maxOpen:     10,
	maxIdle:     10,
	maxLifetime: 30 * time.Minute,
	maxIdleTime: 5 * time.Minute,
}

// sqlitePool keeps connections open for the life of the process; WAL lets the
// readers run beside the single writer.
var sqlitePool = poolLimits{maxOpen: 4, maxIdle: 4}
