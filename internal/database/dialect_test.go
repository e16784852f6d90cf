package database

import (
	"strings"
	"testing"
)

func TestDialects(t *testing.T) {
	tests := []struct {
		name          string
		dialect       Dialect
		driver        string
		lastInsertID  bool
		subdir        string
		resetSequence bool
	}{
		{name: "sqlite", dialect: NewSQLiteDialect(), driver: "sqlite3", lastInsertID: true, subdir: "sqlite"},
		{name: "postgres", dialect: NewPostgresDialect(), driver: "postgres", lastInsertID: false, subdir: "postgres", resetSequence: true},
		{name: "mysql", dialect: NewMySQLDialect(), driver: "mysql", lastInsertID: true, subdir: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.SupportsLastInsertId(); got != tt.lastInsertID {
				t.Errorf("SupportsLastInsertId() = %v, want %v", got, tt.lastInsertID)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.subdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.subdir)
			}
			if got := tt.dialect.ResetSequenceQuery("english_words") != ""; got != tt.resetSequence {
				t.Errorf("ResetSequenceQuery() non-empty = %v, want %v", got, tt.resetSequence)
			}
			upsert := tt.dialect.UpsertProgressQuery()
			if strings.Count(upsert, "?") != 7 {
				t.Errorf("UpsertProgressQuery() has %d placeholders, want 7", strings.Count(upsert, "?"))
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		driver  string
		wantErr bool
	}{
		{dbType: "", driver: "sqlite3"},
		{dbType: "sqlite", driver: "sqlite3"},
		{dbType: "PostgreSQL", driver: "postgres"},
		{dbType: "mysql", driver: "mysql"},
		{dbType: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		d, err := DialectFor(tt.dbType)
		if (err != nil) != tt.wantErr {
			t.Errorf("DialectFor(%q) error = %v, wantErr %v", tt.dbType, err, tt.wantErr)
			continue
		}
		if err == nil && d.DriverName() != tt.driver {
			t.Errorf("DialectFor(%q) driver = %s, want %s", tt.dbType, d.DriverName(), tt.driver)
		}
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (id, email) VALUES (?, ?)",
			expected: "INSERT INTO users (id, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE user_progress SET ease = ? WHERE user_id = ? AND english_id = ?",
			expected: "UPDATE user_progress SET ease = ? WHERE user_id = ? AND english_id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn := NewMySQLDialect().DSN(DialectConfig{URL: "quiz:secret@tcp(localhost:3306)/vocab"})
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN() = %q, want parseTime=true", dsn)
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (id INTEGER);

-- second
CREATE INDEX idx_a ON a(id);
`
	stmts := splitStatements(content)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id INTEGER)" {
		t.Errorf("first statement = %q", stmts[0])
	}
}

func TestSQLitePoolLimits(t *testing.T) {
	db := openTestDB(t)
	if got := db.Stats().MaxOpenConnections; got != sqlitePool.maxOpen {
		t.Errorf("MaxOpenConnections = %d, want %d", got, sqlitePool.maxOpen)
	}

	var mode string
	if err := db.Get(&mode, "PRAGMA journal_mode"); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
