// Package testutil provides database and HTTP helpers for package tests.
package testutil

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/Tatenda/fullstori/internal/database"
)

//go:embed schema.sql
var schemaSQL string

// TestDB is an isolated on-disk SQLite database carrying the application schema.
type TestDB struct {
	DB   *bun.DB
	Path string
}

// Close releases the database handle.
func (t *TestDB) Close() {
	_ = t.DB.Close()
}

// SetupTestDB creates a fresh database in a temporary directory. It is closed
// and removed when the test finishes. Set TEST_SQL_DEBUG=1 to log queries.
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fullstori_test.db")
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		path,
	)

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if os.Getenv("TEST_SQL_DEBUG") != "" {
		db.AddQueryHook(database.NewQueryLoggingHook(slog.Default()))
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("apply schema: %v", err)
	}

	tdb := &TestDB{DB: db, Path: path}
	t.Cleanup(tdb.Close)
	return tdb
}

func applySchema(ctx context.Context, db *bun.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s", err, stmt)
		}
	}
	return nil
}

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Count returns the number of rows in table matching where (may be empty).
func Count(t testing.TB, db bun.IDB, table, where string, args ...any) int {
	t.Helper()
	q := db.NewSelect().TableExpr(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	n, err := q.Count(context.Background())
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
