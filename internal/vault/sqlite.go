package vault

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on documents.updated_at
const currentSchemaVersion = 1

// SQLite is a Vault that keeps documents in a SQLite database.
// Process runs inside a single transaction.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens a SQLite vault at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Safe to call on an existing database; schema and migrations are idempotent.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (v *SQLite) Close() error {
	if v.db == nil {
		return nil
	}
	return v.db.Close()
}

// Exists implements Vault.
func (v *SQLite) Exists(ctx context.Context, p string) (bool, error) {
	key := Clean(p)
	var n int
	err := v.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM documents WHERE path = ?)
		     + (SELECT COUNT(*) FROM folders WHERE path = ?)`,
		key, key,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", p, err)
	}
	return n > 0, nil
}

// Read implements Vault.
func (v *SQLite) Read(ctx context.Context, p string) (string, error) {
	var content string
	err := v.db.QueryRowContext(ctx,
		"SELECT content FROM documents WHERE path = ?", Clean(p),
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return content, nil
}

// Create implements Vault.
func (v *SQLite) Create(ctx context.Context, p, content string) error {
	res, err := v.db.ExecContext(ctx, `
		INSERT INTO documents (path, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO NOTHING`,
		Clean(p), content, v.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if n == 0 {
		return fmt.Errorf("create %s: %w", p, ErrExists)
	}
	return nil
}

// Process implements Vault.
func (v *SQLite) Process(ctx context.Context, p string, fn TransformFunc) error {
	key := Clean(p)
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("process %s: begin: %w", p, err)
	}
	defer tx.Rollback() // no-op after commit

	var content string
	err = tx.QueryRowContext(ctx, "SELECT content FROM documents WHERE path = ?", key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("process %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("process %s: %w", p, err)
	}

	out, err := fn(content)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET content = ?, updated_at = ? WHERE path = ?",
		out, v.now().UnixMilli(), key,
	); err != nil {
		return fmt.Errorf("process %s: update: %w", p, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("process %s: commit: %w", p, err)
	}
	return nil
}

// CreateFolder implements Vault.
func (v *SQLite) CreateFolder(ctx context.Context, p string) error {
	for dir := Clean(p); dir != ""; dir = Parent(dir) {
		if _, err := v.db.ExecContext(ctx,
			"INSERT INTO folders (path) VALUES (?) ON CONFLICT(path) DO NOTHING", dir,
		); err != nil {
			return fmt.Errorf("create folder %s: %w", p, err)
		}
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_updated_at
		ON documents(updated_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma. Used by tests.
func (v *SQLite) pragma(name string) (string, error) {
	var value string
	if err := v.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
