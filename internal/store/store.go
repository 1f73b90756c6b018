// Package store provides the SQLite-backed local store for the job board.
//
// The store mirrors three entity tables (companies, jobs, tags) and one join
// table (job_tags) that are written exclusively by the sync package and read
// by the web layer.
//
// Architecture:
//   - Database file: db.sqlite3 by default
//   - WAL mode: readers keep working while a sync run writes
//   - Schema: companies, jobs, tags, job_tags
//   - Indexes: external_key on every entity table
//
// Rows are exchanged as named-field structs (Company, Job, Tag, JobTagPair).
// Positional SQL parameters exist only inside this package.
//
// Foreign keys are declared in the schema but not enforced: a sync run deletes
// companies that jobs may still reference and deletes jobs before their stale
// job_tags rows are purged.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a lookup by local id (GetJobContext) or by
// external key (CompanyByKeyContext, TagByKeyContext, JobByKeyContext)
// matches no row.
var ErrNotFound = errors.New("store: not found")

const (
	shortStringMaxLength = 144
	urlMaxLength         = 512
)

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection at the specified path.
//
// The database is opened in WAL mode with a 5 second busy timeout. Parent
// directories are created as needed. The caller must call Close when done.
//
// Example:
//
//	db, err := store.Open("db.sqlite3")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	path = strings.TrimPrefix(path, "file:")
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so that every pooled connection gets them.
	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(0)", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{conn: conn, path: path}, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

var schemaStatements = []string{
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_key CHAR(17) NOT NULL,
		name VARCHAR(%[1]d),
		location VARCHAR(%[1]d),
		web_url VARCHAR(%[2]d),
		linkedin_url VARCHAR(%[2]d)
	)`, shortStringMaxLength, urlMaxLength),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_key CHAR(17) NOT NULL,
		title VARCHAR(%[1]d) NOT NULL,
		description TEXT NOT NULL,
		location VARCHAR(%[1]d),
		requirements TEXT,
		responsibilities TEXT,
		salary_range TEXT,
		hiring_process TEXT,
		company_id INTEGER,
		FOREIGN KEY (company_id) REFERENCES companies(id)
	)`, shortStringMaxLength),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_key CHAR(17) NOT NULL,
		name VARCHAR(%d)
	)`, shortStringMaxLength),

	`CREATE TABLE IF NOT EXISTS job_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER,
		tag_id INTEGER,
		FOREIGN KEY (job_id) REFERENCES jobs(id),
		FOREIGN KEY (tag_id) REFERENCES tags(id)
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS company_external_key_index ON companies (external_key ASC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS jobs_external_key_index ON jobs (external_key ASC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tags_external_key_index ON tags (external_key ASC)`,
}

// EnsureSchema creates the database schema if it doesn't exist.
//
// This creates the companies, jobs, tags and job_tags tables along with an
// ascending index on each entity table's external_key. It is idempotent and
// safe to call on every sync run; each statement commits on its own.
func (db *DB) EnsureSchema() error {
	return db.EnsureSchemaContext(context.Background())
}

// EnsureSchemaContext creates the database schema with context support.
func (db *DB) EnsureSchemaContext(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Counts holds the number of rows per table.
type Counts struct {
	Companies int
	Jobs      int
	Tags      int
	JobTags   int
}

// CountsContext returns the number of rows in every table.
func (db *DB) CountsContext(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"companies", &c.Companies},
		{"jobs", &c.Jobs},
		{"tags", &c.Tags},
		{"job_tags", &c.JobTags},
	}
	for _, target := range targets {
		err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+target.table).Scan(target.dst)
		if err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", target.table, err)
		}
	}
	return c, nil
}
