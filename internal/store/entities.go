package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Table names an entity table keyed by external_key.
type Table string

const (
	Companies Table = "companies"
	Jobs      Table = "jobs"
	Tags      Table = "tags"
)

func (t Table) check() error {
	switch t {
	case Companies, Jobs, Tags:
		return nil
	default:
		return fmt.Errorf("unknown entity table %q", string(t))
	}
}

// Company is a row of the companies table.
type Company struct {
	ID          int64
	ExternalKey string
	Name        *string
	Location    *string
	WebURL      *string
	LinkedinURL *string
}

// Tag is a row of the tags table.
type Tag struct {
	ID          int64
	ExternalKey string
	Name        *string
}

// Job is a row of the jobs table.
type Job struct {
	ID               int64
	ExternalKey      string
	Title            string
	Description      *string
	Location         *string
	Requirements     *string
	Responsibilities *string
	SalaryRange      *string
	HiringProcess    *string
	CompanyID        *int64

	// PreserveCompany leaves company_id untouched on update.
	PreserveCompany bool
}

// ExternalKeysContext returns every external_key currently stored in table.
func (db *DB) ExternalKeysContext(ctx context.Context, table Table) ([]string, error) {
	if err := table.check(); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, "SELECT external_key FROM "+string(table))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s keys: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan %s key: %w", table, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s keys: %w", table, err)
	}
	return keys, nil
}

// LocalIDContext resolves an external_key to the local row id.
// The boolean is false when no row carries the key.
func (db *DB) LocalIDContext(ctx context.Context, table Table, externalKey string) (int64, bool, error) {
	if err := table.check(); err != nil {
		return 0, false, err
	}

	var id int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT id FROM "+string(table)+" WHERE external_key = ?", externalKey,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up %s %s: %w", table, externalKey, err)
	}
	return id, true, nil
}

// DeleteByExternalKeyContext removes the row of table carrying externalKey.
// Returns nil if the row doesn't exist (idempotent).
func (db *DB) DeleteByExternalKeyContext(ctx context.Context, table Table, externalKey string) error {
	if err := table.check(); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM "+string(table)+" WHERE external_key = ?", externalKey)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, externalKey, err)
	}
	return nil
}

// InsertCompanyContext creates a company row and sets c.ID.
func (db *DB) InsertCompanyContext(ctx context.Context, c *Company) error {
	res, err := db.conn.ExecContext(ctx, `
	INSERT INTO companies (external_key, name, location, web_url, linkedin_url)
	VALUES (?, ?, ?, ?, ?)`,
		c.ExternalKey, nullString(c.Name), nullString(c.Location),
		nullString(c.WebURL), nullString(c.LinkedinURL),
	)
	if err != nil {
		return fmt.Errorf("failed to insert company %s: %w", c.ExternalKey, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCompanyContext rewrites the mutable columns of the company matching
// c.ExternalKey.
func (db *DB) UpdateCompanyContext(ctx context.Context, c *Company) error {
	_, err := db.conn.ExecContext(ctx, `
	UPDATE companies SET name = ?, location = ?, web_url = ?, linkedin_url = ?
	WHERE external_key = ?`,
		nullString(c.Name), nullString(c.Location),
		nullString(c.WebURL), nullString(c.LinkedinURL),
		c.ExternalKey,
	)
	if err != nil {
		return fmt.Errorf("failed to update company %s: %w", c.ExternalKey, err)
	}
	return nil
}

// InsertTagContext creates a tag row and sets t.ID.
func (db *DB) InsertTagContext(ctx context.Context, t *Tag) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (external_key, name) VALUES (?, ?)`,
		t.ExternalKey, nullString(t.Name),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tag %s: %w", t.ExternalKey, err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

// UpdateTagContext rewrites the name of the tag matching t.ExternalKey.
func (db *DB) UpdateTagContext(ctx context.Context, t *Tag) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE tags SET name = ? WHERE external_key = ?`,
		nullString(t.Name), t.ExternalKey,
	)
	if err != nil {
		return fmt.Errorf("failed to update tag %s: %w", t.ExternalKey, err)
	}
	return nil
}

// InsertJobContext creates a job row and sets j.ID.
func (db *DB) InsertJobContext(ctx context.Context, j *Job) error {
	res, err := db.conn.ExecContext(ctx, `
	INSERT INTO jobs (
		external_key, title, description, location, requirements,
		responsibilities, salary_range, hiring_process, company_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ExternalKey, j.Title, nullString(j.Description), nullString(j.Location),
		nullString(j.Requirements), nullString(j.Responsibilities),
		nullString(j.SalaryRange), nullString(j.HiringProcess), nullInt64(j.CompanyID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", j.ExternalKey, err)
	}
	j.ID, err = res.LastInsertId()
	return err
}

// UpdateJobContext rewrites the mutable columns of the job matching
// j.ExternalKey. company_id is left alone when j.PreserveCompany is set.
func (db *DB) UpdateJobContext(ctx context.Context, j *Job) error {
	args := []any{
		j.Title, nullString(j.Description), nullString(j.Location),
		nullString(j.Requirements), nullString(j.Responsibilities),
		nullString(j.SalaryRange), nullString(j.HiringProcess),
	}
	query := `
	UPDATE jobs SET title = ?, description = ?, location = ?,
	                requirements = ?, responsibilities = ?, salary_range = ?,
	                hiring_process = ?`
	if !j.PreserveCompany {
		query += `, company_id = ?`
		args = append(args, nullInt64(j.CompanyID))
	}
	query += ` WHERE external_key = ?`
	args = append(args, j.ExternalKey)

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update job %s: %w", j.ExternalKey, err)
	}
	return nil
}

// CompanyByKeyContext loads a company by external_key.
func (db *DB) CompanyByKeyContext(ctx context.Context, externalKey string) (*Company, error) {
	var c Company
	err := db.conn.QueryRowContext(ctx, `
	SELECT id, external_key, name, location, web_url, linkedin_url
	FROM companies WHERE external_key = ?`, externalKey,
	).Scan(&c.ID, &c.ExternalKey, &c.Name, &c.Location, &c.WebURL, &c.LinkedinURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", externalKey, err)
	}
	return &c, nil
}

// TagByKeyContext loads a tag by external_key.
func (db *DB) TagByKeyContext(ctx context.Context, externalKey string) (*Tag, error) {
	var t Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, external_key, name FROM tags WHERE external_key = ?`, externalKey,
	).Scan(&t.ID, &t.ExternalKey, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %s: %w", externalKey, err)
	}
	return &t, nil
}

// JobByKeyContext loads a job by external_key.
func (db *DB) JobByKeyContext(ctx context.Context, externalKey string) (*Job, error) {
	var j Job
	err := db.conn.QueryRowContext(ctx, `
	SELECT id, external_key, title, description, location, requirements,
	       responsibilities, salary_range, hiring_process, company_id
	FROM jobs WHERE external_key = ?`, externalKey,
	).Scan(
		&j.ID, &j.ExternalKey, &j.Title, &j.Description, &j.Location, &j.Requirements,
		&j.Responsibilities, &j.SalaryRange, &j.HiringProcess, &j.CompanyID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", externalKey, err)
	}
	return &j, nil
}

// nullString converts an optional value to a nullable SQL string.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
