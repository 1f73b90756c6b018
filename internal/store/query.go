package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// JobFilter narrows the job listing. Zero values match everything.
type JobFilter struct {
	// Query is matched as a substring of the job title.
	Query string
	// Tag is the exact name of a tag the job must carry.
	Tag string
}

// Listing is a job joined with its company name, as shown by the web layer.
// NULL columns read as empty strings.
type Listing struct {
	ID               int64
	Title            string
	Description      string
	Location         string
	Requirements     string
	Responsibilities string
	SalaryRange      string
	HiringProcess    string
	CompanyName      string
}

const listingColumns = `
	jobs.id, jobs.title,
	COALESCE(jobs.description, ''), COALESCE(jobs.location, ''),
	COALESCE(jobs.requirements, ''), COALESCE(jobs.responsibilities, ''),
	COALESCE(jobs.salary_range, ''), COALESCE(jobs.hiring_process, ''),
	COALESCE(companies.name, '')`

func (f JobFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Query != "" {
		clauses = append(clauses, `jobs.title LIKE ?`)
		args = append(args, "%"+f.Query+"%")
	}
	if f.Tag != "" {
		clauses = append(clauses, `jobs.id IN (
			SELECT job_tags.job_id FROM job_tags
			JOIN tags ON tags.id = job_tags.tag_id
			WHERE tags.name = ?)`)
		args = append(args, f.Tag)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CountJobsContext returns the number of jobs matching f.
func (db *DB) CountJobsContext(ctx context.Context, f JobFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

// ListJobsContext returns up to limit jobs matching f, skipping the first
// offset, ordered by id.
func (db *DB) ListJobsContext(ctx context.Context, f JobFilter, offset, limit int) ([]Listing, error) {
	where, args := f.where()
	query := `SELECT ` + listingColumns + `
	FROM jobs LEFT JOIN companies ON companies.id = jobs.company_id` + where + `
	ORDER BY jobs.id
	LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return listings, nil
}

// GetJobContext returns the job with local id, or ErrNotFound.
func (db *DB) GetJobContext(ctx context.Context, id int64) (*Listing, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+listingColumns+`
	FROM jobs LEFT JOIN companies ON companies.id = jobs.company_id
	WHERE jobs.id = ?`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// TagsForJobsContext returns the tag names of each given job, keyed by job id
// and ordered by tag name. Jobs without tags are absent from the map.
func (db *DB) TagsForJobsContext(ctx context.Context, jobIDs []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string)
	for start := 0; start < len(jobIDs); start += idChunkSize {
		end := min(start+idChunkSize, len(jobIDs))
		chunk := jobIDs[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ")

		rows, err := db.conn.QueryContext(ctx, `
		SELECT job_tags.job_id, tags.name
		FROM job_tags JOIN tags ON tags.id = job_tags.tag_id
		WHERE job_tags.job_id IN (`+placeholders+`) AND tags.name IS NOT NULL
		ORDER BY job_tags.job_id, tags.name`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query job tags: %w", err)
		}
		for rows.Next() {
			var jobID int64
			var name string
			if err := rows.Scan(&jobID, &name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan job tag: %w", err)
			}
			tags[jobID] = append(tags[jobID], name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating job tags: %w", err)
		}
	}
	return tags, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (Listing, error) {
	var l Listing
	err := s.Scan(
		&l.ID, &l.Title, &l.Description, &l.Location, &l.Requirements,
		&l.Responsibilities, &l.SalaryRange, &l.HiringProcess, &l.CompanyName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return l, err
	}
	if err != nil {
		return l, fmt.Errorf("failed to scan job: %w", err)
	}
	return l, nil
}
