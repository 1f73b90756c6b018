package store

import (
	"context"
	"fmt"
	"strings"
)

// Chunk sizes keep every statement well under SQLite's bound-parameter limit.
const (
	pairChunkSize = 400
	idChunkSize   = 500
)

// JobTagPair links a local job id to a local tag id.
type JobTagPair struct {
	JobID int64
	TagID int64
}

// JobTag is a row of the job_tags table.
type JobTag struct {
	ID int64
	JobTagPair
}

// FindJobTagsContext returns the existing job_tags rows whose (job_id, tag_id)
// pair is one of pairs, ordered by id.
//
// The lookup uses a row-value predicate, (job_id, tag_id) IN (VALUES ...),
// issued in bounded chunks.
func (db *DB) FindJobTagsContext(ctx context.Context, pairs []JobTagPair) ([]JobTag, error) {
	var found []JobTag
	for start := 0; start < len(pairs); start += pairChunkSize {
		end := min(start+pairChunkSize, len(pairs))
		chunk := pairs[start:end]

		values := make([]string, len(chunk))
		args := make([]any, 0, 2*len(chunk))
		for i, p := range chunk {
			values[i] = "(?, ?)"
			args = append(args, p.JobID, p.TagID)
		}

		query := `
		SELECT id, job_id, tag_id FROM job_tags
		WHERE (job_id, tag_id) IN (VALUES ` + strings.Join(values, ", ") + `)
		ORDER BY id`

		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query job tags: %w", err)
		}
		tags, err := scanJobTags(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, tags...)
	}
	return found, nil
}

// InsertJobTagContext creates a job_tags row and returns its id.
func (db *DB) InsertJobTagContext(ctx context.Context, pair JobTagPair) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO job_tags (job_id, tag_id) VALUES (?, ?)`, pair.JobID, pair.TagID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job tag %d/%d: %w", pair.JobID, pair.TagID, err)
	}
	return res.LastInsertId()
}

// ListJobTagsContext returns every job_tags row ordered by id.
func (db *DB) ListJobTagsContext(ctx context.Context) ([]JobTag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, job_id, tag_id FROM job_tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list job tags: %w", err)
	}
	return scanJobTags(rows)
}

// DeleteJobTagsContext removes the job_tags rows with the given ids and
// returns how many rows were deleted. An empty ids slice deletes nothing.
func (db *DB) DeleteJobTagsContext(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	for start := 0; start < len(ids); start += idChunkSize {
		end := min(start+idChunkSize, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ")

		res, err := db.conn.ExecContext(ctx,
			`DELETE FROM job_tags WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete job tags: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to count deleted job tags: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

func scanJobTags(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}) ([]JobTag, error) {
	defer rows.Close()

	var tags []JobTag
	for rows.Next() {
		var jt JobTag
		if err := rows.Scan(&jt.ID, &jt.JobID, &jt.TagID); err != nil {
			return nil, fmt.Errorf("failed to scan job tag: %w", err)
		}
		tags = append(tags, jt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job tags: %w", err)
	}
	return tags, nil
}
