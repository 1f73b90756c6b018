package sync

import (
	"context"
	"errors"
	"time"

	"github.com/jobboard/jobboard/internal/source"
	"github.com/jobboard/jobboard/internal/store"
)

// ErrSyncInProgress is returned by Synchronize when another run of the same
// Syncer has not finished yet.
var ErrSyncInProgress = errors.New("sync already in progress")

// Syncer keeps the local store in sync with an external source.
//
// Each Reconcile method makes one local table match the given external
// records: keys present on both sides are updated, keys only present
// externally are created and keys only present locally are deleted. Every
// write commits on its own, so a failure part way through leaves the writes
// made so far in place.
type Syncer interface {
	// Synchronize runs a full sync from src.
	//
	// The steps run strictly in order: schema, companies, tags, jobs,
	// job tags. Companies precede jobs so that job company references
	// resolve against the current company set. The first failing step
	// aborts the run and its error is returned alongside the partial report.
	//
	// Returns ErrSyncInProgress if a run is already active.
	//
	// Example:
	//   report, err := syncer.Synchronize(ctx, airtableClient)
	Synchronize(ctx context.Context, src source.Source) (*Report, error)

	// ReconcileCompanies makes the companies table match records.
	ReconcileCompanies(ctx context.Context, records []source.Record) (Result, error)

	// ReconcileTags makes the tags table match records.
	ReconcileTags(ctx context.Context, records []source.Record) (Result, error)

	// ReconcileJobs makes the jobs table match records.
	//
	// Records without a title are skipped: they are neither created nor
	// updated, and a row previously synced under the same key is deleted.
	// The returned links hold one (job key, tag key) entry per tag listed
	// on every job that was not skipped.
	ReconcileJobs(ctx context.Context, records []source.Record) (Result, []TagLink, error)

	// ReconcileJobTags makes the job_tags table equal pairs, treated as a
	// set. Duplicate pairs collapse to one row; existing duplicate rows
	// keep the lowest id. An empty pairs slice empties the table.
	ReconcileJobTags(ctx context.Context, pairs []store.JobTagPair) (Result, error)
}

// TagLink ties a job to a tag by their external keys.
type TagLink struct {
	JobKey string
	TagKey string
}

// Result summarizes one reconcile step.
type Result struct {
	Kind    string `json:"kind"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Skipped int    `json:"skipped"`
}

// Report summarizes a Synchronize run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Observer receives progress events from Synchronize.
//
// Observers are called synchronously from the sync goroutine and must not
// block for long.
type Observer interface {
	OnSyncEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnSyncEvent implements Observer.
func (f ObserverFunc) OnSyncEvent(e Event) { f(e) }

// EventType identifies a sync progress event.
type EventType string

const (
	EventSyncStarted  EventType = "sync_started"
	EventEntitySynced EventType = "entity_synced"
	EventSyncComplete EventType = "sync_complete"
	EventSyncFailed   EventType = "sync_failed"
)

// Event is a sync progress notification.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Result    *Result   `json:"result,omitempty"`
	Report    *Report   `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
}
