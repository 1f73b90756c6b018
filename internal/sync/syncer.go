package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jobboard/jobboard/internal/source"
	"github.com/jobboard/jobboard/internal/store"
)

// syncer implements the Syncer interface.
type syncer struct {
	db        *store.DB
	logger    *log.Logger
	verbose   bool
	observers []Observer

	// running holds a token while Synchronize is active.
	running chan struct{}
}

// Option configures a Syncer.
type Option func(*syncer)

// WithObserver registers an observer for sync progress events.
func WithObserver(o Observer) Option {
	return func(s *syncer) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithVerbose enables per-record log lines.
func WithVerbose(verbose bool) Option {
	return func(s *syncer) {
		s.verbose = verbose
	}
}

// New creates a new Syncer instance.
//
// The schema does not need to exist yet: Synchronize creates it. Callers
// using the Reconcile methods directly must call EnsureSchema first.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	database, err := store.Open("db.sqlite3")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	syncer := sync.New(database, nil)
func New(database *store.DB, logger *log.Logger, opts ...Option) Syncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	s := &syncer{
		db:      database,
		logger:  logger,
		running: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synchronize implements Syncer.Synchronize.
func (s *syncer) Synchronize(ctx context.Context, src source.Source) (*Report, error) {
	select {
	case s.running <- struct{}{}:
		defer func() { <-s.running }()
	default:
		return nil, ErrSyncInProgress
	}

	report := &Report{StartedAt: time.Now()}
	s.logger.Printf("Starting sync")
	s.emit(Event{Type: EventSyncStarted})

	err := s.run(ctx, src, report)
	report.Duration = time.Since(report.StartedAt)

	if err != nil {
		s.logger.Printf("Sync failed after %s: %v", report.Duration.Round(time.Millisecond), err)
		s.emit(Event{Type: EventSyncFailed, Report: report, Error: err.Error()})
		return report, err
	}

	s.logger.Printf("Sync complete in %s", report.Duration.Round(time.Millisecond))
	s.emit(Event{Type: EventSyncComplete, Report: report})
	return report, nil
}

// run performs the sync steps in order, appending each result to report.
func (s *syncer) run(ctx context.Context, src source.Source, report *Report) error {
	if err := s.db.EnsureSchemaContext(ctx); err != nil {
		return err
	}

	record := func(r Result) {
		report.Results = append(report.Results, r)
		s.logger.Printf("%s: created=%d updated=%d deleted=%d skipped=%d",
			r.Kind, r.Created, r.Updated, r.Deleted, r.Skipped)
		s.emit(Event{Type: EventEntitySynced, Result: &r})
	}

	companies, err := fetch(ctx, src, source.Companies)
	if err != nil {
		return err
	}
	res, err := s.ReconcileCompanies(ctx, companies)
	if err != nil {
		return fmt.Errorf("failed to sync companies: %w", err)
	}
	record(res)

	tags, err := fetch(ctx, src, source.Tags)
	if err != nil {
		return err
	}
	if res, err = s.ReconcileTags(ctx, tags); err != nil {
		return fmt.Errorf("failed to sync tags: %w", err)
	}
	record(res)

	jobs, err := fetch(ctx, src, source.Jobs)
	if err != nil {
		return err
	}
	res, links, err := s.ReconcileJobs(ctx, jobs)
	if err != nil {
		return fmt.Errorf("failed to sync jobs: %w", err)
	}
	record(res)

	pairs, unresolved, err := s.resolveLinks(ctx, links)
	if err != nil {
		return fmt.Errorf("failed to resolve job tags: %w", err)
	}
	if res, err = s.ReconcileJobTags(ctx, pairs); err != nil {
		return fmt.Errorf("failed to sync job tags: %w", err)
	}
	res.Skipped += unresolved
	record(res)

	return nil
}

func fetch(ctx context.Context, src source.Source, entity source.Entity) ([]source.Record, error) {
	records, err := src.FetchAll(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", entity, err)
	}
	return records, nil
}

// ReconcileCompanies implements Syncer.ReconcileCompanies.
func (s *syncer) ReconcileCompanies(ctx context.Context, records []source.Record) (Result, error) {
	rows := make([]store.Company, 0, len(records))
	for _, rec := range records {
		rows = append(rows, MapCompany(rec))
	}
	return reconcileEntity(ctx, s, entityOps[store.Company]{
		table:  store.Companies,
		key:    func(c *store.Company) string { return c.ExternalKey },
		insert: s.db.InsertCompanyContext,
		update: s.db.UpdateCompanyContext,
	}, rows, 0)
}

// ReconcileTags implements Syncer.ReconcileTags.
func (s *syncer) ReconcileTags(ctx context.Context, records []source.Record) (Result, error) {
	rows := make([]store.Tag, 0, len(records))
	for _, rec := range records {
		rows = append(rows, MapTag(rec))
	}
	return reconcileEntity(ctx, s, entityOps[store.Tag]{
		table:  store.Tags,
		key:    func(t *store.Tag) string { return t.ExternalKey },
		insert: s.db.InsertTagContext,
		update: s.db.UpdateTagContext,
	}, rows, 0)
}

// ReconcileJobs implements Syncer.ReconcileJobs.
func (s *syncer) ReconcileJobs(ctx context.Context, records []source.Record) (Result, []TagLink, error) {
	var (
		rows    = make([]store.Job, 0, len(records))
		links   []TagLink
		skipped int
		linked  = make(map[string]bool, len(records))
	)
	for _, rec := range records {
		if !HasTitle(rec) {
			s.logger.Printf("Skipping job %s: no title", rec.ID)
			skipped++
			continue
		}

		job, err := MapJob(ctx, s.db, rec)
		if err != nil {
			return Result{}, nil, err
		}
		if job.PreserveCompany {
			s.debugf("Job %s: company %v not found locally", rec.ID, rec.Strings(fieldCompany))
		}
		rows = append(rows, job)

		// reconcileEntity keeps the first record of a duplicated key, so
		// only that record's tags are linked.
		if !linked[rec.ID] {
			linked[rec.ID] = true
			links = append(links, JobTagLinks(rec)...)
		}
	}

	res, err := reconcileEntity(ctx, s, entityOps[store.Job]{
		table:  store.Jobs,
		key:    func(j *store.Job) string { return j.ExternalKey },
		insert: s.db.InsertJobContext,
		update: s.db.UpdateJobContext,
	}, rows, skipped)
	if err != nil {
		return res, nil, err
	}
	return res, links, nil
}

// resolveLinks maps tag links to local id pairs. Links whose job or tag has
// no local row are dropped with a warning and counted.
func (s *syncer) resolveLinks(ctx context.Context, links []TagLink) ([]store.JobTagPair, int, error) {
	pairs := make([]store.JobTagPair, 0, len(links))
	unresolved := 0
	for _, link := range links {
		pair, ok, err := MapJobTag(ctx, s.db, link)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			s.logger.Printf("WARNING: job %s tag %s does not resolve locally, skipping", link.JobKey, link.TagKey)
			unresolved++
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs, unresolved, nil
}

// ReconcileJobTags implements Syncer.ReconcileJobTags.
func (s *syncer) ReconcileJobTags(ctx context.Context, pairs []store.JobTagPair) (Result, error) {
	res := Result{Kind: "job_tags"}

	desired := make([]store.JobTagPair, 0, len(pairs))
	wanted := make(map[store.JobTagPair]bool, len(pairs))
	for _, p := range pairs {
		if !wanted[p] {
			wanted[p] = true
			desired = append(desired, p)
		}
	}

	existing, err := s.db.FindJobTagsContext(ctx, desired)
	if err != nil {
		return res, err
	}

	keep := make(map[int64]bool, len(desired))
	present := make(map[store.JobTagPair]bool, len(existing))
	for _, jt := range existing {
		// Rows come back ordered by id, so the first row of a pair is the one kept.
		if present[jt.JobTagPair] {
			continue
		}
		present[jt.JobTagPair] = true
		keep[jt.ID] = true
	}

	for _, p := range desired {
		if present[p] {
			continue
		}
		id, err := s.db.InsertJobTagContext(ctx, p)
		if err != nil {
			return res, err
		}
		s.debugf("Created job tag %d: job=%d tag=%d", id, p.JobID, p.TagID)
		present[p] = true
		keep[id] = true
		res.Created++
	}

	all, err := s.db.ListJobTagsContext(ctx)
	if err != nil {
		return res, err
	}
	var stale []int64
	for _, jt := range all {
		if !keep[jt.ID] {
			stale = append(stale, jt.ID)
		}
	}

	deleted, err := s.db.DeleteJobTagsContext(ctx, stale)
	res.Deleted = int(deleted)
	if err != nil {
		return res, err
	}
	return res, nil
}

// entityOps binds the store operations of one entity table.
type entityOps[T any] struct {
	table  store.Table
	key    func(*T) string
	insert func(context.Context, *T) error
	update func(context.Context, *T) error
}

// reconcileEntity makes ops.table hold exactly the keys of rows: known keys
// are updated, new keys inserted and the remaining local keys deleted.
// A key repeated within rows is applied once and further copies are skipped.
func reconcileEntity[T any](ctx context.Context, s *syncer, ops entityOps[T], rows []T, skipped int) (Result, error) {
	res := Result{Kind: string(ops.table), Skipped: skipped}

	localKeys, err := s.db.ExternalKeysContext(ctx, ops.table)
	if err != nil {
		return res, err
	}
	local := make(map[string]bool, len(localKeys))
	for _, key := range localKeys {
		local[key] = true
	}

	seen := make(map[string]bool, len(rows))
	for i := range rows {
		row := &rows[i]
		key := ops.key(row)
		if seen[key] {
			s.logger.Printf("WARNING: duplicate %s key %s, skipping", ops.table, key)
			res.Skipped++
			continue
		}
		seen[key] = true

		if local[key] {
			if err := ops.update(ctx, row); err != nil {
				return res, err
			}
			s.debugf("Updated %s %s", ops.table, key)
			res.Updated++
			continue
		}
		if err := ops.insert(ctx, row); err != nil {
			return res, err
		}
		s.debugf("Created %s %s", ops.table, key)
		res.Created++
	}

	for _, key := range localKeys {
		if seen[key] {
			continue
		}
		if err := s.db.DeleteByExternalKeyContext(ctx, ops.table, key); err != nil {
			return res, err
		}
		s.debugf("Deleted %s %s", ops.table, key)
		res.Deleted++
	}

	return res, nil
}

func (s *syncer) emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, o := range s.observers {
		o.OnSyncEvent(e)
	}
}

func (s *syncer) debugf(format string, args ...any) {
	if s.verbose {
		s.logger.Printf("DEBUG: "+format, args...)
	}
}
