// Package sync mirrors the external job board tables into the local store.
//
// Overview
//
// A sync run reads every record of the Companies, Tags and Jobs tables from
// a source.Source and makes the local SQLite tables match them. The external
// source always wins: there is no conflict resolution and no retry.
//
// Architecture
//
//	source.Source (Airtable API or export directory)
//	     ├── Companies  → companies
//	     ├── Tags       → tags
//	     └── Jobs       → jobs + job_tags
//	                          ↓
//	                       Syncer
//	                          ↓
//	                     store.DB (SQLite, WAL)
//
// Each entity table is reconciled by external key: keys on both sides are
// updated, external-only keys are inserted and local-only keys are deleted.
// The job_tags join table is then made equal to the set of (job, tag) pairs
// listed on the synced jobs.
//
// Usage
//
//	database, err := store.Open("db.sqlite3")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//
//	client, err := airtable.NewClient(baseID, apiKey)
//	if err != nil {
//	    return err
//	}
//
//	syncer := sync.New(database, nil)
//	report, err := syncer.Synchronize(ctx, client)
//
// Ordering
//
// Companies are reconciled before jobs so job company references resolve
// against the current company set. A job that still references a company
// deleted in the same run keeps the company_id it had: an unresolved
// reference never overwrites an existing one.
//
// Jobs without a title are not mirrored. They are left out of the key set,
// so a row synced earlier under the same key is deleted.
//
// Concurrency
//
// A Syncer runs one Synchronize at a time; a second caller gets
// ErrSyncInProgress. The web layer keeps reading while a run writes (WAL
// mode) and may observe a half-reconciled store.
//
// Watch and Schedule
//
// Watch re-syncs from an export directory whenever its files change.
// Scheduler re-syncs on a cron schedule while the web server runs.
package sync
