package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/jobboard/jobboard/internal/source"
)

// Scheduler runs Synchronize on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	syncer Syncer
	src    source.Source
	spec   string
	logger *log.Logger
}

// NewScheduler creates a Scheduler for spec, a standard five-field cron
// expression or a descriptor such as "@hourly" or "@every 30m".
//
// If logger is nil, a default logger writing to stderr is used.
func NewScheduler(s Syncer, src source.Source, spec string, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[schedule] ", log.LstdFlags)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.PrintfLogger(logger))),
		syncer: s,
		src:    src,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start registers the sync job and starts the scheduler. Runs are made with
// ctx, so cancelling it aborts an in-flight sync.
func (sc *Scheduler) Start(ctx context.Context) error {
	_, err := sc.cron.AddFunc(sc.spec, func() {
		sc.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	sc.cron.Start()
	sc.logger.Printf("Cron started, spec: %s", sc.spec)
	return nil
}

// RunOnce performs one scheduled sync. Overlapping runs are skipped.
func (sc *Scheduler) RunOnce(ctx context.Context) {
	report, err := sc.syncer.Synchronize(ctx, sc.src)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		sc.logger.Println("Previous sync still running, skipping this tick")
	case err != nil:
		sc.logger.Printf("Scheduled sync failed: %v", err)
	default:
		sc.logger.Printf("Scheduled sync complete in %s", report.Duration)
	}
}

// Stop stops the scheduler and waits for a running sync to finish.
func (sc *Scheduler) Stop() {
	<-sc.cron.Stop().Done()
	sc.logger.Println("Cron stopped")
}
