package sync

import (
	"context"
	"testing"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	database := setupTestDB(t)
	if _, err := NewScheduler(New(database, quietLogger()), scenarioSource(), "not a schedule", quietLogger()); err == nil {
		t.Fatal("NewScheduler() should reject an invalid cron spec")
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	sc, err := NewScheduler(New(database, quietLogger()), scenarioSource(), "@every 1h", quietLogger())
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}
	if err := sc.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer sc.Stop()

	sc.RunOnce(ctx)

	counts, err := database.CountsContext(ctx)
	if err != nil {
		t.Fatalf("CountsContext() failed: %v", err)
	}
	if counts.Jobs != 1 {
		t.Errorf("jobs = %d after RunOnce, want 1", counts.Jobs)
	}
}
