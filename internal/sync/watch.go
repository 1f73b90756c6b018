package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jobboard/jobboard/internal/source"
	"github.com/jobboard/jobboard/internal/source/file"
)

// WatchConfig holds configuration for Watch.
type WatchConfig struct {
	// Debounce is how long the export directory must stay quiet before a
	// re-sync starts. This batches the several writes of one export.
	Debounce time.Duration

	// Logger for watcher activity
	Logger *log.Logger
}

// DefaultWatchConfig returns sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		Debounce: 500 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watch syncs src into the store once, then again every time an export
// file in dir changes. It blocks until ctx is cancelled.
//
// Only files named after a mirrored entity with a known export extension
// trigger a sync (companies.json, jobs.yaml, ...). A failing sync is logged
// and the watcher keeps running.
func Watch(ctx context.Context, s Syncer, src source.Source, dir string, config *WatchConfig) error {
	if config == nil {
		config = DefaultWatchConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultWatchConfig().Logger
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultWatchConfig().Debounce
	}
	logger := config.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Printf("Watching: %s", dir)

	resync := func() {
		if _, err := s.Synchronize(ctx, src); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				logger.Printf("Sync already running, skipping")
				return
			}
			if ctx.Err() == nil {
				logger.Printf("Sync error: %v", err)
			}
		}
	}

	resync()

	ticker := time.NewTicker(config.Debounce / 2)
	defer ticker.Stop()

	var lastChange time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Println("Watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isExportFile(event.Name) {
				continue
			}
			logger.Printf("File event: %s %s", event.Op, filepath.Base(event.Name))
			lastChange = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("Watcher error: %v", err)

		case <-ticker.C:
			if lastChange.IsZero() || time.Since(lastChange) < config.Debounce {
				continue
			}
			lastChange = time.Time{}
			resync()
		}
	}
}

// isExportFile reports whether path names an export file of a mirrored entity.
func isExportFile(path string) bool {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if !slices.Contains(file.Extensions, ext) {
		return false
	}
	base := strings.TrimSuffix(name, ext)
	for _, entity := range source.Entities {
		if base == strings.ToLower(string(entity)) {
			return true
		}
	}
	return false
}
