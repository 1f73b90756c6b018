package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobboard/jobboard/internal/config"
	jobsync "github.com/jobboard/jobboard/internal/sync"
	"github.com/jobboard/jobboard/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Sync companies, jobs and tags into the local database",
	Long: `Mirror the Companies, Tags and Jobs tables into the local database.

The sync runs in a fixed order:
  1. Companies
  2. Tags
  3. Jobs (jobs without a title are skipped and removed locally)
  4. Job/tag links

Records missing from the source are deleted locally, new ones are
created and existing ones are overwritten.

Sources:
  airtable   The configured Airtable base (needs AIRTABLE_BASE_ID and
             AIRTABLE_API_KEY, or airtable.base_id/api_key in the config)
  file       JSON or YAML exports in a directory (companies.json,
             jobs.yaml, tags.yml, ...)

Example usage:
  jobboard sync                               # Sync from Airtable
  jobboard sync --source file --dir exports   # Sync from export files
  jobboard sync --source file --dir exports --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("source")
		dir, _ := cmd.Flags().GetString("dir")
		watch, _ := cmd.Flags().GetBool("watch")
		if kind == "" {
			kind = cfg.Source
		}
		if dir == "" {
			dir = cfg.SourceDir
		}

		if watch && kind != config.SourceFile {
			fmt.Fprintf(os.Stderr, "Error: --watch requires the file source\n")
			os.Exit(1)
		}

		src, err := newSource(kind, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		database := openStore()
		defer database.Close()

		syncer := jobsync.New(database, newLogger("sync"), jobsync.WithVerbose(cfg.Log.Verbose))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if watch {
			fmt.Printf("%s Watching %s for changes...\n", ui.RenderAccent("👀"), dir)
			fmt.Println("Press Ctrl+C to stop...")

			err := jobsync.Watch(ctx, syncer, src, dir, &jobsync.WatchConfig{Logger: newLogger("watch")})
			if err != nil && !errors.Is(err, context.Canceled) {
				exitWithStore(database, "Error: %v\n", err)
			}
			fmt.Printf("\n%s Watcher stopped\n", ui.RenderPass("✓"))
			return
		}

		fmt.Printf("%s Syncing from %s into %s...\n", ui.RenderAccent("🔄"), kind, database.Path())

		report, err := syncer.Synchronize(ctx, src)
		if err != nil {
			exitWithStore(database, "%s Error during sync: %v\n", ui.RenderFail("✗"), err)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), report.Duration.Round(time.Millisecond))
		printResults(report.Results)
	},
}

// printResults writes one line per reconciled table.
func printResults(results []jobsync.Result) {
	rows := make([]ui.KeyValue, 0, len(results))
	for _, r := range results {
		value := fmt.Sprintf("%d created, %d updated, %d deleted", r.Created, r.Updated, r.Deleted)
		if r.Skipped > 0 {
			value += ", " + ui.RenderWarn(fmt.Sprintf("%d skipped", r.Skipped))
		}
		rows = append(rows, ui.KeyValue{Key: r.Kind, Value: value})
	}
	ui.PrintKeyValues(os.Stdout, rows)
}

func init() {
	syncCmd.Flags().String("source", "", "Record source: airtable or file (default from config)")
	syncCmd.Flags().String("dir", "", "Export directory for the file source")
	syncCmd.Flags().BoolP("watch", "w", false, "Keep running and re-sync when export files change")

	rootCmd.AddCommand(syncCmd)
}
