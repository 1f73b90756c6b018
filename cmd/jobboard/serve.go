package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	jobsync "github.com/jobboard/jobboard/internal/sync"
	"github.com/jobboard/jobboard/internal/ui"
	"github.com/jobboard/jobboard/internal/web"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "serve",
	Short:   "Serve the job board",
	Long: `Serve the job listing and job detail pages from the local database.

Routes:
  /              Job listing (?q= title search, ?t= tag, ?p= page)
  /job/<id>/     Job detail
  /health        Health check (JSON)
  /ws            WebSocket feed of sync events
  /static/       Stylesheet

When sync.schedule is set in the config (a cron expression such as
"*/15 * * * *" or "@every 1h"), the configured source is synced on that
schedule and progress is broadcast to WebSocket clients.

Example usage:
  jobboard serve                  # Listen on :8080
  jobboard serve --listen :9000   # Listen on a custom address`,
	Run: func(cmd *cobra.Command, args []string) {
		database := openStore()
		defer database.Close()

		server, err := web.NewServer(&web.Config{
			Addr:        cfg.Listen,
			DB:          database,
			Site:        web.SiteInfo{Title: cfg.Site.Title, Description: cfg.Site.Description},
			JobsPerPage: cfg.JobsPerPage,
			Logger:      newLogger("web"),
		})
		if err != nil {
			exitWithStore(database, "Error: %v\n", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var scheduler *jobsync.Scheduler
		if cfg.Sync.Schedule != "" {
			src, err := newSource(cfg.Source, cfg.SourceDir)
			if err != nil {
				exitWithStore(database, "Error: %v\n", err)
			}

			syncer := jobsync.New(database, newLogger("sync"),
				jobsync.WithObserver(server),
				jobsync.WithVerbose(cfg.Log.Verbose),
			)
			scheduler, err = jobsync.NewScheduler(syncer, src, cfg.Sync.Schedule, newLogger("schedule"))
			if err != nil {
				exitWithStore(database, "Error: %v\n", err)
			}
		}

		if err := server.Start(); err != nil {
			exitWithStore(database, "Error: failed to start server: %v\n", err)
		}

		if scheduler != nil {
			if err := scheduler.Start(ctx); err != nil {
				_ = server.Stop()
				exitWithStore(database, "Error: %v\n", err)
			}
		}

		fmt.Printf("%s Serving %s on http://%s\n", ui.RenderAccent("🌐"), cfg.Site.Title, server.GetAddr())
		fmt.Printf("   Database: %s\n", database.Path())
		if scheduler != nil {
			fmt.Printf("   Sync schedule: %s (%s)\n", cfg.Sync.Schedule, cfg.Source)
		}
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		if scheduler != nil {
			scheduler.Stop()
		}
		if err := server.Stop(); err != nil {
			exitWithStore(database, "Error during shutdown: %v\n", err)
		}

		fmt.Printf("%s Server stopped\n", ui.RenderPass("✓"))
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (default :8080)")
	_ = v.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))

	rootCmd.AddCommand(serveCmd)
}
