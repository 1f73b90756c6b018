package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jobboard/jobboard/internal/store"
	"github.com/jobboard/jobboard/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "maint",
	Short:   "Show local database status",
	Long: `Display the current status of the local job database.

Shows:
  - Database file location, size and last modification
  - Number of companies, jobs, tags and job/tag links`,
	Run: func(cmd *cobra.Command, args []string) {
		info, err := os.Stat(cfg.Database)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Database not initialized at %s\n", ui.RenderWarn("⚠"), cfg.Database)
			fmt.Printf("   Run 'jobboard sync' to create it\n\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking database: %v\n", err)
			os.Exit(1)
		}

		database, err := store.Open(cfg.Database)
		if err != nil {
			exitWithStore(database, "Error opening database: %v\n", err)
		}
		defer database.Close()

		counts, err := database.CountsContext(context.Background())
		if err != nil {
			exitWithStore(database, "Error reading counts: %v\n", err)
		}

		fmt.Printf("\n%s Job board status\n\n", ui.RenderAccent("📊"))
		ui.PrintKeyValues(os.Stdout, []ui.KeyValue{
			{Key: "Database", Value: database.Path()},
			{Key: "Size", Value: humanize.Bytes(uint64(info.Size()))},
			{Key: "Modified", Value: humanize.Time(info.ModTime())},
			{Key: "Companies", Value: humanize.Comma(int64(counts.Companies))},
			{Key: "Jobs", Value: humanize.Comma(int64(counts.Jobs))},
			{Key: "Tags", Value: humanize.Comma(int64(counts.Tags))},
			{Key: "Job tags", Value: humanize.Comma(int64(counts.JobTags))},
		})
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
