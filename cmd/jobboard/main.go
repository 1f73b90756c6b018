package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobboard/jobboard/internal/config"
	"github.com/jobboard/jobboard/internal/logging"
	"github.com/jobboard/jobboard/internal/source"
	"github.com/jobboard/jobboard/internal/source/airtable"
	"github.com/jobboard/jobboard/internal/source/file"
	"github.com/jobboard/jobboard/internal/store"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	logOut  *logging.Output
)

// skipConfig marks commands that run without loading the config.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "jobboard",
	Short: "Job board synced from Airtable",
	Long: `jobboard mirrors the Companies, Jobs and Tags tables of an Airtable base
into a local SQLite database and serves a searchable job listing from it.

Configuration is read from jobboard.toml in the working directory or in
~/.config/jobboard, then from the environment. Run 'jobboard init' to
create a config file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Annotations[skipConfig] == "true" {
			return
		}

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded

		logOut = logging.NewOutput(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			_ = logOut.Close()
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "serve", Title: "Serving:"},
		&cobra.Group{ID: "sync", Title: "Syncing:"},
		&cobra.Group{ID: "maint", Title: "Maintenance:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./jobboard.toml or ~/.config/jobboard/jobboard.toml)")
	flags.String("database", "", "SQLite database path (default db.sqlite3)")
	flags.BoolP("verbose", "v", false, "Log debug output")

	_ = v.BindPFlag("database", flags.Lookup("database"))
	_ = v.BindPFlag("log.verbose", flags.Lookup("verbose"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger returns a component logger on the configured output.
func newLogger(component string) *log.Logger {
	return logOut.Logger(component)
}

// exit is replaced in tests.
var exit = os.Exit

// exitWithStore prints an error, closes database so the WAL is checkpointed,
// and exits with status 1. Deferred calls do not run on os.Exit.
func exitWithStore(database *store.DB, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	if database != nil {
		_ = database.Close()
	}
	exit(1)
}

// openStore opens the configured database and makes sure the schema exists.
// It exits on failure.
func openStore() *store.DB {
	database, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	if err := database.EnsureSchema(); err != nil {
		_ = database.Close()
		fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
		os.Exit(1)
	}
	return database
}

// newSource builds the configured record source. Airtable credentials are
// checked here, before any store is opened.
func newSource(kind, dir string) (source.Source, error) {
	switch kind {
	case config.SourceAirtable:
		if err := cfg.RequireAirtable(); err != nil {
			return nil, err
		}
		client, err := airtable.NewClient(cfg.Airtable.BaseID, cfg.Airtable.APIKey,
			airtable.WithBaseURL(cfg.Airtable.BaseURL),
			airtable.WithRateLimit(cfg.Airtable.RateLimit),
			airtable.WithLogger(newLogger("airtable")),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.SourceFile:
		if dir == "" {
			return nil, fmt.Errorf("file source requires a directory (--dir or source_dir)")
		}
		return file.New(dir), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want %s or %s)", kind, config.SourceAirtable, config.SourceFile)
	}
}
