package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jobboard/jobboard/internal/config"
	"github.com/jobboard/jobboard/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "maint",
	Short:   "Create a jobboard config file",
	Long: `Create a jobboard.toml config file.

On a terminal an interactive form asks for the site details and the
record source. With --non-interactive (or when stdin is not a terminal)
the values are taken from flags and the built-in defaults.

The file is written to ./jobboard.toml, or to
~/.config/jobboard/jobboard.toml with --global. It is readable by the
owner only since it can hold the Airtable API key.

Example usage:
  jobboard init
  jobboard init --non-interactive --source file --dir exports
  jobboard init --global --non-interactive --base-id app123 --api-key key456`,
	Annotations: map[string]string{skipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		path, err := initPath(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
			os.Exit(1)
		}

		c := config.Default()
		applyInitFlags(cmd, c)

		nonInteractive, _ := cmd.Flags().GetBool("non-interactive")
		if !nonInteractive && term.IsTerminal(int(os.Stdin.Fd())) {
			if err := runInitForm(c); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Aborted")
					return
				}
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		if err := c.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := c.WriteFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		if c.Source == config.SourceAirtable && c.RequireAirtable() != nil {
			fmt.Printf("%s Airtable credentials not set; add them to the file or export AIRTABLE_BASE_ID and AIRTABLE_API_KEY\n",
				ui.RenderWarn("⚠"))
		}
	},
}

// initPath returns where init writes the config file.
func initPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("path"); path != "" {
		return path, nil
	}
	if global, _ := cmd.Flags().GetBool("global"); global {
		dir, err := config.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		return filepath.Join(dir, config.FileName+".toml"), nil
	}
	return config.FileName + ".toml", nil
}

// applyInitFlags copies the explicitly set flags onto c.
func applyInitFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("title", &c.Site.Title)
	set("description", &c.Site.Description)
	set("database", &c.Database)
	set("source", &c.Source)
	set("dir", &c.SourceDir)
	set("base-id", &c.Airtable.BaseID)
	set("api-key", &c.Airtable.APIKey)
	set("schedule", &c.Sync.Schedule)
	if flags.Changed("jobs-per-page") {
		c.JobsPerPage, _ = flags.GetInt("jobs-per-page")
	}
}

func runInitForm(c *config.Config) error {
	perPage := strconv.Itoa(c.JobsPerPage)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Site title").Value(&c.Site.Title),
			huh.NewInput().Title("Site description").Value(&c.Site.Description),
			huh.NewInput().Title("Database path").Value(&c.Database).Validate(notEmpty),
			huh.NewInput().Title("Jobs per page").Value(&perPage).Validate(positiveInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Record source").
				Options(
					huh.NewOption("Airtable", config.SourceAirtable),
					huh.NewOption("Export files (JSON/YAML)", config.SourceFile),
				).
				Value(&c.Source),
		),
		huh.NewGroup(
			huh.NewInput().Title("Airtable base id").Value(&c.Airtable.BaseID),
			huh.NewInput().Title("Airtable API key").EchoMode(huh.EchoModePassword).Value(&c.Airtable.APIKey),
		).WithHideFunc(func() bool { return c.Source != config.SourceAirtable }),
		huh.NewGroup(
			huh.NewInput().Title("Export directory").Value(&c.SourceDir).Validate(notEmpty),
		).WithHideFunc(func() bool { return c.Source != config.SourceFile }),
		huh.NewGroup(
			huh.NewInput().
				Title("Sync schedule").
				Description("Cron expression used by 'jobboard serve'; leave empty to disable").
				Value(&c.Sync.Schedule),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	n, err := strconv.Atoi(perPage)
	if err != nil {
		return fmt.Errorf("invalid jobs per page: %w", err)
	}
	c.JobsPerPage = n
	return nil
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("required")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return errors.New("must be a positive number")
	}
	return nil
}

func init() {
	initCmd.Flags().String("path", "", "Write the config file here")
	initCmd.Flags().Bool("global", false, "Write to ~/.config/jobboard/jobboard.toml")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("non-interactive", false, "Do not prompt; use flags and defaults")
	initCmd.Flags().String("title", "", "Site title")
	initCmd.Flags().String("description", "", "Site description")
	initCmd.Flags().String("source", "", "Record source: airtable or file")
	initCmd.Flags().String("dir", "", "Export directory for the file source")
	initCmd.Flags().String("base-id", "", "Airtable base id")
	initCmd.Flags().String("api-key", "", "Airtable API key")
	initCmd.Flags().String("schedule", "", "Cron schedule for syncs while serving")
	initCmd.Flags().Int("jobs-per-page", 0, "Listing page size")

	rootCmd.AddCommand(initCmd)
}
