package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobboard/jobboard/internal/ui"
)

var compileCSSCmd = &cobra.Command{
	Use:     "compile-css",
	GroupID: "maint",
	Short:   "Rebuild the site stylesheet with tailwindcss",
	Long: `Rebuild the embedded stylesheet from the Tailwind source.

Runs:
  tailwindcss build assets/web.css -o internal/web/static/web.css

The tailwindcss binary must be on PATH (or given with --bin). The
stylesheet is embedded at build time, so rebuild jobboard afterwards.`,
	Annotations: map[string]string{skipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		bin, _ := cmd.Flags().GetString("bin")
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")

		path, err := exec.LookPath(bin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s not found: %v\n", bin, err)
			os.Exit(1)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("%s Building %s from %s...\n", ui.RenderAccent("🎨"), output, input)
		start := time.Now()

		build := exec.CommandContext(ctx, path, tailwindArgs(input, output)...)
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		if err := build.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", bin, err)
			os.Exit(1)
		}

		fmt.Printf("%s Stylesheet built in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	},
}

func tailwindArgs(input, output string) []string {
	return []string{"build", input, "-o", output}
}

func init() {
	compileCSSCmd.Flags().String("bin", "tailwindcss", "tailwindcss executable")
	compileCSSCmd.Flags().String("input", "assets/web.css", "Tailwind source stylesheet")
	compileCSSCmd.Flags().String("output", "internal/web/static/web.css", "Compiled stylesheet")

	rootCmd.AddCommand(compileCSSCmd)
}
