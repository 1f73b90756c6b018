// Package ui holds the terminal styles shared by the jobboard commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func init() {
	if !ColorEnabled(os.Stdout, os.Getenv) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// ColorEnabled reports whether styled output should be colored: f is a
// terminal and neither NO_COLOR nor TERM=dumb is set.
func ColorEnabled(f *os.File, getenv func(string) string) bool {
	if getenv("NO_COLOR") != "" || getenv("TERM") == "dumb" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#73F59F"})
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFB454"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"})
	keyStyle    = lipgloss.NewStyle().Bold(true)
)

// RenderAccent highlights headings and icons.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass marks success.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn marks warnings.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail marks errors.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderMuted dims secondary text.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// KeyValue is one row of a PrintKeyValues block.
type KeyValue struct {
	Key   string
	Value string
}

// PrintKeyValues writes rows as an aligned "key: value" block indented by
// two spaces.
func PrintKeyValues(w io.Writer, rows []KeyValue) {
	width := 0
	for _, r := range rows {
		if len(r.Key) > width {
			width = len(r.Key)
		}
	}
	for _, r := range rows {
		pad := strings.Repeat(" ", width-len(r.Key))
		fmt.Fprintf(w, "  %s:%s %s\n", keyStyle.Render(r.Key), pad, r.Value)
	}
}
