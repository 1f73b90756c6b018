package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestColorEnabled(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if ColorEnabled(f, env(nil)) {
		t.Error("regular file should not be colored")
	}
	if ColorEnabled(nil, env(nil)) {
		t.Error("nil file should not be colored")
	}
	if ColorEnabled(os.Stdout, env(map[string]string{"NO_COLOR": "1"})) {
		t.Error("NO_COLOR should disable color")
	}
	if ColorEnabled(os.Stdout, env(map[string]string{"TERM": "dumb"})) {
		t.Error("TERM=dumb should disable color")
	}
}

func TestRenderPlainProfile(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(prev)

	for name, render := range map[string]func(string) string{
		"accent": RenderAccent,
		"pass":   RenderPass,
		"warn":   RenderWarn,
		"fail":   RenderFail,
		"muted":  RenderMuted,
	} {
		if got := render("ok"); !strings.Contains(got, "ok") {
			t.Errorf("%s render = %q", name, got)
		}
		if got := render("ok"); strings.Contains(got, "\x1b[3") {
			t.Errorf("%s render should not carry color codes: %q", name, got)
		}
	}
}

func TestPrintKeyValues(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(prev)

	var buf bytes.Buffer
	PrintKeyValues(&buf, []KeyValue{
		{Key: "Jobs", Value: "12"},
		{Key: "Companies", Value: "3"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	// Values line up after the longest key.
	if strings.Index(lines[0], "12") != strings.Index(lines[1], "3") {
		t.Errorf("values not aligned:\n%s", buf.String())
	}
	if !strings.HasPrefix(lines[1], "  Companies: ") {
		t.Errorf("line = %q", lines[1])
	}
}
