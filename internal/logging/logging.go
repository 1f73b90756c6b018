// Package logging builds the per-component loggers used across jobboard.
//
// Every component gets a standard library *log.Logger with a "[component] "
// prefix. Output goes to stderr and, when a log file is configured, to a
// size-rotated file as well.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures log output.
type Options struct {
	// File receives a copy of all output when non-empty.
	File string

	// Rotation limits for File. Zero values use lumberjack's defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Stderr overrides the console writer (default os.Stderr).
	Stderr io.Writer
}

// Output is the shared destination of all component loggers.
type Output struct {
	w    io.Writer
	file *lumberjack.Logger
}

// NewOutput opens the log destination described by opts.
func NewOutput(opts Options) *Output {
	console := opts.Stderr
	if console == nil {
		console = os.Stderr
	}

	out := &Output{w: console}
	if opts.File != "" {
		out.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		out.w = io.MultiWriter(console, out.file)
	}
	return out
}

// Writer returns the combined writer.
func (o *Output) Writer() io.Writer {
	return o.w
}

// Logger returns a logger for component, e.g. Logger("sync") prefixes lines
// with "[sync] ".
func (o *Output) Logger(component string) *log.Logger {
	return log.New(o.w, "["+component+"] ", log.LstdFlags)
}

// Close flushes and closes the log file, if any.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}
