// Package logging provides the toolchain's ambient diagnostic logger: a
// thin, level-gated wrapper over the standard library's log.Logger, in the
// same "settings struct with sane defaults" spirit as config.Config.
package logging

import (
	"io"
	"log"
	"os"
)

// Logger writes Info-level messages unconditionally and Debug-level
// messages only when Verbose is set, matching the CLI's --verbose-log flag.
type Logger struct {
	Verbose bool
	out     *log.Logger
}

// New creates a Logger writing to w with the given verbosity.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{Verbose: verbose, out: log.New(w, "", 0)}
}

// Default creates a Logger writing to standard error.
func Default(verbose bool) *Logger {
	return New(os.Stderr, verbose)
}

// Infof logs unconditionally.
func (l *Logger) Infof(format string, args ...any) {
	l.out.Printf(format, args...)
}

// Debugf logs only when Verbose is set.
func (l *Logger) Debugf(format string, args ...any) {
	if l.Verbose {
		l.out.Printf(format, args...)
	}
}
