package logging

import (
	"fmt"
	"io"
	"os"
)

// Logger provides leveled diagnostics for the rotation engine.
// All output goes to stderr so that exit status and stdout stay
// machine-consumable for the scheduler that invokes us.
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
}

// New creates a new logger instance
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     os.Stderr,
	}
}

// NewWithOutput creates a logger writing to the given writer.
// Used by tests to capture diagnostic output.
func NewWithOutput(debug, noColor bool, out io.Writer) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     out,
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[32m✓\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "✓ %s\n", msg)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[33m⚠\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "⚠ %s\n", msg)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[31m✗\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "✗ %s\n", msg)
	}
}

// Debug logs a debug message if debug mode is enabled.
// Key material must never be passed through here; callers log
// lengths, paths, and generation indexes only.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[36m[DEBUG]\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "[DEBUG] %s\n", msg)
	}
}
