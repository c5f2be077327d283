package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRandomSource is returned when neither the preferred random
// utility nor the non-blocking random device exists on the host.
// Fatal for a fresh install; advisory during rotation of an already
// running fleet, where stale keys remain usable.
var ErrNoRandomSource = errors.New("no usable random source available")

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context.
// A ConfigError aborts before any key file is touched.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// WriteError is a per-slot key write failure. It is non-fatal to the
// rotation cycle: sibling slots and servers continue to rotate, and the
// old key at the affected path remains untouched.
type WriteError struct {
	Server     string
	Generation int
	Err        error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("failed to write key for %s generation %d: %v", e.Server, e.Generation, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}

// AgeingReadError marks a source slot that exists but could not be read
// during ageing. The rotator treats the slot as missing and generates
// independent filler content for its successor instead of aborting.
type AgeingReadError struct {
	Server     string
	Generation int
	Err        error
}

func (e AgeingReadError) Error() string {
	return fmt.Sprintf("unreadable key for %s generation %d: %v", e.Server, e.Generation, e.Err)
}

func (e AgeingReadError) Unwrap() error {
	return e.Err
}

// CommandError represents an external command execution error
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}
