package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	inner := errors.New("permission denied")
	err := UserError{
		Message:    "Failed to write key",
		Details:    "target /run/keys is read-only",
		Suggestion: "Remount the storage read-write",
		Err:        inner,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Failed to write key")
	assert.Contains(t, msg, "Details: target /run/keys is read-only")
	assert.Contains(t, msg, "Try: Remount the storage read-write")
	assert.ErrorIs(t, err, inner)
}

func TestUserErrorFallsBackToWrapped(t *testing.T) {
	err := UserError{Err: errors.New("boom")}
	assert.Contains(t, err.Error(), "boom")
}

func TestConfigError(t *testing.T) {
	err := ConfigError{
		Field:      "generations",
		Value:      0,
		Message:    "generation count must be at least 1",
		Suggestion: "Set generations to 3",
	}

	msg := err.Error()
	assert.Contains(t, msg, "field 'generations'")
	assert.Contains(t, msg, "(value: 0)")
	assert.Contains(t, msg, "must be at least 1")
	assert.Contains(t, msg, "Set generations to 3")
}

func TestWriteErrorCarriesSlotIdentity(t *testing.T) {
	inner := errors.New("no space left on device")
	err := WriteError{Server: "web2", Generation: 2, Err: inner}

	assert.Equal(t, "failed to write key for web2 generation 2: no space left on device", err.Error())
	assert.ErrorIs(t, err, inner)

	var werr WriteError
	require.ErrorAs(t, fmt.Errorf("cycle: %w", err), &werr)
	assert.Equal(t, "web2", werr.Server)
}

func TestAgeingReadError(t *testing.T) {
	inner := errors.New("is a directory")
	err := AgeingReadError{Server: "web1", Generation: 3, Err: inner}

	assert.Contains(t, err.Error(), "unreadable key for web1 generation 3")
	assert.ErrorIs(t, err, inner)
}

func TestCommandError(t *testing.T) {
	err := CommandError{
		Command:    "mount /run/keys",
		ExitCode:   32,
		Message:    "unknown filesystem type",
		Suggestion: "Check the fstab entry",
	}

	msg := err.Error()
	assert.Contains(t, msg, "Command 'mount /run/keys' failed")
	assert.Contains(t, msg, "exit code: 32")
	assert.Contains(t, msg, "Check the fstab entry")
}
