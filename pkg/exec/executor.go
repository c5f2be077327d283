// Package exec provides abstractions for external command execution.
// This package enables testable code by allowing host utilities
// (openssl, mount, crontab) to be mocked.
package exec

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandRunner defines an interface for probing and executing host commands.
// This abstraction allows the random-source probe and the OS-integration
// glue to be faked in tests.
type CommandRunner interface {
	// LookPath reports the absolute path of a binary on PATH,
	// or an error when it is not installed.
	LookPath(name string) (string, error)

	// Execute runs a command with the given context and arguments.
	// Returns stdout, stderr, and any error that occurred.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// RealCommandRunner executes actual host commands using os/exec.
// This is the production implementation.
type RealCommandRunner struct{}

// LookPath resolves a binary via the process PATH.
func (r *RealCommandRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Execute runs an actual host command.
func (r *RealCommandRunner) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultRunner returns the standard production runner.
// This is used as the default when no runner is injected.
func DefaultRunner() CommandRunner {
	return &RealCommandRunner{}
}
