package commands

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/ticketrot/internal/config"
)

// mockRunner fakes host binaries for the OS-integration glue.
type mockRunner struct {
	binaries map[string]string
	// results maps the command name to its canned outcome.
	results map[string]mockResult
	calls   []string
}

type mockResult struct {
	stdout []byte
	stderr []byte
	err    error
}

func (m *mockRunner) LookPath(name string) (string, error) {
	if path, ok := m.binaries[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

func (m *mockRunner) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.calls = append(m.calls, name)
	if r, ok := m.results[name]; ok {
		return r.stdout, r.stderr, r.err
	}
	return nil, nil, nil
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.5.9", "1.5.9", 0},
		{"1.5.10", "1.5.9", 1},
		{"1.5.9", "1.6", -1},
		{"1.24.0", "1.5.9", 1},
		{"1.5", "1.5.0", 0},
		{"2", "1.99.99", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestCheckServerVersionSatisfied(t *testing.T) {
	runner := &mockRunner{
		binaries: map[string]string{"nginx": "/usr/sbin/nginx"},
		results: map[string]mockResult{
			// nginx prints its banner on stderr
			"/usr/sbin/nginx": {stderr: []byte("nginx version: nginx/1.24.0\n")},
		},
	}
	def := &config.Definition{ServerBinary: "nginx", MinServerVersion: "1.5.9"}

	require.NoError(t, checkServerVersion(context.Background(), runner, def))
}

func TestCheckServerVersionTooOld(t *testing.T) {
	runner := &mockRunner{
		binaries: map[string]string{"nginx": "/usr/sbin/nginx"},
		results: map[string]mockResult{
			"/usr/sbin/nginx": {stderr: []byte("nginx version: nginx/1.4.7\n")},
		},
	}
	def := &config.Definition{ServerBinary: "nginx", MinServerVersion: "1.5.9"}

	err := checkServerVersion(context.Background(), runner, def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "older than required minimum")
}

func TestCheckServerVersionBinaryMissing(t *testing.T) {
	runner := &mockRunner{}
	def := &config.Definition{ServerBinary: "nginx", MinServerVersion: "1.5.9"}

	err := checkServerVersion(context.Background(), runner, def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCheckServerVersionSkippedWithoutConstraint(t *testing.T) {
	runner := &mockRunner{}
	def := &config.Definition{ServerBinary: "nginx"}

	require.NoError(t, checkServerVersion(context.Background(), runner, def))
	assert.Empty(t, runner.calls, "no constraint means no probe")
}

func TestCheckServerVersionUnparsableBanner(t *testing.T) {
	runner := &mockRunner{
		binaries: map[string]string{"nginx": "/usr/sbin/nginx"},
		results: map[string]mockResult{
			"/usr/sbin/nginx": {stderr: []byte("mystery build\n")},
		},
	}
	def := &config.Definition{ServerBinary: "nginx", MinServerVersion: "1.5.9"}

	err := checkServerVersion(context.Background(), runner, def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not determine version")
}
