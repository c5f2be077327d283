// Package history persists rotation metadata: per-server status and a
// bounded record of past cycles. Metadata lives on persistent storage,
// never on the volatile key mount, and never contains key material.
package history

import (
	"os"
	"path/filepath"
	"time"
)

// Store defines the interface for rotation metadata storage
type Store interface {
	// SaveStatus saves the current rotation status for a server
	SaveStatus(status *ServerStatus) error

	// GetStatus retrieves the current rotation status for a server
	GetStatus(server string) (*ServerStatus, error)

	// SaveCycle saves one rotation cycle record
	SaveCycle(entry *CycleEntry) error

	// GetCycles retrieves past cycle records, newest first
	GetCycles(limit int) ([]CycleEntry, error)

	// CleanupOldEntries removes cycle records older than the specified duration
	CleanupOldEntries(olderThan time.Duration) error
}

// ServerStatus represents the current rotation state of one server's key ring
type ServerStatus struct {
	Server       string    `json:"server"`
	LastCycle    time.Time `json:"last_cycle"`
	LastResult   string    `json:"last_result"` // rotated, partial, failed
	CycleCount   int       `json:"cycle_count"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	LastError    string    `json:"last_error,omitempty"`
	Generations  int       `json:"generations"`
}

// CycleEntry represents a single rotation cycle across all servers
type CycleEntry struct {
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration"`
	Source      string        `json:"source"` // random source used
	Servers     int           `json:"servers"`
	FillerSlots int           `json:"filler_slots"`
	Status      string        `json:"status"` // success, partial, failed
	Failures    []string      `json:"failures,omitempty"`
}

// DefaultDir returns the default metadata directory
func DefaultDir() string {
	// Check for test environment variable first
	if testDir := os.Getenv("TICKETROT_STATE_DIR"); testDir != "" {
		return testDir
	}

	// Try to use XDG_DATA_HOME first
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "ticketrot", "state")
	}

	// Fall back to ~/.local/share
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "ticketrot", "state")
	}

	// Last resort: use temp directory
	return filepath.Join(os.TempDir(), "ticketrot", "state")
}
