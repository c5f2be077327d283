package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store using the filesystem
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a new file-based metadata store
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
	}
}

// SaveStatus saves the current rotation status for a server
func (fs *FileStore) SaveStatus(status *ServerStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	statusDir := filepath.Join(fs.baseDir, "status")
	if err := os.MkdirAll(statusDir, 0700); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	filename := filepath.Join(statusDir, fmt.Sprintf("%s.json", sanitizeFilename(status.Server)))
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}

	return nil
}

// GetStatus retrieves the current rotation status for a server
func (fs *FileStore) GetStatus(server string) (*ServerStatus, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	filename := filepath.Join(fs.baseDir, "status", fmt.Sprintf("%s.json", sanitizeFilename(server)))
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no status found for server %s", server)
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var status ServerStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

// SaveCycle saves one rotation cycle record
func (fs *FileStore) SaveCycle(entry *CycleEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cyclesDir := filepath.Join(fs.baseDir, "cycles")
	if err := os.MkdirAll(cyclesDir, 0700); err != nil {
		return fmt.Errorf("failed to create cycles directory: %w", err)
	}

	filename := filepath.Join(cyclesDir, fmt.Sprintf("%s.json", entry.Timestamp.Format("20060102-150405")))
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cycle entry: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write cycle file: %w", err)
	}

	return nil
}

// GetCycles retrieves past cycle records, newest first
func (fs *FileStore) GetCycles(limit int) ([]CycleEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	cyclesDir := filepath.Join(fs.baseDir, "cycles")

	if _, err := os.Stat(cyclesDir); os.IsNotExist(err) {
		return []CycleEntry{}, nil
	}

	files, err := os.ReadDir(cyclesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cycles directory: %w", err)
	}

	// Sort files by name (newest first)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() > files[j].Name()
	})

	var entries []CycleEntry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(cyclesDir, file.Name()))
		if err != nil {
			continue // Skip files that can't be read
		}

		var entry CycleEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue // Skip invalid JSON files
		}

		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}

	return entries, nil
}

// CleanupOldEntries removes cycle records older than the specified duration
func (fs *FileStore) CleanupOldEntries(olderThan time.Duration) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cyclesDir := filepath.Join(fs.baseDir, "cycles")
	cutoff := time.Now().Add(-olderThan)

	if _, err := os.Stat(cyclesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := os.ReadDir(cyclesDir)
	if err != nil {
		return fmt.Errorf("failed to read cycles directory: %w", err)
	}

	for _, file := range files {
		name := file.Name()
		if file.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		// Expected format: 20060102-150405.json
		if len(name) < 15 {
			continue
		}
		timestamp, err := time.Parse("20060102-150405", name[:15])
		if err != nil {
			continue
		}
		if timestamp.Before(cutoff) {
			if err := os.Remove(filepath.Join(cyclesDir, name)); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to remove old cycle file %s: %v\n", name, err)
			}
		}
	}

	return nil
}

// sanitizeFilename replaces characters that might be problematic in filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(name)
}
