package rotation

import (
	"fmt"
	"os"
	"time"
)

// CycleLock excludes overlapping rotation cycles. Two cycles racing on
// the same slot can interleave ageing reads with renames, so a cycle
// holds this advisory lock for its whole duration.
type CycleLock struct {
	path string
}

// AcquireCycleLock creates the lock file exclusively. A lock file left
// behind by a crashed cycle is taken over once it is older than
// staleAfter, which must exceed the worst-case cycle duration.
func AcquireCycleLock(path string, staleAfter time.Duration) (*CycleLock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &CycleLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create cycle lock %s: %w", path, err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil {
			// Holder released between our open and stat; retry.
			continue
		}
		if time.Since(info.ModTime()) < staleAfter {
			return nil, fmt.Errorf("another rotation cycle is in progress (lock %s held since %s)",
				path, info.ModTime().Format(time.RFC3339))
		}
		os.Remove(path)
	}

	return nil, fmt.Errorf("failed to acquire cycle lock %s", path)
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *CycleLock) Release() error {
	return os.Remove(l.path)
}
