package rotation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleLockExcludesSecondAcquirer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.lock")

	lock, err := AcquireCycleLock(path, time.Hour)
	require.NoError(t, err)

	_, err = AcquireCycleLock(path, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in progress")

	require.NoError(t, lock.Release())

	lock2, err := AcquireCycleLock(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}

func TestCycleLockTakesOverStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.lock")

	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	lock, err := AcquireCycleLock(path, 15*time.Minute)
	require.NoError(t, err, "a lock older than staleAfter must be taken over")
	require.NoError(t, lock.Release())
}

func TestCycleLockWritesPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.lock")

	lock, err := AcquireCycleLock(path, time.Hour)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
