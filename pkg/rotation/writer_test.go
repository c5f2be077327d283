package rotation

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tkerrors "github.com/systmms/ticketrot/internal/errors"
)

func TestWriterCreatesKeyWithRestrictedMode(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger())
	slot := Slot{Server: "web1", Generation: 1}

	key := bytes.Repeat([]byte{0xAB}, 48)
	require.NoError(t, w.WriteKey(slot, key))

	info, err := os.Stat(slot.Path(root))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := w.ReadKey(slot)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestWriterOverwritesCompletely(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger())
	slot := Slot{Server: "web1", Generation: 1}

	long := bytes.Repeat([]byte{0x01}, 64)
	short := bytes.Repeat([]byte{0x02}, 48)

	require.NoError(t, w.WriteKey(slot, long))
	require.NoError(t, w.WriteKey(slot, short))

	got, err := w.ReadKey(slot)
	require.NoError(t, err)
	assert.Equal(t, short, got, "replace must not leave trailing bytes of the old key")
}

func TestWriterFailureWrapsSlotIdentity(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger())
	slot := Slot{Server: "web1", Generation: 2}

	// A directory at the target path makes the rename fail.
	require.NoError(t, os.Mkdir(slot.Path(root), 0700))

	err := w.WriteKey(slot, []byte("key"))
	var werr tkerrors.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "web1", werr.Server)
	assert.Equal(t, 2, werr.Generation)
}

func TestWriterLeavesNoTempFilesBehind(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger())
	slot := Slot{Server: "web1", Generation: 1}

	require.NoError(t, os.Mkdir(slot.Path(root), 0700))
	require.Error(t, w.WriteKey(slot, []byte("key")))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestWriterExists(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, testLogger())
	slot := Slot{Server: "web1", Generation: 1}

	assert.False(t, w.Exists(slot))

	// An empty file does not count as a populated slot.
	require.NoError(t, os.WriteFile(slot.Path(root), nil, 0600))
	assert.False(t, w.Exists(slot))

	require.NoError(t, w.WriteKey(slot, []byte("key")))
	assert.True(t, w.Exists(slot))
}

func TestSlotPath(t *testing.T) {
	slot := Slot{Server: "web1.example.com", Generation: 3}
	assert.Equal(t, filepath.Join("/run/keys", "web1.example.com.3.key"), slot.Path("/run/keys"))
	assert.Equal(t, Slot{Server: "web1.example.com", Generation: 4}, slot.Next())
	assert.Equal(t, "web1.example.com[3]", slot.String())
}
