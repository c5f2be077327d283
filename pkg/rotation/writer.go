package rotation

import (
	"fmt"
	"os"

	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/logging"
)

// Writer materializes key slots as files under the storage root.
//
// Writes are atomic from a reader's point of view: the key is written
// to a temporary file in the same directory and renamed into place, so
// the TLS server reading the slot observes either the complete old key
// or the complete new key, never a truncated file. A failed write
// leaves any prior content untouched.
type Writer struct {
	root   string
	logger *logging.Logger
}

// NewWriter creates a writer rooted at the volatile storage directory.
func NewWriter(root string, logger *logging.Logger) *Writer {
	return &Writer{
		root:   root,
		logger: logger,
	}
}

// Root returns the storage root the writer operates on.
func (w *Writer) Root() string {
	return w.root
}

// WriteKey replaces the slot's key file with the given material.
// Failure wraps WriteError carrying the (server, generation) pair.
func (w *Writer) WriteKey(slot Slot, key []byte) error {
	if err := w.writeAtomic(slot, key); err != nil {
		return tkerrors.WriteError{
			Server:     slot.Server,
			Generation: slot.Generation,
			Err:        err,
		}
	}
	w.logger.Debug("Wrote %d bytes to slot %s", len(key), slot)
	return nil
}

func (w *Writer) writeAtomic(slot Slot, key []byte) error {
	tmp, err := os.CreateTemp(w.root, "."+slot.Server+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Restrict before the key bytes hit the file.
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if _, err := tmp.Write(key); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write key material: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, slot.Path(w.root)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename key into place: %w", err)
	}

	return nil
}

// ReadKey returns the slot's current content. A missing slot returns
// an error satisfying os.IsNotExist; the rotator maps every other
// failure to AgeingReadError.
func (w *Writer) ReadKey(slot Slot) ([]byte, error) {
	return os.ReadFile(slot.Path(w.root))
}

// Exists reports whether the slot's key file is present and non-empty.
func (w *Writer) Exists(slot Slot) bool {
	info, err := os.Stat(slot.Path(w.root))
	return err == nil && info.Size() > 0
}
