// Package rotation implements the generational session ticket key
// rotation engine: the slot model, the atomic key writer, and the
// rotator that ages keys across a fixed ring of generations.
package rotation

import (
	"fmt"
	"path/filepath"
)

// Slot identifies one key file on volatile storage by
// (server name, generation index). Generation 1 is the current
// encryption key; generation N is decryption-only and about to expire.
type Slot struct {
	Server     string
	Generation int
}

// Path returns the key file path for the slot under the storage root,
// following the {root}/{server}.{generation}.key convention.
func (s Slot) Path(root string) string {
	return filepath.Join(root, fmt.Sprintf("%s.%d.key", s.Server, s.Generation))
}

// Next returns the slot one generation older.
func (s Slot) Next() Slot {
	return Slot{Server: s.Server, Generation: s.Generation + 1}
}

func (s Slot) String() string {
	return fmt.Sprintf("%s[%d]", s.Server, s.Generation)
}
