// Package secure provides memory-safe handling of key material while
// it is in flight between the random source and the key file on disk.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// KeyBuffer holds key material in a locked memory region. The region
// is mlocked to prevent swapping and surrounded by guard pages; the
// originating byte slice is wiped on construction, so the plaintext
// exists only inside the buffer until Destroy.
type KeyBuffer struct {
	buf *memguard.LockedBuffer
	mu  sync.Mutex
	// destroyed allows idempotent Destroy() calls and prevents
	// use after destroy
	destroyed bool
}

// NewKeyBuffer moves key bytes into a protected buffer.
// The input slice is zeroed by memguard as part of the move.
func NewKeyBuffer(data []byte) *KeyBuffer {
	return &KeyBuffer{
		buf: memguard.NewBufferFromBytes(data),
	}
}

// Bytes exposes the protected key material for writing.
// The returned slice aliases locked memory and must not be retained
// past Destroy.
func (k *KeyBuffer) Bytes() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return nil
	}
	return k.buf.Bytes()
}

// Len returns the key length in bytes.
func (k *KeyBuffer) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return 0
	}
	return k.buf.Size()
}

// Destroy wipes the key material and releases the locked region.
// This method is idempotent.
func (k *KeyBuffer) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return
	}
	k.destroyed = true
	k.buf.Destroy()
}
