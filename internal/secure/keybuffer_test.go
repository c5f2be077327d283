package secure

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBufferRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte{0x42}, 48)
	input := make([]byte, len(original))
	copy(input, original)

	buf := NewKeyBuffer(input)
	defer buf.Destroy()

	assert.Equal(t, 48, buf.Len())
	assert.Equal(t, original, buf.Bytes())
}

func TestKeyBufferWipesInput(t *testing.T) {
	input := bytes.Repeat([]byte{0x42}, 48)

	buf := NewKeyBuffer(input)
	defer buf.Destroy()

	// The originating slice must not retain the key material.
	assert.Equal(t, make([]byte, 48), input)
}

func TestKeyBufferDestroyIsIdempotent(t *testing.T) {
	buf := NewKeyBuffer([]byte("ticket key material"))

	buf.Destroy()
	require.NotPanics(t, buf.Destroy)

	assert.Nil(t, buf.Bytes())
	assert.Zero(t, buf.Len())
}
