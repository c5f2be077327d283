package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndExport(t *testing.T) {
	InitMetrics()

	m := NewCycleMetrics()
	m.RecordCycleCompleted("success", 0.03)
	m.RecordSlotWrite("web1", "success")
	m.RecordSlotWrite("web2", "failure")
	m.RecordFiller("web1", "missing")

	path := filepath.Join(t.TempDir(), "ticketrot.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "ticketrot_cycles_total")
	assert.Contains(t, out, "ticketrot_slot_writes_total")
	assert.Contains(t, out, "ticketrot_filler_keys_total")
	assert.Contains(t, out, "ticketrot_cycle_duration_seconds")
	assert.Contains(t, out, `result="failure",server="web2"`)
}

func TestMetricsNoopBeforeInit(t *testing.T) {
	// Records before InitMetrics must not panic; the guard simply
	// drops them. InitMetrics may already have run in another test,
	// in which case this records normally.
	m := NewCycleMetrics()
	assert.NotPanics(t, func() {
		m.RecordCycleCompleted("success", 0.01)
		m.RecordSlotWrite("web1", "success")
		m.RecordFiller("web1", "missing")
	})
}
