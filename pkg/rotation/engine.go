package rotation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/history"
	"github.com/systmms/ticketrot/internal/logging"
	"github.com/systmms/ticketrot/internal/metrics"
	"github.com/systmms/ticketrot/internal/randsrc"
	"github.com/systmms/ticketrot/internal/secure"
)

// SourceSelector resolves the random source a cycle draws key
// material from.
type SourceSelector interface {
	Select(ctx context.Context) (randsrc.Source, error)
}

// Config is the immutable configuration a Rotator is constructed with.
// The rotator never consults ambient state beyond the storage root.
type Config struct {
	StorageRoot string
	Servers     []string
	Generations int
	KeyBytes    int

	// LockStaleAfter is the age past which an abandoned cycle lock is
	// taken over. Defaults to 15 minutes.
	LockStaleAfter time.Duration
}

func (c Config) validate() error {
	if c.StorageRoot == "" {
		return tkerrors.ConfigError{Field: "storage_root", Message: "storage root must be set"}
	}
	if len(c.Servers) == 0 {
		return tkerrors.ConfigError{Field: "servers", Message: "at least one server must be configured"}
	}
	if c.Generations < 1 {
		return tkerrors.ConfigError{Field: "generations", Value: c.Generations, Message: "generation count must be at least 1"}
	}
	if c.KeyBytes < 1 {
		return tkerrors.ConfigError{Field: "key_bytes", Value: c.KeyBytes, Message: "key length must be positive"}
	}
	return nil
}

// SlotFailure records one failed slot write within a cycle.
type SlotFailure struct {
	Slot Slot
	Err  error
}

// CycleResult is the outcome of one rotation cycle across all
// configured servers.
type CycleResult struct {
	Started     time.Time
	Duration    time.Duration
	Source      string
	FillerSlots int
	Failures    []SlotFailure
}

// OK reports whether every slot of every server was advanced.
func (r *CycleResult) OK() bool {
	return len(r.Failures) == 0
}

// Status returns the aggregate outcome label.
func (r *CycleResult) Status() string {
	if r.OK() {
		return "success"
	}
	return "partial"
}

func (r *CycleResult) addFailure(slot Slot, err error) {
	r.Failures = append(r.Failures, SlotFailure{Slot: slot, Err: err})
}

// serverFailures returns the failure messages belonging to one server.
func (r *CycleResult) serverFailures(server string) []string {
	var msgs []string
	for _, f := range r.Failures {
		if f.Slot.Server == server {
			msgs = append(msgs, f.Err.Error())
		}
	}
	return msgs
}

// Rotator advances the N-generation key ring for every configured
// server. One call to Cycle is one rotation cycle; the rotator itself
// is trigger-agnostic.
type Rotator struct {
	cfg      Config
	selector SourceSelector
	writer   *Writer
	store    history.Store
	metrics  *metrics.CycleMetrics
	logger   *logging.Logger
}

// NewRotator creates a rotator for the given immutable configuration.
func NewRotator(cfg Config, selector SourceSelector, logger *logging.Logger) *Rotator {
	return &Rotator{
		cfg:      cfg,
		selector: selector,
		writer:   NewWriter(cfg.StorageRoot, logger),
		metrics:  metrics.NewCycleMetrics(),
		logger:   logger,
	}
}

// SetStore configures the metadata store that receives cycle records
// and per-server status. Without a store the rotator still rotates.
func (r *Rotator) SetStore(store history.Store) {
	r.store = store
}

// Cycle executes one rotation cycle: per server, age generations
// N-1 down to 1 into their successors, then write a fresh encryption
// key into generation 1.
//
// Cycle-level errors (bad configuration, no random source, lock held)
// abort before any write; per-slot failures are aggregated in the
// result while sibling slots and servers continue.
func (r *Rotator) Cycle(ctx context.Context) (*CycleResult, error) {
	if err := r.cfg.validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(r.cfg.StorageRoot)
	if err != nil || !info.IsDir() {
		return nil, tkerrors.ConfigError{
			Field:      "storage_root",
			Value:      r.cfg.StorageRoot,
			Message:    "storage root does not exist or is not a directory",
			Suggestion: "Run 'ticketrot install' to mount the volatile key storage",
		}
	}

	staleAfter := r.cfg.LockStaleAfter
	if staleAfter == 0 {
		staleAfter = 15 * time.Minute
	}
	lock, err := AcquireCycleLock(filepath.Join(r.cfg.StorageRoot, ".cycle.lock"), staleAfter)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	src, err := r.selector.Select(ctx)
	if err != nil {
		// No write has happened yet; existing keys stay usable.
		return nil, err
	}

	result := &CycleResult{
		Started: time.Now(),
		Source:  src.Name(),
	}

	r.logger.Debug("Starting rotation cycle for %d servers, %d generations, %d-byte keys via %s",
		len(r.cfg.Servers), r.cfg.Generations, r.cfg.KeyBytes, src.Name())

	for _, server := range r.cfg.Servers {
		r.rotateServer(ctx, src, server, result)
	}

	result.Duration = time.Since(result.Started)

	r.metrics.RecordCycleCompleted(result.Status(), result.Duration.Seconds())
	r.persist(result)

	if result.OK() {
		r.logger.Info("Rotated %d generation(s) for %d server(s)", r.cfg.Generations, len(r.cfg.Servers))
	} else {
		r.logger.Warn("Rotation cycle finished with %d failed slot(s)", len(result.Failures))
	}

	return result, nil
}

// rotateServer processes one server's ring. Ordering is load-bearing:
// generations are aged oldest-displaced first so no slot is read after
// it has been written in the same pass, and generation 1 is overwritten
// only after its previous content has propagated to generation 2.
func (r *Rotator) rotateServer(ctx context.Context, src randsrc.Source, server string, result *CycleResult) {
	for g := r.cfg.Generations - 1; g >= 1; g-- {
		from := Slot{Server: server, Generation: g}
		to := from.Next()

		content, err := r.writer.ReadKey(from)
		if err == nil && len(content) > 0 {
			if werr := r.writer.WriteKey(to, content); werr != nil {
				result.addFailure(to, werr)
				r.metrics.RecordSlotWrite(server, "failure")
				r.logger.Error("%v", werr)
			} else {
				r.metrics.RecordSlotWrite(server, "success")
			}
			continue
		}

		// Filler branch: the source slot has never been populated or
		// cannot be read. The successor gets independent fresh random
		// content so the server's file-presence check cannot fail.
		reason := "missing"
		if err != nil && !os.IsNotExist(err) {
			reason = "unreadable"
			r.logger.Debug("%v", tkerrors.AgeingReadError{Server: server, Generation: g, Err: err})
		} else if err == nil {
			reason = "empty"
		}
		r.writeFresh(ctx, src, to, result)
		result.FillerSlots++
		r.metrics.RecordFiller(server, reason)
	}

	// The new encryption key goes into generation 1 last.
	r.writeFresh(ctx, src, Slot{Server: server, Generation: 1}, result)
}

// writeFresh generates key material and writes it into the slot,
// recording any failure against that slot only.
func (r *Rotator) writeFresh(ctx context.Context, src randsrc.Source, slot Slot, result *CycleResult) {
	raw, err := src.Bytes(ctx, r.cfg.KeyBytes)
	if err != nil {
		werr := tkerrors.WriteError{Server: slot.Server, Generation: slot.Generation, Err: err}
		result.addFailure(slot, werr)
		r.metrics.RecordSlotWrite(slot.Server, "failure")
		r.logger.Error("%v", werr)
		return
	}

	key := secure.NewKeyBuffer(raw)
	defer key.Destroy()

	if werr := r.writer.WriteKey(slot, key.Bytes()); werr != nil {
		result.addFailure(slot, werr)
		r.metrics.RecordSlotWrite(slot.Server, "failure")
		r.logger.Error("%v", werr)
		return
	}
	r.metrics.RecordSlotWrite(slot.Server, "success")
}

// persist records the cycle and per-server status in the metadata
// store. Metadata failures never fail the rotation itself.
func (r *Rotator) persist(result *CycleResult) {
	if r.store == nil {
		return
	}

	entry := &history.CycleEntry{
		Timestamp:   result.Started,
		Duration:    result.Duration,
		Source:      result.Source,
		Servers:     len(r.cfg.Servers),
		FillerSlots: result.FillerSlots,
		Status:      result.Status(),
	}
	for _, f := range result.Failures {
		entry.Failures = append(entry.Failures, fmt.Sprintf("%s: %v", f.Slot, f.Err))
	}
	if err := r.store.SaveCycle(entry); err != nil {
		r.logger.Warn("Failed to save cycle record: %v", err)
	}

	for _, server := range r.cfg.Servers {
		failures := result.serverFailures(server)

		status := &history.ServerStatus{
			Server:      server,
			LastCycle:   result.Started,
			LastResult:  "rotated",
			CycleCount:  1,
			Generations: r.cfg.Generations,
		}
		if len(failures) > 0 {
			status.LastResult = "partial"
			status.LastError = failures[0]
		}

		if existing, err := r.store.GetStatus(server); err == nil {
			status.CycleCount = existing.CycleCount + 1
			status.SuccessCount = existing.SuccessCount
			status.FailureCount = existing.FailureCount
		}
		if len(failures) == 0 {
			status.SuccessCount++
		} else {
			status.FailureCount++
		}

		if err := r.store.SaveStatus(status); err != nil {
			r.logger.Warn("Failed to save status for %s: %v", server, err)
		}
	}
}
