// Package randsrc selects and abstracts a cryptographically strong
// byte generator for key material.
//
// Selection policy: prefer the host's openssl utility when installed,
// otherwise fall back to reading the non-blocking random device. A
// blocking device is never a candidate: a stalled key generation at
// service-start time is worse than marginally weaker randomness for a
// short-lived secret.
package randsrc

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/logging"
	"github.com/systmms/ticketrot/pkg/exec"
)

// DefaultDevice is the non-blocking random device used when the
// preferred utility is not installed.
const DefaultDevice = "/dev/urandom"

// Source produces cryptographically strong random bytes.
type Source interface {
	// Name identifies the source in diagnostics ("openssl", "device").
	Name() string

	// Bytes returns exactly n random bytes.
	Bytes(ctx context.Context, n int) ([]byte, error)
}

// UtilitySource generates bytes by invoking the openssl binary.
type UtilitySource struct {
	runner exec.CommandRunner
	path   string
}

// Name returns the source name
func (s *UtilitySource) Name() string {
	return "openssl"
}

// Bytes runs `openssl rand <n>` and returns its raw stdout.
func (s *UtilitySource) Bytes(ctx context.Context, n int) ([]byte, error) {
	stdout, stderr, err := s.runner.Execute(ctx, s.path, "rand", strconv.Itoa(n))
	if err != nil {
		return nil, fmt.Errorf("openssl rand failed: %w (%s)", err, string(stderr))
	}
	if len(stdout) != n {
		return nil, fmt.Errorf("openssl rand produced %d bytes, want %d", len(stdout), n)
	}
	return stdout, nil
}

// DeviceSource reads bytes from a non-blocking random device.
type DeviceSource struct {
	device string
}

// Name returns the source name
func (s *DeviceSource) Name() string {
	return "device"
}

// Bytes reads exactly n bytes from the device.
func (s *DeviceSource) Bytes(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.device)
	if err != nil {
		return nil, fmt.Errorf("failed to open random device %s: %w", s.device, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("short read from random device %s: %w", s.device, err)
	}
	return buf, nil
}

// Selector resolves the best available random source once per process
// lifetime and caches the choice.
type Selector struct {
	runner exec.CommandRunner
	device string
	logger *logging.Logger

	once sync.Once
	src  Source
	err  error
}

// NewSelector creates a selector using the default random device.
func NewSelector(runner exec.CommandRunner, logger *logging.Logger) *Selector {
	return NewSelectorWithDevice(runner, DefaultDevice, logger)
}

// NewSelectorWithDevice creates a selector with a custom device path.
// Used by tests to point the fallback at a fixture file.
func NewSelectorWithDevice(runner exec.CommandRunner, device string, logger *logging.Logger) *Selector {
	return &Selector{
		runner: runner,
		device: device,
		logger: logger,
	}
}

// Select returns the resolved random source. The resolution happens at
// most once; subsequent calls return the cached source.
func (s *Selector) Select(ctx context.Context) (Source, error) {
	s.once.Do(func() {
		s.src, s.err = s.resolve(ctx)
	})
	return s.src, s.err
}

func (s *Selector) resolve(ctx context.Context) (Source, error) {
	if path, err := s.runner.LookPath("openssl"); err == nil {
		s.logger.Debug("Random source: openssl at %s", path)
		return &UtilitySource{runner: s.runner, path: path}, nil
	}

	if _, err := os.Stat(s.device); err == nil {
		s.logger.Debug("Random source: device %s", s.device)
		return &DeviceSource{device: s.device}, nil
	}

	return nil, errors.ErrNoRandomSource
}
