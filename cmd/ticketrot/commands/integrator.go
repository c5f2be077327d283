package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/systmms/ticketrot/internal/config"
	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/logging"
	"github.com/systmms/ticketrot/pkg/exec"
)

// integrator is the thin OS glue behind install and uninstall: the
// fstab entry for the volatile mount, the mount itself, and the cron
// schedule. Paths are fields so tests can redirect them.
type integrator struct {
	runner    exec.CommandRunner
	logger    *logging.Logger
	fstabPath string
	cronPath  string
}

func newIntegrator(runner exec.CommandRunner, logger *logging.Logger) *integrator {
	return &integrator{
		runner:    runner,
		logger:    logger,
		fstabPath: "/etc/fstab",
		cronPath:  "/etc/cron.d/ticketrot",
	}
}

// fstabLine returns the boot-time mount entry for the storage root.
// ramfs rather than tmpfs: ramfs pages can never reach swap, so key
// material cannot outlive a reboot on disk.
func fstabLine(root string) string {
	return fmt.Sprintf("ramfs %s ramfs defaults,noexec,nosuid,nodev,mode=0770 0 0", root)
}

// ensureFstabEntry appends the mount entry when absent.
// Returns true when the file was modified.
func (g *integrator) ensureFstabEntry(root string) (bool, error) {
	data, err := os.ReadFile(g.fstabPath)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", g.fstabPath, err)
	}

	if hasMountEntry(string(data), root) {
		return false, nil
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += fstabLine(root) + "\n"

	if err := os.WriteFile(g.fstabPath, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", g.fstabPath, err)
	}
	return true, nil
}

// removeFstabEntry deletes the mount entry. Absence is success.
// Returns true when the file was modified.
func (g *integrator) removeFstabEntry(root string) (bool, error) {
	data, err := os.ReadFile(g.fstabPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", g.fstabPath, err)
	}

	var kept []string
	removed := false
	for _, line := range strings.Split(string(data), "\n") {
		if mountEntryTarget(line) == root {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return false, nil
	}

	if err := os.WriteFile(g.fstabPath, []byte(strings.Join(kept, "\n")), 0644); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", g.fstabPath, err)
	}
	return true, nil
}

func hasMountEntry(fstab, root string) bool {
	for _, line := range strings.Split(fstab, "\n") {
		if mountEntryTarget(line) == root {
			return true
		}
	}
	return false
}

// mountEntryTarget returns the mount point field of an fstab line,
// or "" for comments and blank lines.
func mountEntryTarget(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// isMounted reports whether the storage root is an active mount point.
func (g *integrator) isMounted(ctx context.Context, root string) bool {
	_, _, err := g.runner.Execute(ctx, "mountpoint", "-q", root)
	return err == nil
}

func (g *integrator) mount(ctx context.Context, root string) error {
	if _, stderr, err := g.runner.Execute(ctx, "mount", root); err != nil {
		return tkerrors.CommandError{
			Command:    "mount " + root,
			Message:    strings.TrimSpace(string(stderr)),
			Suggestion: "Check the fstab entry and run the command manually",
		}
	}
	return nil
}

func (g *integrator) unmount(ctx context.Context, root string) error {
	if _, stderr, err := g.runner.Execute(ctx, "umount", root); err != nil {
		return tkerrors.CommandError{
			Command:    "umount " + root,
			Message:    strings.TrimSpace(string(stderr)),
			Suggestion: "A process may still hold key files open; check with 'fuser -m'",
		}
	}
	return nil
}

// writeCronFile installs the two offset triggers: key rotation, and
// the later server reload that makes the server re-read the key files.
func (g *integrator) writeCronFile(def *config.Definition, exePath, configPath string) error {
	rotateSpec, err := cronSpec(def.RotationDuration(), 0)
	if err != nil {
		return err
	}

	offset := def.ReloadDuration() - def.RotationDuration()
	reloadSpec, err := cronSpec(def.RotationDuration(), offset)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("SHELL=/bin/sh\n")
	b.WriteString("PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s root %s rotate --config %s --no-color\n", rotateSpec, exePath, configPath)
	if def.ReloadCommand != "" {
		fmt.Fprintf(&b, "%s root %s\n", reloadSpec, def.ReloadCommand)
	}

	if err := os.WriteFile(g.cronPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", g.cronPath, err)
	}
	return nil
}

// removeCronFile deletes the scheduler entry. Absence is success.
// Returns true when a file was actually removed.
func (g *integrator) removeCronFile() (bool, error) {
	err := os.Remove(g.cronPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to remove %s: %w", g.cronPath, err)
}

// cronSpec renders an interval as a cron schedule, shifted by offset
// minutes within the hour. Intervals must be whole hours dividing 24;
// finer cadence belongs in a systemd timer, not this glue.
func cronSpec(interval, offset time.Duration) (string, error) {
	hours := int(interval.Hours())
	if time.Duration(hours)*time.Hour != interval || hours < 1 || 24%hours != 0 {
		return "", tkerrors.ConfigError{
			Field:      "rotation_interval",
			Value:      interval.String(),
			Message:    "cron install requires a whole number of hours dividing 24",
			Suggestion: "Use 1h, 2h, 3h, 4h, 6h, 8h, 12h, or 24h",
		}
	}

	offsetMin := int(offset.Minutes())
	if offsetMin < 0 || offsetMin > 59 {
		return "", tkerrors.ConfigError{
			Field:      "reload_interval",
			Value:      offset.String(),
			Message:    "reload offset must fall within the hour after rotation",
			Suggestion: "Set reload_interval between 1 and 59 minutes after rotation_interval",
		}
	}

	if hours == 24 {
		return fmt.Sprintf("%d 0 * * *", offsetMin), nil
	}
	return fmt.Sprintf("%d */%d * * *", offsetMin, hours), nil
}
