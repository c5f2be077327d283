package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/ticketrot/internal/config"
	"github.com/systmms/ticketrot/internal/randsrc"
	"github.com/systmms/ticketrot/pkg/exec"
)

func NewInstallCommand(cfg *config.Config) *cobra.Command {
	var skipFirstCycle bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Set up volatile key storage and the rotation schedule",
		Long: `Prepare the host for ticket key rotation:

- verify the dependent server meets the minimum version
- create the storage root and its boot-time ramfs mount entry
- mount the volatile storage
- install cron triggers for rotation and the later server reload
- run the first rotation cycle so the server can start immediately

Every step is idempotent; rerunning install repairs missing pieces.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return runInstall(cfg, skipFirstCycle)
		},
	}

	cmd.Flags().BoolVar(&skipFirstCycle, "skip-first-cycle", false, "Do not run the initial rotation cycle")

	return cmd
}

func runInstall(cfg *config.Config, skipFirstCycle bool) error {
	ctx := context.Background()
	def := cfg.Definition
	runner := exec.DefaultRunner()

	if err := checkServerVersion(ctx, runner, def); err != nil {
		return err
	}
	cfg.Logger.Info("Dependent server version constraint satisfied")

	// No usable random source is fatal at install time: a fresh host
	// has no stale keys to fall back on.
	selector := randsrc.NewSelector(runner, cfg.Logger)
	src, err := selector.Select(ctx)
	if err != nil {
		return err
	}
	cfg.Logger.Info("Random source: %s", src.Name())

	if err := os.MkdirAll(def.StorageRoot, 0750); err != nil {
		return err
	}

	g := newIntegrator(runner, cfg.Logger)

	added, err := g.ensureFstabEntry(def.StorageRoot)
	if err != nil {
		return err
	}
	if added {
		cfg.Logger.Info("Added boot-time mount entry for %s", def.StorageRoot)
	} else {
		cfg.Logger.Info("Boot-time mount entry already present")
	}

	if !g.isMounted(ctx, def.StorageRoot) {
		if err := g.mount(ctx, def.StorageRoot); err != nil {
			return err
		}
		cfg.Logger.Info("Mounted volatile storage at %s", def.StorageRoot)
	} else {
		cfg.Logger.Info("Volatile storage already mounted")
	}

	exePath, err := os.Executable()
	if err != nil {
		return err
	}
	if err := g.writeCronFile(def, exePath, cfg.Path); err != nil {
		return err
	}
	cfg.Logger.Info("Installed rotation schedule (every %s, reload %s later)",
		def.RotationInterval, (def.ReloadDuration() - def.RotationDuration()).String())

	if skipFirstCycle {
		return nil
	}

	// First cycle inline so every slot exists before the server starts.
	if err := runRotate(cfg, "", ""); err != nil {
		return err
	}

	if def.ReloadCommand != "" {
		if _, stderr, err := runner.Execute(ctx, "/bin/sh", "-c", def.ReloadCommand); err != nil {
			cfg.Logger.Warn("Reload command failed: %v (%s)", err, string(stderr))
		} else {
			cfg.Logger.Info("Reloaded dependent server")
		}
	}

	return nil
}
