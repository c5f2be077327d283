package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/systmms/ticketrot/internal/config"
	"github.com/systmms/ticketrot/pkg/exec"
)

func NewUninstallCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the rotation schedule and volatile key storage",
		Long: `Tear down everything install created: the cron triggers, the
boot-time mount entry, and the volatile mount itself. Unmounting
destroys all current keys.

Steps already undone count as success. The boot-time entry is removed
before unmounting so a concurrent boot cannot re-create the mount.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return runUninstall(cfg)
		},
	}

	return cmd
}

func runUninstall(cfg *config.Config) error {
	ctx := context.Background()
	def := cfg.Definition
	g := newIntegrator(exec.DefaultRunner(), cfg.Logger)

	removed, err := g.removeCronFile()
	if err != nil {
		return err
	}
	if removed {
		cfg.Logger.Info("Removed rotation schedule")
	} else {
		cfg.Logger.Info("Rotation schedule already absent")
	}

	removed, err = g.removeFstabEntry(def.StorageRoot)
	if err != nil {
		return err
	}
	if removed {
		cfg.Logger.Info("Removed boot-time mount entry")
	} else {
		cfg.Logger.Info("Boot-time mount entry already absent")
	}

	if g.isMounted(ctx, def.StorageRoot) {
		if err := g.unmount(ctx, def.StorageRoot); err != nil {
			return err
		}
		cfg.Logger.Info("Unmounted %s; all keys destroyed", def.StorageRoot)
	} else {
		cfg.Logger.Info("Volatile storage already unmounted")
	}

	return nil
}
