package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/ticketrot/internal/config"
	"github.com/systmms/ticketrot/internal/randsrc"
	"github.com/systmms/ticketrot/pkg/exec"
	"github.com/systmms/ticketrot/pkg/rotation"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check host readiness for ticket key rotation",
		Long: `Verify the host can rotate keys before relying on the schedule.

This command checks:
- Configuration file validity
- Random source availability (and which source would be used)
- Volatile storage mount state and slot population
- Dependent server version against the configured minimum`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cfg)
		},
	}

	return cmd
}

func runDoctor(cfg *config.Config) error {
	ctx := context.Background()
	runner := exec.DefaultRunner()
	failed := 0

	cfg.Logger.Info("Checking ticketrot configuration...")
	if err := cfg.Load(); err != nil {
		cfg.Logger.Error("Configuration: %v", err)
		return fmt.Errorf("configuration is invalid; remaining checks skipped")
	}
	def := cfg.Definition
	cfg.Logger.Info("Configuration valid: %d server(s), %d generations, %d-byte keys",
		len(def.Servers), def.Generations, def.KeyBytes)

	// Doctor treats a missing random source as fatal, like install.
	selector := randsrc.NewSelector(runner, cfg.Logger)
	if src, err := selector.Select(ctx); err != nil {
		cfg.Logger.Error("Random source: %v", err)
		failed++
	} else {
		cfg.Logger.Info("Random source: %s", src.Name())
	}

	g := newIntegrator(runner, cfg.Logger)
	if g.isMounted(ctx, def.StorageRoot) {
		cfg.Logger.Info("Volatile storage mounted at %s", def.StorageRoot)
	} else {
		cfg.Logger.Warn("Storage root %s is not a mount point; keys would survive a reboot", def.StorageRoot)
	}

	writer := rotation.NewWriter(def.StorageRoot, cfg.Logger)
	for _, server := range def.Servers {
		present := 0
		for gen := 1; gen <= def.Generations; gen++ {
			if writer.Exists(rotation.Slot{Server: server, Generation: gen}) {
				present++
			}
		}
		switch present {
		case def.Generations:
			cfg.Logger.Info("%s: all %d slot(s) populated", server, present)
		case 0:
			cfg.Logger.Warn("%s: no slots populated yet; run 'ticketrot rotate'", server)
		default:
			cfg.Logger.Error("%s: only %d of %d slot(s) populated", server, present, def.Generations)
			failed++
		}
	}

	if err := checkServerVersion(ctx, runner, def); err != nil {
		cfg.Logger.Error("Server version: %v", err)
		failed++
	} else if def.MinServerVersion != "" {
		cfg.Logger.Info("Dependent server meets minimum version %s", def.MinServerVersion)
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	cfg.Logger.Info("All checks passed")
	return nil
}
