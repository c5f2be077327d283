package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/ticketrot/internal/config"
	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/history"
	"github.com/systmms/ticketrot/internal/metrics"
	"github.com/systmms/ticketrot/internal/randsrc"
	"github.com/systmms/ticketrot/pkg/exec"
	"github.com/systmms/ticketrot/pkg/rotation"
)

func NewRotateCommand(cfg *config.Config) *cobra.Command {
	var (
		stateDir        string
		metricsTextfile string
	)

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Run one key rotation cycle across all configured servers",
		Long: `Run a single rotation cycle: age every server's key generations
forward by one slot and write a fresh encryption key into generation 1.

Intended to be invoked periodically by cron or a systemd timer. The
exit status reflects the aggregate outcome: zero when every slot of
every server was advanced, non-zero when any slot failed, with the
affected (server, generation) pairs reported on stderr.

A slot that has never been populated receives independent filler
content, so the dependent server's file-presence check never fails.`,
		Example: `  # One cycle using /etc/ticketrot.yaml
  ticketrot rotate

  # One cycle with node_exporter textfile metrics
  ticketrot rotate --metrics-textfile /var/lib/node_exporter/ticketrot.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return runRotate(cfg, stateDir, metricsTextfile)
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Metadata directory (default: XDG data dir)")
	cmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this textfile after the cycle")

	return cmd
}

func runRotate(cfg *config.Config, stateDir, metricsTextfile string) error {
	def := cfg.Definition

	metrics.InitMetrics()

	runner := exec.DefaultRunner()
	selector := randsrc.NewSelector(runner, cfg.Logger)

	rotator := rotation.NewRotator(rotation.Config{
		StorageRoot: def.StorageRoot,
		Servers:     def.Servers,
		Generations: def.Generations,
		KeyBytes:    def.KeyBytes,
	}, selector, cfg.Logger)

	if stateDir == "" {
		stateDir = history.DefaultDir()
	}
	rotator.SetStore(history.NewFileStore(stateDir))

	result, err := rotator.Cycle(context.Background())
	if err != nil {
		return err
	}

	if metricsTextfile == "" {
		metricsTextfile = def.MetricsTextfile
	}
	if metricsTextfile != "" {
		if err := metrics.WriteTextfile(metricsTextfile); err != nil {
			cfg.Logger.Warn("Failed to write metrics textfile: %v", err)
		}
	}

	if !result.OK() {
		for _, f := range result.Failures {
			cfg.Logger.Error("Slot %s failed: %v", f.Slot, f.Err)
		}
		return tkerrors.UserError{
			Message:    fmt.Sprintf("%d slot(s) failed to rotate; all other slots were advanced", len(result.Failures)),
			Suggestion: "Check free space and permissions on the volatile storage, then rerun 'ticketrot rotate'",
		}
	}

	return nil
}
