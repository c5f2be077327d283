package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/ticketrot/internal/config"
	"github.com/systmms/ticketrot/internal/history"
	"github.com/systmms/ticketrot/internal/logging"
	"github.com/systmms/ticketrot/pkg/rotation"
)

// NewStatusCommand creates the status command
func NewStatusCommand(cfg *config.Config) *cobra.Command {
	var (
		stateDir     string
		statusFormat string
		historyLimit int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show key ring state and rotation history",
		Long: `Display the slot population of every configured server's key ring
together with the recorded rotation outcomes.

Slot presence is read directly from the volatile storage; cycle
history comes from the metadata store and survives reboots.`,
		Example: `  # Table for all servers
  ticketrot status

  # Status plus the last five cycles
  ticketrot status --history 5

  # Machine-readable output
  ticketrot status --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			if stateDir == "" {
				stateDir = history.DefaultDir()
			}
			store := history.NewFileStore(stateDir)

			switch statusFormat {
			case "json":
				return outputStatusJSON(cfg, store, historyLimit)
			default:
				return outputStatusTable(cfg, store, historyLimit)
			}
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Metadata directory (default: XDG data dir)")
	cmd.Flags().StringVar(&statusFormat, "format", "table", "Output format: table, json")
	cmd.Flags().IntVar(&historyLimit, "history", 0, "Also show the last N rotation cycles")

	return cmd
}

type serverReport struct {
	Server       string                `json:"server"`
	SlotsPresent int                   `json:"slots_present"`
	Generations  int                   `json:"generations"`
	Status       *history.ServerStatus `json:"status,omitempty"`
}

func collectReports(cfg *config.Config, store history.Store) []serverReport {
	def := cfg.Definition
	writer := rotation.NewWriter(def.StorageRoot, logging.New(false, true))

	reports := make([]serverReport, 0, len(def.Servers))
	for _, server := range def.Servers {
		report := serverReport{
			Server:      server,
			Generations: def.Generations,
		}
		for g := 1; g <= def.Generations; g++ {
			if writer.Exists(rotation.Slot{Server: server, Generation: g}) {
				report.SlotsPresent++
			}
		}
		if status, err := store.GetStatus(server); err == nil {
			report.Status = status
		}
		reports = append(reports, report)
	}
	return reports
}

func outputStatusTable(cfg *config.Config, store history.Store, historyLimit int) error {
	reports := collectReports(cfg, store)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVER\tSLOTS\tLAST CYCLE\tRESULT\tCYCLES\tFAILURES\tLAST ERROR")
	for _, r := range reports {
		lastCycle, result, cycles, failures, lastErr := "never", "-", "0", "0", "-"
		if r.Status != nil {
			lastCycle = r.Status.LastCycle.Format(time.RFC3339)
			result = r.Status.LastResult
			cycles = fmt.Sprintf("%d", r.Status.CycleCount)
			failures = fmt.Sprintf("%d", r.Status.FailureCount)
			if r.Status.LastError != "" {
				lastErr = r.Status.LastError
			}
		}
		fmt.Fprintf(w, "%s\t%d/%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Server, r.SlotsPresent, r.Generations, lastCycle, result, cycles, failures, lastErr)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if historyLimit > 0 {
		entries, err := store.GetCycles(historyLimit)
		if err != nil {
			return err
		}
		fmt.Println()
		hw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(hw, "TIMESTAMP\tSTATUS\tSOURCE\tSERVERS\tFILLERS\tDURATION")
		for _, e := range entries {
			fmt.Fprintf(hw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				e.Timestamp.Format(time.RFC3339), e.Status, e.Source, e.Servers, e.FillerSlots, e.Duration)
		}
		if err := hw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

func outputStatusJSON(cfg *config.Config, store history.Store, historyLimit int) error {
	out := struct {
		Servers []serverReport       `json:"servers"`
		Cycles  []history.CycleEntry `json:"cycles,omitempty"`
	}{
		Servers: collectReports(cfg, store),
	}

	if historyLimit > 0 {
		entries, err := store.GetCycles(historyLimit)
		if err != nil {
			return err
		}
		out.Cycles = entries
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
