package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/ticketrot/cmd/ticketrot/commands"
	"github.com/systmms/ticketrot/internal/config"
	"github.com/systmms/ticketrot/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "ticketrot",
		Short: "Rotate TLS session ticket keys on volatile storage",
		Long: `ticketrot maintains a bounded ring of session ticket keys per server
on volatile storage, so that a host restart destroys old keys and
forward secrecy is restored over time.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "/etc/ticketrot.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(
		commands.NewRotateCommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewInstallCommand(cfg),
		commands.NewUninstallCommand(cfg),
		commands.NewDoctorCommand(cfg),
	)

	return rootCmd.Execute()
}
