package cmd

import (
	"fmt"
	"os"

	"materiel-tracker/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "materiel-tracker",
	Short: "Materiel Tracker Service",
	Long: `Materiel Tracker runs periodic inventory campaigns over institutional assets.
It allocates collision-free inventory numbers, records scan confirmations exactly
once per asset per campaign, and reconciles which assets were seen and which were not.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with "debug" level so CLI users get readable
		// ISO8601 timestamps instead of production JSON.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
