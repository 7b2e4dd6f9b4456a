package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/country-pulse/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "country-pulse",
	Short: "Country metadata and exchange-rate aggregation service",
	Long:  "Fetches country metadata and USD exchange rates from public APIs, merges them into per-country snapshots with GDP estimates, and serves them over HTTP alongside a rendered PNG summary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
