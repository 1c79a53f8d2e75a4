package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datamermaid/covariates-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "covariates-cli",
	Short: "Covariate extraction for MERMAID sample events",
	Long:  "Fetches MERMAID sample events, matches them to catalog imagery by date, extracts zonal statistics around each site, and exports the results as CSV or a per-protocol workbook.",
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
