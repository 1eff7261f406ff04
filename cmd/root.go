package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Outaos/data-steward/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "data-steward",
	Short: "GIS data stewardship toolkit",
	Long:  "Estimates population within a radius from gridded rasters, triages request logs, scaffolds task folders, exports feature layers, and tracks regional search-interest trends.",
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
