package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Content classification and AI orchestration pipeline",
	Long:  "Classifies inbound content through staged rule evaluation, routes surviving items to AI backends with fallback and cost accounting, and proposes follow-up actions.",
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
