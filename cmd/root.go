package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nexusai/qa-gate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "qa-gate",
	Short: "Listing quality gate for digital product drops",
	Long:  "Scores product listings against a fixed rubric (title, description, claims, cover, artifact contents), derives concept keys for duplicate detection, and records pass/fail verdicts.",
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
