package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/registry-extract/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "registry-extract",
	Short: "Resumable business registry extraction",
	Long: "Extracts business records from a paginated registry result table into an " +
		"append-only JSONL file, deduplicating against prior runs so an interrupted " +
		"extraction resumes without reprocessing or duplicate output.",
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
