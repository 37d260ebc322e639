package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/registry-extract/internal/progress"
	"github.com/sells-group/registry-extract/internal/store"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resume state and recent runs",
	Long:  "Display how many records the output file already holds and the outcome of recent extraction runs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := os.Stat(cfg.Output.Path); os.IsNotExist(err) {
			fmt.Printf("Output file %s does not exist yet; next run starts fresh.\n", cfg.Output.Path)
		} else {
			st, err := progress.Open(cfg.Output.Path)
			if err != nil {
				return eris.Wrap(err, "status: open progress store")
			}
			count := st.Count()
			st.Close() //nolint:errcheck
			fmt.Printf("Output file %s holds %d records; next run resumes past them.\n", cfg.Output.Path, count)
		}

		runs, err := store.Open(cfg.Store.Path)
		if err != nil {
			return eris.Wrap(err, "status: open run history")
		}
		defer runs.Close() //nolint:errcheck
		if err := runs.Migrate(ctx); err != nil {
			return eris.Wrap(err, "status: migrate run history")
		}

		entries, err := runs.ListRecent(ctx, statusRuns)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		fmt.Println("\nRecent runs:")
		for _, e := range entries {
			line := fmt.Sprintf("  %s  %-8s  started %s  pages=%d rows=%d new=%d",
				e.ID[:8], e.Status, e.StartedAt.Format("2006-01-02 15:04:05"),
				e.Pages, e.RowsSeen, e.NewRecords)
			if e.Error != "" {
				line += "  error=" + e.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
