package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/registry-extract/internal/extract"
	"github.com/sells-group/registry-extract/internal/progress"
	"github.com/sells-group/registry-extract/internal/resilience"
	"github.com/sells-group/registry-extract/internal/source"
	"github.com/sells-group/registry-extract/internal/store"
)

var (
	extractURL    string
	extractNoGate bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the extraction loop",
	Long: `Walk the registry result table page by page, appending every new record
to the output file. Records already present in the output are skipped, so
re-running after an interruption continues where the last run stopped.

By default the run pauses until the operator confirms the result view is
visible (the source gates results behind a challenge and a manual search).
Use --no-gate for sources that need no operator step.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "extract"))

		srcURL := cfg.Source.URL
		if extractURL != "" {
			srcURL = extractURL
		}
		if srcURL == "" {
			return eris.New("extract: source url is required (--url or source.url)")
		}

		tbl, err := source.NewTableSource(source.TableOptions{
			URL:          srcURL,
			RowSelector:  cfg.Source.RowSelector,
			NextSelector: cfg.Source.NextSelector,
			Timeout:      cfg.Source.Timeout(),
			UserAgent:    cfg.Source.UserAgent,
		})
		if err != nil {
			return eris.Wrap(err, "extract: create page source")
		}

		var src source.PageSource = tbl
		if !extractNoGate {
			src = source.NewGate(tbl, os.Stdin, os.Stdout)
		}

		st, err := progress.Open(cfg.Output.Path)
		if err != nil {
			return eris.Wrap(err, "extract: open progress store")
		}
		defer st.Close() //nolint:errcheck
		log.Info("progress store ready",
			zap.String("path", cfg.Output.Path),
			zap.Int("existing_records", st.Count()),
		)

		runs := openRunLog(ctx, log)
		var runID string
		if runs != nil {
			defer runs.Close() //nolint:errcheck
			if runID, err = runs.Start(ctx); err != nil {
				log.Warn("recording run start failed", zap.Error(err))
				runID = ""
			}
		}

		eng := extract.New(src, st, extract.Config{
			Retry: resilience.RetryConfig{
				MaxAttempts: cfg.Retry.MaxAttempts,
				Backoff:     cfg.Retry.Wait(),
			},
			PacingMin: cfg.Pacing.Min(),
			PacingMax: cfg.Pacing.Max(),
		})

		res, runErr := eng.Run(ctx)
		recordOutcome(runs, runID, res, runErr, log)

		if runErr != nil {
			log.Error("extraction aborted", zap.Error(runErr))
			return runErr
		}

		fmt.Printf("Extraction complete: %d pages, %d rows, %d new records (%d skipped), %d total in output.\n",
			res.Pages, res.Rows, res.NewRecords, res.SkippedRows, st.Count())
		return nil
	},
}

// openRunLog opens the run-history database. The history is diagnostics
// only, so any failure downgrades to a warning and the run proceeds.
func openRunLog(ctx context.Context, log *zap.Logger) *store.RunLog {
	runs, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Warn("run history unavailable", zap.Error(err))
		return nil
	}
	if err := runs.Migrate(ctx); err != nil {
		log.Warn("run history migration failed", zap.Error(err))
		runs.Close() //nolint:errcheck
		return nil
	}
	return runs
}

func recordOutcome(runs *store.RunLog, runID string, res extract.Result, runErr error, log *zap.Logger) {
	if runs == nil || runID == "" {
		return
	}
	// The engine has already shut down; record with a fresh context.
	ctx := context.Background()
	var err error
	if runErr != nil {
		err = runs.Fail(ctx, runID, runErr.Error())
	} else {
		err = runs.Complete(ctx, runID, store.RunResult{
			Pages:      res.Pages,
			RowsSeen:   res.Rows,
			NewRecords: res.NewRecords,
		})
	}
	if err != nil {
		log.Warn("recording run outcome failed", zap.Error(err))
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "result view URL (overrides source.url)")
	extractCmd.Flags().BoolVar(&extractNoGate, "no-gate", false, "skip the operator confirmation step")
	rootCmd.AddCommand(extractCmd)
}
