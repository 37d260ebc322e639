// Package extract drives the page-by-page extraction loop: fetch rows,
// decode, dedup-save, paginate, repeat until the source is exhausted.
package extract

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/registry-extract/internal/model"
	"github.com/sells-group/registry-extract/internal/resilience"
	"github.com/sells-group/registry-extract/internal/source"
)

// State is the engine's position in its run lifecycle.
type State string

const (
	StateGated      State = "gated"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StatePaginating State = "paginating"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// RecordStore is the persistence surface the engine writes to.
type RecordStore interface {
	// Append saves a record unless its key is already present. It reports
	// whether the record was newly persisted.
	Append(rec *model.Record) (bool, error)
}

// Config controls retry and pacing behavior.
type Config struct {
	// Retry governs the per-page row fetch.
	Retry resilience.RetryConfig

	// PacingMin/PacingMax bound the randomized wait between page
	// advances. The delay is drawn uniformly from [PacingMin, PacingMax)
	// and exists to interact politely with the external source; it must
	// stay randomized. Defaults: 2s and 4s.
	PacingMin time.Duration
	PacingMax time.Duration
}

// Result summarizes a completed run.
type Result struct {
	Pages       int `json:"pages"`
	Rows        int `json:"rows"`
	NewRecords  int `json:"new_records"`
	SkippedRows int `json:"skipped_rows"`
}

// Engine walks a PageSource one page at a time and appends every decoded
// row to the record store. Dedup lives in the store, so a page that is all
// duplicates after a partial prior run is handled without special casing.
type Engine struct {
	src   source.PageSource
	store RecordStore
	cfg   Config
	log   *zap.Logger
	state State
}

// New creates an engine. Zero-value config fields get defaults.
func New(src source.PageSource, store RecordStore, cfg Config) *Engine {
	if cfg.PacingMin <= 0 {
		cfg.PacingMin = 2 * time.Second
	}
	if cfg.PacingMax <= cfg.PacingMin {
		cfg.PacingMax = cfg.PacingMin + 2*time.Second
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("extract.engine", "fetch rows")
	}
	return &Engine{
		src:   src,
		store: store,
		cfg:   cfg,
		log:   zap.L().With(zap.String("component", "extract.engine")),
		state: StateGated,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// errNoRows marks an empty page inside the retry loop so a slow render
// gets another chance before being read as end-of-data.
var errNoRows = eris.New("no result rows visible")

// Run executes the extraction loop. The page source is released on every
// exit path. Only a failure to acquire the result view (or cancellation)
// returns an error; data-level faults are logged and absorbed so the run
// makes maximal forward progress.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var res Result

	defer func() {
		if cerr := e.src.Close(); cerr != nil {
			e.log.Warn("closing page source", zap.Error(cerr))
		}
	}()

	e.state = StateGated
	if err := e.src.Ready(ctx); err != nil {
		e.state = StateFailed
		return res, eris.Wrap(err, "engine: acquire result view")
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			e.state = StateFailed
			return res, eris.Wrap(err, "engine: run cancelled")
		}

		pageLog := e.log.With(zap.Int("page", page))
		pageLog.Info("processing page")

		e.state = StateFetching
		rows := e.fetchRows(ctx, pageLog)
		if len(rows) == 0 {
			pageLog.Info("no result rows found, assuming end of pagination")
			e.state = StateDone
			return res, nil
		}
		res.Pages = page

		e.state = StateExtracting
		newOnPage := 0
		for _, row := range rows {
			res.Rows++
			rec := model.DecodeRow(row)
			if rec == nil {
				res.SkippedRows++
				pageLog.Error("skipping unparseable row", zap.Strings("cells", row))
				continue
			}
			saved, err := e.store.Append(rec)
			if err != nil {
				// Record stays unsaved and retryable; the run continues.
				pageLog.Error("saving record failed",
					zap.String("business_name", rec.BusinessName),
					zap.Error(err),
				)
				continue
			}
			if saved {
				newOnPage++
				res.NewRecords++
				pageLog.Info("saved record", zap.String("business_name", rec.BusinessName))
			}
		}
		if newOnPage == 0 {
			pageLog.Warn("page yielded no new unique records")
		}

		e.state = StatePaginating
		if !e.advance(ctx, pageLog) {
			e.state = StateDone
			return res, nil
		}

		if err := e.pace(ctx); err != nil {
			e.state = StateFailed
			return res, eris.Wrap(err, "engine: run cancelled")
		}
	}
}

// fetchRows retries the row fetch on transient faults (including an empty
// table, which may just be a slow render). Exhaustion or a permanent fault
// yields an empty slice; the caller reads that as end-of-data.
func (e *Engine) fetchRows(ctx context.Context, log *zap.Logger) []source.Row {
	rows, err := resilience.DoVal(ctx, e.cfg.Retry, func(ctx context.Context) ([]source.Row, error) {
		rows, err := e.src.FetchRows(ctx)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, resilience.NewTransientError(errNoRows, 0)
		}
		return rows, nil
	})
	if err != nil {
		if !errors.Is(err, errNoRows) {
			log.Warn("row fetch failed, treating page as empty", zap.Error(err))
		}
		return nil
	}
	return rows
}

// advance moves to the next page, reporting false when pagination is
// exhausted. Faults while querying or activating the control are logged
// and read as pagination complete rather than aborting the run.
func (e *Engine) advance(ctx context.Context, log *zap.Logger) bool {
	ok, err := e.src.HasNextPage(ctx)
	if err != nil {
		log.Error("pagination query failed, treating as complete", zap.Error(err))
		return false
	}
	if !ok {
		log.Info("next control disabled or missing, pagination complete")
		return false
	}

	moved, err := e.src.AdvancePage(ctx)
	if err != nil {
		log.Error("page advance failed, treating as complete", zap.Error(err))
		return false
	}
	return moved
}

func (e *Engine) pace(ctx context.Context) error {
	timer := time.NewTimer(pacingDelay(e.cfg.PacingMin, e.cfg.PacingMax))
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacingDelay draws uniformly from [min, max).
func pacingDelay(min, max time.Duration) time.Duration {
	return min + time.Duration(rand.Float64()*float64(max-min))
}
