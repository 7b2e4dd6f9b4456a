// Package refresh orchestrates the country refresh pipeline: fetch both
// upstreams, merge, persist, re-query aggregates, render the summary.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/country-pulse/internal/merge"
	"github.com/sells-group/country-pulse/internal/model"
	"github.com/sells-group/country-pulse/internal/report"
	"github.com/sells-group/country-pulse/internal/source"
	"github.com/sells-group/country-pulse/internal/store"
)

// ErrRefreshInFlight is returned when a refresh arrives while another is
// still running. Refreshes are serialized; callers retry later.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// Renderer is the summary artifact collaborator.
type Renderer interface {
	Render(s report.Summary) error
}

// Result is the outcome of one successful refresh.
type Result struct {
	Total           int        `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

// Options configures a Pipeline.
type Options struct {
	TopN       int
	Multiplier merge.MultiplierFunc
}

// Pipeline runs the refresh flow against its collaborators.
type Pipeline struct {
	countries  source.Countries
	rates      source.Rates
	store      store.Store
	renderer   Renderer
	multiplier merge.MultiplierFunc
	topN       int

	mu sync.Mutex // guards the single in-flight refresh
}

// New creates a Pipeline. A nil multiplier defaults to the standard
// [1000,2000) draw.
func New(countries source.Countries, rates source.Rates, st store.Store, renderer Renderer, opts Options) *Pipeline {
	multiplier := opts.Multiplier
	if multiplier == nil {
		multiplier = merge.RandomMultiplier(1000, 2000)
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 5
	}
	return &Pipeline{
		countries:  countries,
		rates:      rates,
		store:      st,
		renderer:   renderer,
		multiplier: multiplier,
		topN:       topN,
	}
}

// Run executes one refresh. Either upstream failing aborts the whole
// refresh before any row is written. A render failure is logged and does
// not fail the refresh: the persist phase has already committed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, ErrRefreshInFlight
	}
	defer p.mu.Unlock()

	run, err := p.store.CreateRefreshRun(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	result, err := p.run(ctx)
	if err != nil {
		p.finishRun(run.ID, model.RefreshRunFailed, 0, err.Error())
		return nil, err
	}

	p.finishRun(run.ID, model.RefreshRunComplete, result.Total, "")
	zap.L().Info("refresh complete",
		zap.String("run_id", run.ID),
		zap.Int("total_countries", result.Total),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	// Fetch both upstreams concurrently; either failure aborts before
	// anything is persisted.
	var (
		rawCountries []model.RawCountry
		rates        model.RateTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawCountries, err = p.countries.Fetch(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = p.rates.Fetch(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	snapshots, err := merge.Merge(rawCountries, rates, now, p.multiplier)
	if err != nil {
		return nil, err
	}

	written, err := p.store.UpsertBatch(ctx, snapshots)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("persisted refresh batch", zap.Int64("rows", written))

	total, err := p.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	top, err := p.store.TopByGDP(ctx, p.topN)
	if err != nil {
		return nil, err
	}
	last, err := p.store.LastRefreshedAt(ctx)
	if err != nil {
		return nil, err
	}

	if p.renderer != nil {
		summary := report.Summary{
			TotalCountries:  total,
			Top:             top,
			LastRefreshedAt: last,
		}
		if err := p.renderer.Render(summary); err != nil {
			// Persisted data is already committed; the stale or missing
			// artifact is the only casualty.
			zap.L().Error("summary render failed", zap.Error(err))
		}
	}

	return &Result{Total: total, LastRefreshedAt: last}, nil
}

// finishRun records the run outcome with a short, detached deadline so a
// canceled request context cannot lose the audit row.
func (p *Pipeline) finishRun(id string, status model.RefreshRunStatus, total int, runErr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.FinishRefreshRun(ctx, id, status, total, runErr); err != nil {
		zap.L().Warn("failed to finalize refresh run",
			zap.String("run_id", id),
			zap.Error(err),
		)
	}
}
