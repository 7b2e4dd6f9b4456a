package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/country-pulse/internal/merge"
	"github.com/sells-group/country-pulse/internal/refresh"
	"github.com/sells-group/country-pulse/internal/report"
	"github.com/sells-group/country-pulse/internal/source"
	"github.com/sells-group/country-pulse/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "country_pulse.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPipeline(st store.Store) *refresh.Pipeline {
	countries := source.NewCountriesClient(source.Options{
		URL:       cfg.Sources.CountriesURL,
		Timeout:   cfg.Sources.Timeout(),
		UserAgent: cfg.Sources.UserAgent,
	})
	rates := source.NewRatesClient(source.Options{
		URL:       cfg.Sources.RatesURL,
		Timeout:   cfg.Sources.Timeout(),
		UserAgent: cfg.Sources.UserAgent,
	})
	renderer := report.New(cfg.Report.Width, cfg.Report.Height, cfg.Report.OutputPath)

	return refresh.New(countries, rates, st, renderer, refresh.Options{
		TopN:       cfg.Report.TopN,
		Multiplier: merge.RandomMultiplier(cfg.GDP.MinMultiplier, cfg.GDP.MaxMultiplier),
	})
}
