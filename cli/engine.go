package cli

import (
	"context"
	"io"
	"net/http"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/rates"
	"price-scout/render"
	"price-scout/scraper/market"
	"price-scout/services"
	"price-scout/storage"
	"price-scout/storefront"
	"price-scout/utils"
)

// Engine is the wired comparison stack shared by the commands.
type Engine struct {
	Config      *config.Config
	Comparer    *services.Comparer
	Chain       *rates.Chain
	Rates       rates.Source
	Preferences storefront.Preferences
	Renderer    *render.Renderer

	// Store is set when preferences live in Postgres.
	Store *storage.PostgresStore

	closers []io.Closer
}

func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	e := &Engine{Config: cfg}

	source, closer, err := market.NewSource(cfg)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closer)
	e.Comparer = services.NewComparer(market.NewFetcher(source, cfg), cfg.MaxWorkers)

	cache, cacheCloser, err := storage.OpenRateCache(ctx, cfg)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.closers = append(e.closers, cacheCloser)

	client := &http.Client{Timeout: cfg.FetchTimeout}
	e.Chain = rates.NewChain(cache).
		With(rates.TierFeed, rates.NewFeedSource(client, cfg.RatesFeedURL, cfg.RatesStaleAfter)).
		With(rates.TierCNB, rates.NewCNBSource(client, cfg.RatesCNBURL))
	e.Rates = rates.NewMemo(e.Chain, cfg.RatesTTL)

	switch cfg.Preferences {
	case "postgres":
		store, err := storage.NewPostgresStore(cfg)
		if err != nil {
			e.Close()
			return nil, errs.NewConfig("open preference store", err)
		}
		e.closers = append(e.closers, closerFunc(store.Close))
		if err := store.EnsureSchema(ctx); err != nil {
			e.Close()
			return nil, err
		}
		e.Store = store
		e.Preferences = store
	default:
		e.Preferences = storefront.FilePreferences{Path: cfg.MarketsFile}
	}

	e.Renderer = render.New(render.NewMoneyFormatter(cfg.Locale, cfg.HomeCurrency))
	utils.Debug("Engine ready | strategy=%s workers=%d rates-cache=%s preferences=%s",
		cfg.FetchStrategy, cfg.MaxWorkers, cfg.RatesCache, cfg.Preferences)
	return e, nil
}

// Close releases browser, cache and database resources.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			utils.Log().Warn().Err(err).Msg("close engine resource")
		}
	}
	e.closers = nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
