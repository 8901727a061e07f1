package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/models"
	"price-scout/utils"
)

// Fetcher retrieves one quote per market for a product. Every market is
// fetched on its own goroutine; a failing market becomes an unavailable
// quote and never delays or aborts the others. It does not retry or cache.
type Fetcher struct {
	source   PageSource
	timeout  time.Duration
	minDelay time.Duration
	maxDelay time.Duration
}

func NewFetcher(source PageSource, cfg *config.Config) *Fetcher {
	return &Fetcher{
		source:   source,
		timeout:  cfg.FetchTimeout,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
	}
}

// Fetch returns exactly len(markets) quotes in market order.
func (f *Fetcher) Fetch(ctx context.Context, productID string, markets []models.Market) []models.MarketQuote {
	quotes := make([]models.MarketQuote, len(markets))
	if len(markets) == 0 {
		return quotes
	}

	jobs := make(chan models.FetchJob, len(markets))
	results := make(chan models.FetchResult, len(markets))

	var wg sync.WaitGroup
	wg.Add(len(markets))
	for i := 0; i < len(markets); i++ {
		go f.worker(ctx, jobs, results, &wg)
	}

	for i, m := range markets {
		jobs <- models.FetchJob{Index: i, Market: m, URL: m.ProductURL(productID)}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	return f.collect(productID, results, quotes)
}

func (f *Fetcher) worker(ctx context.Context, jobs <-chan models.FetchJob, results chan<- models.FetchResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		quote, err := f.fetchOne(ctx, job)
		results <- models.FetchResult{Index: job.Index, Quote: quote, Error: err}
	}
}

func (f *Fetcher) fetchOne(ctx context.Context, job models.FetchJob) (models.MarketQuote, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	unavailable := models.UnavailableQuote(job.Market, job.URL)

	if err := utils.RandomDelay(ctx, f.minDelay, f.maxDelay); err != nil {
		return unavailable, errs.NewFetch(job.Market.ID, job.URL, err)
	}

	text, err := f.source.PriceText(ctx, job.URL)
	if err != nil {
		return unavailable, errs.NewFetch(job.Market.ID, job.URL, err)
	}

	price, err := ParsePrice(text)
	if err != nil {
		return unavailable, errs.NewFetch(job.Market.ID, job.URL, err)
	}

	return models.AvailableQuote(job.Market, job.URL, price), nil
}

func (f *Fetcher) collect(productID string, results <-chan models.FetchResult, quotes []models.MarketQuote) []models.MarketQuote {
	failed := 0

	for result := range results {
		quotes[result.Index] = result.Quote
		if result.Error != nil {
			utils.Log().Warn().
				Str("product", productID).
				Str("market", result.Quote.MarketID).
				Err(result.Error).
				Msg("market quote unavailable")
			failed++
		}
	}

	utils.Debug("Product %s quoted: %d | Unavailable: %d", productID, len(quotes)-failed, failed)
	return quotes
}

// NewSource builds the page source selected by cfg.FetchStrategy. The
// returned closer releases browser resources and is never nil.
func NewSource(cfg *config.Config) (PageSource, io.Closer, error) {
	switch cfg.FetchStrategy {
	case "http", "":
		return NewHTTPSource(&http.Client{}, cfg.PriceSelector), nopCloser{}, nil
	case "browser":
		b := NewBrowserSource(cfg)
		return b, closerFunc(b.Close), nil
	case "firecrawl":
		s, err := NewFirecrawlSource(cfg.FirecrawlAPIKey, cfg.FirecrawlAPIURL, cfg.PriceSelector)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	default:
		return nil, nil, errs.NewConfig(fmt.Sprintf("unknown fetch strategy %q", cfg.FetchStrategy), nil)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
