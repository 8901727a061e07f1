package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/mendableai/firecrawl-go"

	"price-scout/utils"
)

type firecrawlScraper interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

// FirecrawlSource fetches product pages through the Firecrawl scrape API and
// reads the price element from the returned HTML.
type FirecrawlSource struct {
	app      firecrawlScraper
	selector string
}

func NewFirecrawlSource(apiKey, apiURL, selector string) (*FirecrawlSource, error) {
	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firecrawl: %w", err)
	}
	return &FirecrawlSource{app: app, selector: selector}, nil
}

func (s *FirecrawlSource) PriceText(ctx context.Context, url string) (string, error) {
	headers := map[string]string{"User-Agent": utils.RandomUserAgent()}
	params := &firecrawl.ScrapeParams{
		Formats: []string{"html"},
		Headers: &headers,
	}

	type scrapeResult struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}
	done := make(chan scrapeResult, 1)
	go func() {
		doc, err := s.app.ScrapeURL(url, params)
		done <- scrapeResult{doc: doc, err: err}
	}()

	var res scrapeResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return "", fmt.Errorf("scrape failed: %w", res.err)
	}
	if res.doc == nil || res.doc.HTML == "" {
		return "", fmt.Errorf("scrape of %s returned no html", url)
	}
	return priceFromHTML(strings.NewReader(res.doc.HTML), s.selector)
}
