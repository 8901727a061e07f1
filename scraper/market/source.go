package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"price-scout/utils"
)

// PageSource reads the raw price text from a market's product page.
type PageSource interface {
	PriceText(ctx context.Context, url string) (string, error)
}

// HTTPSource fetches product pages with a plain GET and reads the price
// element from the static HTML.
type HTTPSource struct {
	client   *http.Client
	selector string
}

func NewHTTPSource(client *http.Client, selector string) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, selector: selector}
}

func (s *HTTPSource) PriceText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", utils.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	return priceFromHTML(resp.Body, s.selector)
}

func priceFromHTML(r io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("price element %q not found", selector)
	}

	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return "", fmt.Errorf("price element %q is empty", selector)
	}
	return text, nil
}
