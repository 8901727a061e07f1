package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"price-scout/utils"
)

// MinFeedCurrencies is how many currencies the primary feed must carry
// before it is trusted over the CNB fallback.
const MinFeedCurrencies = 30

type feedDocument struct {
	Rates        Rates     `json:"rates"`
	LastUpdated  time.Time `json:"lastUpdated"`
	BaseCurrency string    `json:"baseCurrency"`
}

// FeedSource reads the published JSON rates document.
type FeedSource struct {
	client     *http.Client
	url        string
	staleAfter time.Duration
	now        func() time.Time
}

func NewFeedSource(client *http.Client, url string, staleAfter time.Duration) *FeedSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &FeedSource{client: client, url: url, staleAfter: staleAfter, now: time.Now}
}

func (s *FeedSource) Rates(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if doc.Rates == nil || doc.LastUpdated.IsZero() || doc.BaseCurrency == "" {
		return nil, fmt.Errorf("invalid feed structure")
	}
	if len(doc.Rates) <= MinFeedCurrencies {
		return nil, fmt.Errorf("feed has only %d currencies", len(doc.Rates))
	}

	age := s.now().Sub(doc.LastUpdated)
	if s.staleAfter > 0 && age > s.staleAfter {
		utils.Warn("Exchange rate feed is stale (%.0f hours old)", age.Hours())
	}
	return doc.Rates, nil
}
