package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/models"
	"price-scout/rates"
	"price-scout/render"
	"price-scout/services"
	"price-scout/storefront"
)

type stubFetcher struct {
	unavailable bool
	calls       int
}

func (f *stubFetcher) Fetch(_ context.Context, productID string, markets []models.Market) []models.MarketQuote {
	f.calls++
	out := make([]models.MarketQuote, len(markets))
	for i, m := range markets {
		if f.unavailable || m.ID != "pl" {
			out[i] = models.UnavailableQuote(m, m.ProductURL(productID))
			continue
		}
		out[i] = models.AvailableQuote(m, m.ProductURL(productID), decimal.NewFromInt(100))
	}
	return out
}

type fixedRates struct{}

func (fixedRates) Rates(context.Context) (rates.Rates, error) {
	return rates.Rates{"PLN": decimal.NewFromInt(6), "EUR": decimal.NewFromInt(25)}, nil
}

var stubMarkets = storefront.StaticPreferences{
	{ID: "pl", Country: "pl", Language: "pl", Name: "Poland", CurrencyCode: "PLN"},
	{ID: "de", Country: "de", Language: "de", Name: "Germany", CurrencyCode: "EUR"},
}

func stubFactory(fetcher *stubFetcher, prefs storefront.Preferences) func(context.Context, *config.Config) (*Engine, error) {
	return func(_ context.Context, cfg *config.Config) (*Engine, error) {
		chain := rates.NewChain(&rates.MemoryCache{}).With(rates.TierFeed, fixedRates{})
		return &Engine{
			Config:      cfg,
			Comparer:    services.NewComparer(fetcher, 2),
			Chain:       chain,
			Rates:       chain,
			Preferences: prefs,
			Renderer:    render.New(render.NewMoneyFormatter("en", cfg.HomeCurrency)),
		}, nil
	}
}

func execute(t *testing.T, factory func(context.Context, *config.Config) (*Engine, error), args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{EngineFactory: factory})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCompare_Text(t *testing.T) {
	out, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "compare", "10", "--price", "700", "--name", "Lamp", "--qty", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Lamp (10) x2: 1400 CZK")
	assert.Contains(t, out, "Poland")
	assert.Contains(t, out, "1200 CZK (-14%)")
	assert.Contains(t, out, "not available")
	assert.Contains(t, out, "Savings by Country")
}

func TestCompare_JSON(t *testing.T) {
	out, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "--format", "json", "compare", "10", "--price", "700")
	require.NoError(t, err)

	var body comparisonOutput
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 1, body.Items[0].Quantity)
	assert.Equal(t, "100", body.Summary.TotalDifference["pl"].String())
}

func TestCompare_NoMarketsIsInert(t *testing.T) {
	fetcher := &stubFetcher{}
	out, err := execute(t, stubFactory(fetcher, storefront.StaticPreferences(nil)), "compare", "10", "--price", "700")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, fetcher.calls)
}

func TestCompare_RetriesWhenNothingAvailable(t *testing.T) {
	t.Setenv("PRICESCOUT_RETRY_WAIT", "1ms")
	t.Setenv("PRICESCOUT_MAX_RETRIES", "3")
	fetcher := &stubFetcher{unavailable: true}

	out, err := execute(t, stubFactory(fetcher, stubMarkets), "compare", "10", "--price", "700")
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.calls)
	assert.Contains(t, out, "not available")
}

func TestCompare_BadPrice(t *testing.T) {
	_, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "compare", "10", "--price", "free")
	assert.True(t, errs.IsConfig(err))
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "--format", "xml", "markets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRates_JSON(t *testing.T) {
	out, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "--format", "json", "rates")
	require.NoError(t, err)

	var snap rates.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, rates.TierFeed, snap.Tier)
	assert.True(t, snap.Rates["PLN"].Equal(decimal.NewFromInt(6)))
}

func TestMarkets_List(t *testing.T) {
	out, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "markets")
	require.NoError(t, err)
	assert.Contains(t, out, "Poland")
	assert.Contains(t, out, "https://www.ikea.com/pl/pl/p/-{productId}/")
}

func TestMarketsSync_NeedsPostgres(t *testing.T) {
	_, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "markets", "sync")
	assert.True(t, errs.IsConfig(err))
}

const cartYAML = `items:
  - product_id: "1"
    name: Lamp
    price: "700"
    quantity: 1
  - product_id: "2"
    name: Mug
    price: "49"
    quantity: 2
`

func writeCart(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cartYAML), 0o644))
	return path
}

func TestCart_Text(t *testing.T) {
	out, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "cart", writeCart(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Lamp (1) x1: 700 CZK")
	assert.Contains(t, out, "Mug (2) x2: 98 CZK")
	assert.Contains(t, out, "Whole Basket per Country")
}

func TestCart_HTML(t *testing.T) {
	out, err := execute(t, stubFactory(&stubFetcher{}, stubMarkets), "cart", writeCart(t), "--html")
	require.NoError(t, err)
	assert.Contains(t, out, "<!-- ps-item-1 after 1 -->")
	assert.Contains(t, out, "<!-- ps-summary after cart-summary -->")
	assert.Contains(t, out, "Price for 2 pcs in other countries")
}

func TestLoadCartFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items: [oops"), 0o644))
	_, err := loadCartFile(path)
	assert.True(t, errs.IsConfig(err))

	_, err = loadCartFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
