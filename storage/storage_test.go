package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/models"
	"price-scout/rates"
	"price-scout/utils"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func comparedItem() models.LineItem {
	pl := models.Market{ID: "pl", Name: "Poland", CurrencyCode: "PLN"}
	de := models.Market{ID: "de", Name: "Germany", CurrencyCode: "EUR"}
	price, converted := d("100"), d("600")
	pct := int64(-14)
	return models.LineItem{
		ID:            "1",
		DisplayName:   "Lamp",
		HomeUnitPrice: d("700"),
		Quantity:      2,
		Quotes: []models.NormalizedQuote{
			{MarketQuote: models.AvailableQuote(pl, "https://x/pl", price), ConvertedPrice: &converted, PercentDiff: &pct},
			{MarketQuote: models.UnavailableQuote(de, "https://x/de")},
		},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	utils.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "out", "comparison.csv")
	item := comparedItem()
	summary := models.NewSavingsSummary()
	summary.PerItemBestStrategy = []models.ItemStrategy{{ItemID: "1", BestMarket: "pl", BestTotalPrice: d("1200"), Saving: d("200")}}

	require.NoError(t, NewCSVWriter(path).Write([]models.LineItem{item}, summary))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"1", "Lamp", "2", "home", "", "700", "1400", "0", "true", "pl"}, records[1])
	assert.Equal(t, []string{"1", "Lamp", "2", "pl", "PLN", "100", "1200", "-14", "true", "pl"}, records[2])
	assert.Equal(t, []string{"1", "Lamp", "2", "de", "EUR", "", "", "", "false", "pl"}, records[3])
}

func TestCSVWriter_NoItemsWritesNothing(t *testing.T) {
	utils.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, NewCSVWriter(path).Write(nil, models.NewSavingsSummary()))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

type fakeKV struct {
	data   map[string]string
	ttl    time.Duration
	setErr error
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisRateCache_RoundTrip(t *testing.T) {
	utils.SetOutput(io.Discard)
	kv := &fakeKV{data: map[string]string{}}
	cache := NewRedisRateCache(kv, 72*time.Hour)

	_, ok, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Store(context.Background(), rates.Snapshot{
		Rates:     rates.Rates{"EUR": d("25.12"), "PLN": d("6.05")},
		Tier:      rates.TierCNB,
		FetchedAt: at,
	}))
	assert.Equal(t, 72*time.Hour, kv.ttl)

	snap, ok, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rates.TierCNB, snap.Tier)
	assert.True(t, snap.FetchedAt.Equal(at))
	assert.True(t, snap.Rates["EUR"].Equal(d("25.12")))
}

func TestRedisRateCache_StoreError(t *testing.T) {
	utils.SetOutput(io.Discard)
	kv := &fakeKV{data: map[string]string{}, setErr: errors.New("READONLY")}
	err := NewRedisRateCache(kv, 0).Store(context.Background(), rates.Snapshot{Rates: rates.Defaults()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestRedisRateCache_CorruptValue(t *testing.T) {
	kv := &fakeKV{data: map[string]string{rateSnapshotKey: "{not json"}}
	_, ok, err := NewRedisRateCache(kv, 0).Load(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDecodeRates(t *testing.T) {
	r, err := decodeRates([]byte(`{"EUR":"25.12","USD":24.25}`))
	require.NoError(t, err)
	assert.True(t, r["USD"].Equal(d("24.25")))

	_, err = decodeRates([]byte(`{}`))
	assert.Error(t, err)
}

func TestCleanSelection(t *testing.T) {
	got := cleanSelection([]config.SelectedCountry{
		{Country: " Poland ", Language: "PL", URL: "https://www.ikea.com/pl/pl/"},
		{Country: "", URL: "https://www.ikea.com/de/de/"},
		{Country: "Austria", URL: " "},
	})
	require.Len(t, got, 1)
	assert.Equal(t, config.SelectedCountry{Country: "Poland", Language: "pl", URL: "https://www.ikea.com/pl/pl/"}, got[0])
}

func TestOpenRateCache_NoneAndUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cache, closer, err := OpenRateCache(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &rates.MemoryCache{}, cache)
	assert.NoError(t, closer.Close())

	cfg.RatesCache = "memcached"
	_, _, err = OpenRateCache(context.Background(), cfg)
	assert.True(t, errs.IsConfig(err))
}
