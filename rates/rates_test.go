package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-scout/utils"
)

const cnbFixture = `17.10.2026 #201
země|měna|množství|kód|kurz
EMU|euro|1|EUR|24,335
Japonsko|jen|100|JPY|15,512
Polsko|zlotý|1|PLN|5,712
`

func TestParseCNB_HonoursAmount(t *testing.T) {
	r, err := ParseCNB(strings.NewReader(cnbFixture))
	require.NoError(t, err)

	assert.Equal(t, "24.335", r["EUR"].String())
	assert.Equal(t, "0.15512", r["JPY"].String())
	assert.Equal(t, "5.712", r["PLN"].String())
	assert.Equal(t, "1", r["CZK"].String())
}

func TestParseCNB_Empty(t *testing.T) {
	_, err := ParseCNB(strings.NewReader("header\nheader\n"))
	assert.Error(t, err)
}

func feedJSON(n int, updated time.Time) string {
	var b strings.Builder
	b.WriteString(`{"baseCurrency":"CZK","lastUpdated":"` + updated.Format(time.RFC3339) + `","rates":{`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"C%02d":%d.5`, i, i+1)
	}
	b.WriteString(`}}`)
	return b.String()
}

func TestFeedSource_RequiresEnoughCurrencies(t *testing.T) {
	utils.SetOutput(io.Discard)
	body := feedJSON(10, time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	_, err := NewFeedSource(srv.Client(), srv.URL, 72*time.Hour).Rates(context.Background())
	assert.Error(t, err)

	body = feedJSON(31, time.Now())
	r, err := NewFeedSource(srv.Client(), srv.URL, 72*time.Hour).Rates(context.Background())
	require.NoError(t, err)
	assert.Len(t, r, 31)
	assert.Equal(t, "1.5", r["C00"].String())
}

func TestFeedSource_StaleIsWarnedNotRejected(t *testing.T) {
	var logs strings.Builder
	utils.SetOutput(&logs)
	body := feedJSON(40, time.Now().Add(-100*time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	r, err := NewFeedSource(srv.Client(), srv.URL, 72*time.Hour).Rates(context.Background())
	require.NoError(t, err)
	assert.Len(t, r, 40)
	assert.Contains(t, logs.String(), "stale")
}

type fixedSource struct {
	rates Rates
	err   error
	calls int
}

func (f *fixedSource) Rates(context.Context) (Rates, error) {
	f.calls++
	return f.rates, f.err
}

func TestChain_FallsThroughTiers(t *testing.T) {
	utils.SetOutput(io.Discard)
	down := &fixedSource{err: errors.New("503")}
	cnb := &fixedSource{rates: Rates{"EUR": decimal.NewFromInt(25)}}
	cache := &MemoryCache{}

	snap, err := NewChain(cache).With(TierFeed, down).With(TierCNB, cnb).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TierCNB, snap.Tier)
	assert.Equal(t, 1, down.calls)

	stored, ok, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TierCNB, stored.Tier)
}

func TestChain_UsesCacheWhenLiveTiersFail(t *testing.T) {
	utils.SetOutput(io.Discard)
	cache := &MemoryCache{}
	require.NoError(t, cache.Store(context.Background(), Snapshot{
		Rates: Rates{"PLN": decimal.RequireFromString("5.9")},
		Tier:  TierFeed,
	}))

	snap, err := NewChain(cache).
		With(TierFeed, &fixedSource{err: errors.New("down")}).
		With(TierCNB, &fixedSource{err: errors.New("down")}).
		Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, TierCached, snap.Tier)
	assert.Equal(t, "5.9", snap.Rates["PLN"].String())
}

func TestChain_DefaultsLast(t *testing.T) {
	utils.SetOutput(io.Discard)
	snap, err := NewChain(nil).With(TierFeed, &fixedSource{err: errors.New("down")}).Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, TierDefaults, snap.Tier)
	assert.Equal(t, "24.25", snap.Rates["USD"].String())
	assert.Equal(t, "25.12", snap.Rates["EUR"].String())
	assert.Equal(t, "1", snap.Rates["CZK"].String())
}

func TestMemo_TTL(t *testing.T) {
	src := &fixedSource{rates: Rates{"EUR": decimal.NewFromInt(25)}}
	m := NewMemo(src, time.Hour)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, err := m.Rates(context.Background())
	require.NoError(t, err)
	_, _ = m.Rates(context.Background())
	assert.Equal(t, 1, src.calls)

	now = now.Add(61 * time.Minute)
	_, _ = m.Rates(context.Background())
	assert.Equal(t, 2, src.calls)
}

func TestMemo_KeepsOldRatesOnRefreshFailure(t *testing.T) {
	src := &fixedSource{rates: Rates{"EUR": decimal.NewFromInt(25)}}
	m := NewMemo(src, time.Nanosecond)

	_, err := m.Rates(context.Background())
	require.NoError(t, err)

	src.err = errors.New("down")
	src.rates = nil
	r, err := m.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "25", r["EUR"].String())
}
