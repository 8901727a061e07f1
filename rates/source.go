package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"price-scout/utils"
)

// Rates maps a currency code to the home-currency value of one unit.
type Rates map[string]decimal.Decimal

// Source supplies exchange rates. Implementations may be slow or fail.
type Source interface {
	Rates(ctx context.Context) (Rates, error)
}

// Tier names reported by Chain.
const (
	TierFeed     = "feed"
	TierCNB      = "cnb"
	TierCached   = "cached"
	TierDefaults = "defaults"
)

// Snapshot is a resolved set of rates plus where it came from.
type Snapshot struct {
	Rates     Rates     `json:"rates"`
	Tier      string    `json:"tier"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Defaults is the last-resort rate set in CZK.
func Defaults() Rates {
	return Rates{
		"USD": decimal.RequireFromString("24.25"),
		"EUR": decimal.RequireFromString("25.12"),
		"GBP": decimal.RequireFromString("30.45"),
		"JPY": decimal.RequireFromString("0.16"),
		"PLN": decimal.RequireFromString("6.05"),
		"CZK": decimal.NewFromInt(1),
	}
}

type defaultsSource struct{}

func (defaultsSource) Rates(context.Context) (Rates, error) { return Defaults(), nil }

type namedSource struct {
	tier string
	src  Source
}

// Chain tries live sources in order, then the last-known cache, then
// Defaults. A live success is written through to the cache.
type Chain struct {
	live  []namedSource
	cache Cache
	now   func() time.Time
}

func NewChain(cache Cache) *Chain {
	return &Chain{cache: cache, now: time.Now}
}

// With appends a live source tried before the cache.
func (c *Chain) With(tier string, src Source) *Chain {
	c.live = append(c.live, namedSource{tier: tier, src: src})
	return c
}

func (c *Chain) Rates(ctx context.Context) (Rates, error) {
	snap, err := c.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Rates, nil
}

// Resolve returns the first tier that produced rates.
func (c *Chain) Resolve(ctx context.Context) (Snapshot, error) {
	for _, ns := range c.live {
		r, err := ns.src.Rates(ctx)
		if err != nil {
			utils.Log().Warn().Str("tier", ns.tier).Err(err).Msg("exchange rate tier failed")
			continue
		}
		snap := Snapshot{Rates: r, Tier: ns.tier, FetchedAt: c.now()}
		c.writeThrough(ctx, snap)
		utils.Log().Info().Str("tier", ns.tier).Int("currencies", len(r)).Msg("exchange rates loaded")
		return snap, nil
	}

	if c.cache != nil {
		snap, ok, err := c.cache.Load(ctx)
		switch {
		case err != nil:
			utils.Log().Warn().Str("tier", TierCached).Err(err).Msg("exchange rate tier failed")
		case ok && len(snap.Rates) > 0:
			utils.Log().Info().Str("tier", TierCached).Str("from", snap.Tier).Time("fetched_at", snap.FetchedAt).
				Msg("using last known exchange rates")
			snap.Tier = TierCached
			return snap, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("resolve rates: %w", err)
	}

	utils.Warn("All exchange rate sources failed, using built-in defaults")
	r, _ := defaultsSource{}.Rates(ctx)
	return Snapshot{Rates: r, Tier: TierDefaults, FetchedAt: c.now()}, nil
}

func (c *Chain) writeThrough(ctx context.Context, snap Snapshot) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Store(ctx, snap); err != nil {
		utils.Log().Warn().Err(err).Msg("failed to cache exchange rates")
	}
}
