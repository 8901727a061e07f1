package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"price-scout/errs"
	"price-scout/models"
	"price-scout/utils"
)

// QuoteFetcher returns one quote per market, in market order.
type QuoteFetcher interface {
	Fetch(ctx context.Context, productID string, markets []models.Market) []models.MarketQuote
}

// Comparer turns extracted item fields into compared line items.
type Comparer struct {
	fetcher    QuoteFetcher
	maxWorkers int
}

func NewComparer(fetcher QuoteFetcher, maxWorkers int) *Comparer {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Comparer{fetcher: fetcher, maxWorkers: maxWorkers}
}

// BuildItem fetches every market for one item and normalizes the quotes.
// A normalization failure marks the item degraded instead of failing.
func (c *Comparer) BuildItem(ctx context.Context, fields models.ItemFields, markets []models.Market, norm *Normalizer) models.LineItem {
	item := models.LineItem{
		ID:            fields.ProductID,
		DisplayName:   fields.DisplayName,
		HomeUnitPrice: fields.HomeUnitPrice,
		Quantity:      fields.Quantity,
	}
	if len(markets) == 0 {
		return item
	}

	raw := c.fetcher.Fetch(ctx, fields.ProductID, markets)
	return normalizeInto(item, raw, norm)
}

// BuildItems runs BuildItem for every entry concurrently, bounded by
// maxWorkers, and returns once all items resolved. Output order matches
// fields. The only error is ctx cancellation.
func (c *Comparer) BuildItems(ctx context.Context, fields []models.ItemFields, markets []models.Market, norm *Normalizer) ([]models.LineItem, error) {
	items := make([]models.LineItem, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, f := range fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = c.BuildItem(gctx, f, markets, norm)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Rescale sets a new quantity and re-normalizes the existing quotes without
// fetching. Negative quantities are rejected.
func Rescale(item models.LineItem, quantity int, norm *Normalizer) (models.LineItem, error) {
	if quantity < 0 {
		return item, errs.NewComputation(item.ID, "quantity must not be negative", nil)
	}
	out := item.Clone()
	out.Quantity = quantity

	raw := make([]models.MarketQuote, len(item.Quotes))
	for i, q := range item.Quotes {
		raw[i] = q.MarketQuote
	}
	out.Quotes = nil
	out.Degraded = false
	out.Err = nil
	return normalizeInto(out, raw, norm), nil
}

func normalizeInto(item models.LineItem, raw []models.MarketQuote, norm *Normalizer) models.LineItem {
	item.Quotes = make([]models.NormalizedQuote, len(raw))
	for i, q := range raw {
		nq, err := norm.Normalize(item.HomeUnitPrice, q)
		if err != nil {
			cerr := errs.NewComputation(item.ID, "normalize "+q.MarketID, err)
			utils.Log().Error().Str("item", item.ID).Str("market", q.MarketID).Err(cerr).Msg("item degraded")
			item.Degraded = true
			item.Err = cerr
			nq = models.NormalizedQuote{MarketQuote: q}
		}
		item.Quotes[i] = nq
	}
	return item
}
