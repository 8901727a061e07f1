package services

import (
	"sync"

	"github.com/shopspring/decimal"

	"price-scout/errs"
	"price-scout/models"
	"price-scout/rates"
	"price-scout/utils"
)

var hundred = decimal.NewFromInt(100)

// Normalize converts quote into the home currency and compares it with the
// home unit price.
//
// convertedPrice is rawPrice*rate, exact. percentDiff is
// (converted-ref)/ref*100 rounded to a whole percent, half away from zero,
// so +0.5% reports 1 and -0.5% reports -1. Unavailable quotes come back with
// both fields nil.
func Normalize(referenceUnitPrice decimal.Decimal, quote models.MarketQuote, rate decimal.Decimal) (models.NormalizedQuote, error) {
	out := models.NormalizedQuote{MarketQuote: quote}
	if !quote.Available || quote.RawPrice == nil {
		return out, nil
	}
	if !referenceUnitPrice.IsPositive() {
		return out, errs.NewComputation("", "reference price must be positive, got "+referenceUnitPrice.String(), nil)
	}

	converted := quote.RawPrice.Mul(rate)
	percent := converted.Sub(referenceUnitPrice).Mul(hundred).Div(referenceUnitPrice).Round(0).IntPart()

	out.ConvertedPrice = &converted
	out.PercentDiff = &percent
	return out, nil
}

// RateFor looks up a currency rate. Unknown currencies return 1 and false.
func RateFor(r rates.Rates, currency string) (decimal.Decimal, bool) {
	if rate, ok := r[currency]; ok {
		return rate, true
	}
	return decimal.NewFromInt(1), false
}

// Normalizer applies one resolved rate set. Unknown currencies fall back to
// a rate of 1; every fallback is logged and counted.
type Normalizer struct {
	rates rates.Rates

	mu      sync.Mutex
	unknown map[string]int
}

func NewNormalizer(r rates.Rates) *Normalizer {
	return &Normalizer{rates: r, unknown: make(map[string]int)}
}

func (n *Normalizer) Rate(currency string) decimal.Decimal {
	rate, ok := RateFor(n.rates, currency)
	if !ok {
		n.mu.Lock()
		n.unknown[currency]++
		n.mu.Unlock()
		utils.Log().Warn().Str("currency", currency).Msg("no exchange rate for currency, using 1")
	}
	return rate
}

func (n *Normalizer) Normalize(referenceUnitPrice decimal.Decimal, quote models.MarketQuote) (models.NormalizedQuote, error) {
	if !quote.Available {
		return models.NormalizedQuote{MarketQuote: quote}, nil
	}
	return Normalize(referenceUnitPrice, quote, n.Rate(quote.CurrencyCode))
}

// UnknownRateHits reports how often each unknown currency was defaulted.
func (n *Normalizer) UnknownRateHits() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]int, len(n.unknown))
	for k, v := range n.unknown {
		out[k] = v
	}
	return out
}
