package models

import "github.com/shopspring/decimal"

// MarketQuote is one market's price observation for one product.
// RawPrice is nil whenever Available is false.
type MarketQuote struct {
	MarketID     string           `json:"market_id"`
	DisplayName  string           `json:"display_name"`
	CurrencyCode string           `json:"currency"`
	RawPrice     *decimal.Decimal `json:"raw_price"`
	Available    bool             `json:"available"`
	ReferenceURL string           `json:"reference_url"`
}

func AvailableQuote(m Market, url string, price decimal.Decimal) MarketQuote {
	return MarketQuote{
		MarketID:     m.ID,
		DisplayName:  m.Name,
		CurrencyCode: m.CurrencyCode,
		RawPrice:     &price,
		Available:    true,
		ReferenceURL: url,
	}
}

func UnavailableQuote(m Market, url string) MarketQuote {
	return MarketQuote{
		MarketID:     m.ID,
		DisplayName:  m.Name,
		CurrencyCode: m.CurrencyCode,
		ReferenceURL: url,
	}
}

// NormalizedQuote is a MarketQuote converted to the home currency and
// compared against one home unit price.
type NormalizedQuote struct {
	MarketQuote
	ConvertedPrice *decimal.Decimal `json:"converted_price"`
	PercentDiff    *int64           `json:"percent_diff"`
}

// Total returns the converted price scaled by quantity. ok is false for
// unavailable quotes.
func (q NormalizedQuote) Total(quantity int) (total decimal.Decimal, ok bool) {
	if !q.Available || q.ConvertedPrice == nil {
		return decimal.Zero, false
	}
	return q.ConvertedPrice.Mul(decimal.NewFromInt(int64(quantity))), true
}
