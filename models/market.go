package models

import "strings"

// HomeMarket is the strategy key used when buying at home is cheapest.
const HomeMarket = "home"

// DefaultURLTemplate is the product page pattern used when a market has none.
const DefaultURLTemplate = "https://www.ikea.com/{country}/{language}/p/-{productId}/"

// Market is one foreign storefront the user compares against.
type Market struct {
	ID           string `json:"id" yaml:"id"`
	Country      string `json:"country" yaml:"country"`
	Language     string `json:"language" yaml:"language"`
	Name         string `json:"name" yaml:"name"`
	CurrencyCode string `json:"currency" yaml:"currency"`
	URLTemplate  string `json:"url_template,omitempty" yaml:"url_template,omitempty"`
}

// ProductURL expands the market's URL template for a product.
func (m Market) ProductURL(productID string) string {
	tmpl := m.URLTemplate
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}
	return strings.NewReplacer(
		"{country}", m.Country,
		"{language}", m.Language,
		"{productId}", productID,
	).Replace(tmpl)
}

type FetchJob struct {
	Index  int
	Market Market
	URL    string
}

type FetchResult struct {
	Index int
	Quote MarketQuote
	Error error
}
