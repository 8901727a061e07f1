package models

import "github.com/shopspring/decimal"

// ItemFields is what the extraction collaborator reads for one line item.
type ItemFields struct {
	ProductID     string          `json:"product_id" yaml:"product_id"`
	DisplayName   string          `json:"name" yaml:"name"`
	HomeUnitPrice decimal.Decimal `json:"price" yaml:"price"`
	Quantity      int             `json:"quantity" yaml:"quantity"`
}

// LineItem is the unit of comparison. Quotes holds at most one entry per
// configured market, in configured-market order.
type LineItem struct {
	ID            string            `json:"id"`
	DisplayName   string            `json:"name"`
	HomeUnitPrice decimal.Decimal   `json:"home_unit_price"`
	Quantity      int               `json:"quantity"`
	Quotes        []NormalizedQuote `json:"quotes"`

	// Degraded items failed normalization and render as unavailable.
	Degraded bool  `json:"degraded,omitempty"`
	Err      error `json:"-"`
}

func (li LineItem) HomeTotalPrice() decimal.Decimal {
	return li.HomeUnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// QuoteTotal is the quantity-scaled converted price of quote i.
func (li LineItem) QuoteTotal(i int) (decimal.Decimal, bool) {
	return li.Quotes[i].Total(li.Quantity)
}

// Clone copies the quotes slice so the copy can be rescaled independently.
func (li LineItem) Clone() LineItem {
	out := li
	out.Quotes = append([]NormalizedQuote(nil), li.Quotes...)
	return out
}
