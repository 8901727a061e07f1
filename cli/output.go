package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"price-scout/models"
	"price-scout/services"
)

type comparisonOutput struct {
	Items   []models.LineItem     `json:"items"`
	Summary models.SavingsSummary `json:"summary"`
}

func writeComparison(w io.Writer, format string, items []models.LineItem, summary models.SavingsSummary, markets []models.Market, currency string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(comparisonOutput{Items: items, Summary: summary})
	}

	names := make(map[string]string, len(markets))
	for _, m := range markets {
		names[m.ID] = m.Name
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s (%s) x%d: %s %s\n", it.DisplayName, it.ID, it.Quantity, it.HomeTotalPrice().StringFixed(0), currency)
		for i, q := range it.Quotes {
			total, ok := it.QuoteTotal(i)
			if !ok || q.PercentDiff == nil {
				fmt.Fprintf(w, "  %-20s not available\n", q.DisplayName)
				continue
			}
			fmt.Fprintf(w, "  %-20s %s %s (%+d%%)\n", q.DisplayName, total.Round(0).StringFixed(0), currency, *q.PercentDiff)
		}
	}
	services.PrintReport(w, items, summary, names, currency)
	return nil
}
