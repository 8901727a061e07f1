package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"price-scout/models"
)

// PrintReport writes the basket summary as plain-text tables. names maps a
// market ID to its display name; currency labels every amount.
func PrintReport(w io.Writer, items []models.LineItem, summary models.SavingsSummary, names map[string]string, currency string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌──────────────────────────────────────────────────────────────┐")
	fmt.Fprintln(w, "│                 Savings by Country (cheaper only)            │")
	fmt.Fprintln(w, "├───────────────────────────────┬──────────────────────────────┤")
	for _, id := range summary.MarketsBySaving() {
		fmt.Fprintf(w, "│ %-29s │ %-28s │\n", truncateText(nameOf(names, id), 29), amount(summary.CheaperOnlyDifference[id], currency))
	}
	fmt.Fprintln(w, "└───────────────────────────────┴──────────────────────────────┘")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌───────────────────────────────┬───────────────────┬──────────┐")
	fmt.Fprintln(w, "│ Whole Basket per Country      │ Difference        │ N/A      │")
	fmt.Fprintln(w, "├───────────────────────────────┼───────────────────┼──────────┤")
	for _, id := range sortedMarkets(summary) {
		fmt.Fprintf(w, "│ %-29s │ %-17s │ %-8d │\n",
			truncateText(nameOf(names, id), 29), amount(summary.TotalDifference[id], currency), summary.UnavailableCount[id])
	}
	fmt.Fprintln(w, "└───────────────────────────────┴───────────────────┴──────────┘")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "┌──────────────────────────────┬──────────────┬────────────────┐")
	fmt.Fprintln(w, "│ Item                         │ Buy in       │ Saving         │")
	fmt.Fprintln(w, "├──────────────────────────────┼──────────────┼────────────────┤")
	for _, st := range summary.PerItemBestStrategy {
		fmt.Fprintf(w, "│ %-28s │ %-12s │ %-14s │\n",
			truncateText(itemName(items, st.ItemID), 28), truncateText(nameOf(names, st.BestMarket), 12), amount(st.Saving, currency))
	}
	fmt.Fprintln(w, "└──────────────────────────────┴──────────────┴────────────────┘")
}

// sortedMarkets lists every market that appears in any view, ordered by ID.
func sortedMarkets(summary models.SavingsSummary) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range summary.TotalDifference {
		add(id)
	}
	for id := range summary.UnavailableCount {
		add(id)
	}
	sort.Strings(ids)
	return ids
}

func nameOf(names map[string]string, id string) string {
	if id == models.HomeMarket {
		return "Home"
	}
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

func itemName(items []models.LineItem, id string) string {
	for _, it := range items {
		if it.ID == id {
			if it.DisplayName != "" {
				return it.DisplayName
			}
			break
		}
	}
	return id
}

func amount(d decimal.Decimal, currency string) string {
	return d.Round(0).StringFixed(0) + " " + currency
}

func truncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
