package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ItemStrategy is the cheapest place to buy one item, home included.
type ItemStrategy struct {
	ItemID         string          `json:"item_id"`
	BestMarket     string          `json:"best_market"`
	BestTotalPrice decimal.Decimal `json:"best_total_price"`
	Saving         decimal.Decimal `json:"saving"`
}

// SavingsSummary holds the basket-level views. Maps are keyed by market ID.
type SavingsSummary struct {
	TotalDifference       map[string]decimal.Decimal `json:"total_difference"`
	CheaperOnlyDifference map[string]decimal.Decimal `json:"cheaper_only_difference"`
	UnavailableCount      map[string]int             `json:"unavailable_count"`
	UnavailableItems      map[string][]string        `json:"unavailable_items"`
	PerItemBestStrategy   []ItemStrategy             `json:"per_item_best_strategy"`
}

func NewSavingsSummary() SavingsSummary {
	return SavingsSummary{
		TotalDifference:       make(map[string]decimal.Decimal),
		CheaperOnlyDifference: make(map[string]decimal.Decimal),
		UnavailableCount:      make(map[string]int),
		UnavailableItems:      make(map[string][]string),
	}
}

// MarketsBySaving returns market IDs ordered by cheaper-only saving,
// largest first. Equal savings are ordered by ID.
func (s SavingsSummary) MarketsBySaving() []string {
	ids := make([]string, 0, len(s.CheaperOnlyDifference))
	for id := range s.CheaperOnlyDifference {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.CheaperOnlyDifference[ids[i]], s.CheaperOnlyDifference[ids[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// StrategyFor returns the strategy row for an item.
func (s SavingsSummary) StrategyFor(itemID string) (ItemStrategy, bool) {
	for _, st := range s.PerItemBestStrategy {
		if st.ItemID == itemID {
			return st, true
		}
	}
	return ItemStrategy{}, false
}

// IsEmpty reports whether no item contributed to the summary.
func (s SavingsSummary) IsEmpty() bool {
	return len(s.PerItemBestStrategy) == 0
}
