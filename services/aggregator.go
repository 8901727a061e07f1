package services

import (
	"github.com/shopspring/decimal"

	"price-scout/errs"
	"price-scout/models"
)

// Aggregate builds the three basket views in one pass over items.
//
// Per item the home total is the starting candidate. Each available quote
// adds homeTotal-total to TotalDifference (may be negative) and, when
// strictly cheaper, to CheaperOnlyDifference. The cheapest strictly-lower
// total wins the item, so home wins ties and the first of equal foreign
// totals wins among markets. Unavailable quotes only count toward
// UnavailableCount. Aggregate does not modify items.
func Aggregate(items []models.LineItem) models.SavingsSummary {
	summary := models.NewSavingsSummary()
	summary.PerItemBestStrategy = make([]models.ItemStrategy, 0, len(items))

	for _, item := range items {
		homeTotal := item.HomeTotalPrice()
		if item.Degraded {
			summary.PerItemBestStrategy = append(summary.PerItemBestStrategy, homeStrategy(item.ID, homeTotal))
			continue
		}

		cheapest := homeTotal
		cheapestMarket := models.HomeMarket

		for i, q := range item.Quotes {
			total, ok := item.QuoteTotal(i)
			if !ok {
				summary.UnavailableCount[q.MarketID]++
				summary.UnavailableItems[q.MarketID] = append(summary.UnavailableItems[q.MarketID], item.ID)
				continue
			}

			addTotals(&summary, q.MarketID, homeTotal, total, 1)

			if total.LessThan(cheapest) {
				cheapest = total
				cheapestMarket = q.MarketID
			}
		}

		summary.PerItemBestStrategy = append(summary.PerItemBestStrategy, models.ItemStrategy{
			ItemID:         item.ID,
			BestMarket:     cheapestMarket,
			BestTotalPrice: cheapest,
			Saving:         homeTotal.Sub(cheapest),
		})
	}

	return summary
}

// ApplyItem updates summary in place after one item's quantity or home
// price changed, touching only that item's entries. old and updated must be
// the same item with the same quote layout; otherwise a computation error is
// returned and the caller should re-aggregate.
func ApplyItem(summary *models.SavingsSummary, old, updated models.LineItem) error {
	if old.ID != updated.ID {
		return errs.NewComputation(updated.ID, "apply item: id changed from "+old.ID, nil)
	}
	if old.Degraded != updated.Degraded || !sameLayout(old, updated) {
		return errs.NewComputation(updated.ID, "apply item: quote layout changed", nil)
	}

	row := -1
	for i, st := range summary.PerItemBestStrategy {
		if st.ItemID == updated.ID {
			row = i
			break
		}
	}
	if row < 0 {
		return errs.NewComputation(updated.ID, "apply item: item not in summary", nil)
	}

	if updated.Degraded {
		summary.PerItemBestStrategy[row] = homeStrategy(updated.ID, updated.HomeTotalPrice())
		return nil
	}

	oldHome := old.HomeTotalPrice()
	for i, q := range old.Quotes {
		if total, ok := old.QuoteTotal(i); ok {
			addTotals(summary, q.MarketID, oldHome, total, -1)
		}
	}

	newHome := updated.HomeTotalPrice()
	cheapest := newHome
	cheapestMarket := models.HomeMarket
	for i, q := range updated.Quotes {
		total, ok := updated.QuoteTotal(i)
		if !ok {
			continue
		}
		addTotals(summary, q.MarketID, newHome, total, 1)
		if total.LessThan(cheapest) {
			cheapest = total
			cheapestMarket = q.MarketID
		}
	}

	summary.PerItemBestStrategy[row] = models.ItemStrategy{
		ItemID:         updated.ID,
		BestMarket:     cheapestMarket,
		BestTotalPrice: cheapest,
		Saving:         newHome.Sub(cheapest),
	}
	return nil
}

func addTotals(summary *models.SavingsSummary, market string, homeTotal, total decimal.Decimal, sign int64) {
	diff := homeTotal.Sub(total).Mul(decimal.NewFromInt(sign))

	summary.TotalDifference[market] = summary.TotalDifference[market].Add(diff)

	saving := summary.CheaperOnlyDifference[market]
	if total.LessThan(homeTotal) {
		saving = saving.Add(diff)
	}
	summary.CheaperOnlyDifference[market] = saving
}

func homeStrategy(itemID string, homeTotal decimal.Decimal) models.ItemStrategy {
	return models.ItemStrategy{
		ItemID:         itemID,
		BestMarket:     models.HomeMarket,
		BestTotalPrice: homeTotal,
		Saving:         decimal.Zero,
	}
}

func sameLayout(a, b models.LineItem) bool {
	if len(a.Quotes) != len(b.Quotes) {
		return false
	}
	for i := range a.Quotes {
		if a.Quotes[i].MarketID != b.Quotes[i].MarketID || a.Quotes[i].Available != b.Quotes[i].Available {
			return false
		}
	}
	return true
}
