package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"price-scout/models"
	"price-scout/utils"
)

// CSVWriter exports a comparison to a CSV file, one row per item and
// market, with the home price as its own row.
type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

var csvHeader = []string{
	"item_id", "item", "quantity", "market", "currency",
	"raw_price", "total", "percent_diff", "available", "best_market",
}

// Write saves items to the CSV file, creating the output directory if
// needed. Totals are in the home currency.
func (w *CSVWriter) Write(items []models.LineItem, summary models.SavingsSummary) error {
	if len(items) == 0 {
		utils.Warn("No items to write")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	rows := 0
	for _, it := range items {
		best := models.HomeMarket
		if st, ok := summary.StrategyFor(it.ID); ok {
			best = st.BestMarket
		}
		qty := strconv.Itoa(it.Quantity)

		writer.Write([]string{
			it.ID, it.DisplayName, qty, models.HomeMarket, "",
			it.HomeUnitPrice.String(), it.HomeTotalPrice().String(), "0", "true", best,
		})
		rows++

		for i, q := range it.Quotes {
			row := []string{it.ID, it.DisplayName, qty, q.MarketID, q.CurrencyCode, "", "", "", "false", best}
			if q.RawPrice != nil {
				row[5] = q.RawPrice.String()
			}
			if total, ok := it.QuoteTotal(i); ok && q.PercentDiff != nil {
				row[6] = total.String()
				row[7] = strconv.FormatInt(*q.PercentDiff, 10)
				row[8] = "true"
			}
			writer.Write(row)
			rows++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	utils.Success("Saved %d rows → %s", rows, w.path)
	return nil
}
