package render

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-scout/models"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func englishRenderer() *Renderer {
	return New(NewMoneyFormatter("en", "CZK"))
}

func quote(id, name, converted string, percent int64) models.NormalizedQuote {
	m := models.Market{ID: id, Country: id, Language: id, Name: name, CurrencyCode: "CZK"}
	url := m.ProductURL("40299687")
	if converted == "" {
		return models.NormalizedQuote{MarketQuote: models.UnavailableQuote(m, url)}
	}
	c := decimal.RequireFromString(converted)
	p := percent
	return models.NormalizedQuote{
		MarketQuote:    models.AvailableQuote(m, url, c),
		ConvertedPrice: &c,
		PercentDiff:    &p,
	}
}

func TestItem_QuantityHeaderAndUnavailable(t *testing.T) {
	item := models.LineItem{
		ID:            "40299687",
		DisplayName:   "LACK table",
		HomeUnitPrice: decimal.NewFromInt(1000),
		Quantity:      2,
		Quotes: []models.NormalizedQuote{
			quote("pl", "Poland", "1200", 20),
			quote("de", "Germany", "", 0),
		},
	}

	out, err := englishRenderer().Item(item)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "item_quantity", []byte(out))
}

func TestItem_ZeroPercentIsNeutral(t *testing.T) {
	item := models.LineItem{
		ID:            "40299687",
		HomeUnitPrice: decimal.NewFromInt(1000),
		Quantity:      1,
		Quotes: []models.NormalizedQuote{
			quote("pl", "Poland", "1000", 0),
			quote("at", "Austria", "899.2", -10),
		},
	}

	out, err := englishRenderer().Item(item)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "item_neutral", []byte(out))

	assert.Contains(t, out, `<span class="ps-diff">0%</span>`)
	assert.NotContains(t, out, "Price for")
}

func TestItem_Degraded(t *testing.T) {
	out, err := englishRenderer().Item(models.LineItem{ID: "7", Quantity: 1, Degraded: true})
	require.NoError(t, err)
	newGoldie(t).Assert(t, "item_degraded", []byte(out))
}

func basket() ([]models.LineItem, models.SavingsSummary) {
	items := []models.LineItem{
		{ID: "a", DisplayName: "LACK table", HomeUnitPrice: decimal.NewFromInt(1000), Quantity: 1,
			Quotes: []models.NormalizedQuote{quote("pl", "Poland", "800", -20), quote("de", "Germany", "", 0)}},
		{ID: "b", DisplayName: "KALLAX shelf", HomeUnitPrice: decimal.NewFromInt(500), Quantity: 2,
			Quotes: []models.NormalizedQuote{quote("pl", "Poland", "300", -40), quote("de", "Germany", "550", 10)}},
		{ID: "c", DisplayName: "Mug", HomeUnitPrice: decimal.NewFromInt(50), Quantity: 1,
			Quotes: []models.NormalizedQuote{quote("pl", "Poland", "60", 20), quote("de", "Germany", "50", 0)}},
	}

	s := models.NewSavingsSummary()
	s.TotalDifference["pl"] = decimal.NewFromInt(590)
	s.TotalDifference["de"] = decimal.NewFromInt(-100)
	s.CheaperOnlyDifference["pl"] = decimal.NewFromInt(600)
	s.CheaperOnlyDifference["de"] = decimal.Zero
	s.UnavailableCount["de"] = 1
	s.UnavailableItems["de"] = []string{"a"}
	s.PerItemBestStrategy = []models.ItemStrategy{
		{ItemID: "a", BestMarket: "pl", BestTotalPrice: decimal.NewFromInt(800), Saving: decimal.NewFromInt(200)},
		{ItemID: "b", BestMarket: "pl", BestTotalPrice: decimal.NewFromInt(600), Saving: decimal.NewFromInt(400)},
		{ItemID: "c", BestMarket: models.HomeMarket, BestTotalPrice: decimal.NewFromInt(50), Saving: decimal.Zero},
	}
	return items, s
}

func TestSummary_Basket(t *testing.T) {
	items, s := basket()

	out, err := englishRenderer().Summary(items, s)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "summary_basket", []byte(out))
}

func TestSummary_CheaperSortedDescending(t *testing.T) {
	items, s := basket()
	s.CheaperOnlyDifference["de"] = decimal.NewFromInt(700)

	out, err := englishRenderer().Summary(items, s)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Germany: <span class=\"ps-price\">700"), strings.Index(out, "Poland: <span class=\"ps-price\">600"))
}

func TestMoneyFormatter(t *testing.T) {
	f := NewMoneyFormatter("en", "CZK")
	assert.Equal(t, "1,200 CZK", f.Format(decimal.NewFromInt(1200)))
	assert.Equal(t, "1,300 CZK", f.Format(decimal.RequireFromString("1299.01")))
	assert.Equal(t, "-400 CZK", f.Format(decimal.NewFromInt(-400)))
	assert.Equal(t, "+590 CZK", f.Signed(decimal.NewFromInt(590)))
	assert.Equal(t, "0 CZK", f.Signed(decimal.Zero))

	bad := NewMoneyFormatter("not a locale!", "EUR")
	assert.Equal(t, "12,345 EUR", bad.Format(decimal.NewFromInt(12345)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+20%", FormatPercent(20))
	assert.Equal(t, "-14%", FormatPercent(-14))
	assert.Equal(t, "0%", FormatPercent(0))
}
