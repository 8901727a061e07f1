package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"price-scout/models"
)

const defaultCountryCode = "cz"

var currencyByCountry = map[string]string{
	"Puerto Rico":          "USD",
	"United Arab Emirates": "AED",
	"Hong Kong":            "HKD",
	"Dominican Republic":   "USD",
	"Canada":               "CAD",
	"Morocco":              "MAD",
	"Poland":               "PLN",
	"Jordan":               "JOD",
	"Czech Republic":       "CZK",
	"Thailand":             "THB",
	"United Kingdom":       "GBP",
	"Switzerland":          "CHF",
	"Serbia":               "RSD",
	"Belgium":              "EUR",
	"Bahrain":              "BHD",
	"Hungary":              "HUF",
	"Greece":               "EUR",
	"Indonesia":            "IDR",
	"Egypt":                "EGP",
	"United States":        "USD",
	"Slovakia":             "EUR",
	"Sweden":               "SEK",
	"Singapore":            "SGD",
	"Philippines":          "PHP",
	"Portugal":             "EUR",
	"Denmark":              "DKK",
	"Iceland":              "ISK",
	"Bulgaria":             "BGN",
	"Turkey":               "TRY",
	"Lithuania":            "EUR",
	"Japan":                "JPY",
	"Cyprus":               "EUR",
	"New Zealand":          "NZD",
	"Australia":            "AUD",
	"China":                "CNY",
	"Saudi Arabia":         "SAR",
	"Kuwait":               "KWD",
	"South Korea":          "KRW",
	"Finland":              "EUR",
	"Spain":                "EUR",
	"Croatia":              "EUR",
	"Norway":               "NOK",
	"Qatar":                "QAR",
	"Israel":               "ILS",
	"Oman":                 "OMR",
	"Germany":              "EUR",
	"Estonia":              "EUR",
	"Latvia":               "EUR",
	"Slovenia":             "EUR",
	"Malaysia":             "MYR",
	"Taiwan":               "TWD",
	"Romania":              "RON",
	"Ireland":              "EUR",
	"Italy":                "EUR",
	"France":               "EUR",
	"Austria":              "EUR",
	"Ukraine":              "UAH",
	"Mexico":               "MXN",
	"India":                "INR",
	"Netherlands":          "EUR",
	"Chile":                "CLP",
	"Colombia":             "COP",
}

// CurrencyFor maps a country display name to its currency code.
// Unknown countries fall back to EUR.
func CurrencyFor(country string) string {
	if code, ok := currencyByCountry[country]; ok {
		return code
	}
	return "EUR"
}

var countryPathRe = regexp.MustCompile(`/([a-z]{2})/[a-z]{2}/`)

// CountryFromURL extracts the country segment from a storefront URL such as
// https://www.ikea.com/de/de/. It returns "cz" when the URL has no such segment.
func CountryFromURL(url string) string {
	m := countryPathRe.FindStringSubmatch(url)
	if m == nil {
		return defaultCountryCode
	}
	return m[1]
}

// SelectedCountry is one entry of the user's market selection as stored
// in the markets file or the preferences table.
type SelectedCountry struct {
	Country  string `yaml:"country" json:"country"`
	Language string `yaml:"language" json:"language"`
	URL      string `yaml:"url" json:"url"`
	IsHome   bool   `yaml:"isHome,omitempty" json:"isHome,omitempty"`
}

type marketsFile struct {
	SelectedCountries []SelectedCountry `yaml:"selectedCountries"`
}

// ToMarkets turns a selection into comparison markets, dropping the home
// country and keeping selection order.
func ToMarkets(selected []SelectedCountry) []models.Market {
	markets := make([]models.Market, 0, len(selected))
	for _, s := range selected {
		if s.IsHome {
			continue
		}
		code := CountryFromURL(s.URL)
		lang := s.Language
		if lang == "" {
			lang = code
		}
		markets = append(markets, models.Market{
			ID:           code,
			Country:      code,
			Language:     lang,
			Name:         s.Country,
			CurrencyCode: CurrencyFor(s.Country),
		})
	}
	return markets
}

// ParseMarkets decodes a markets YAML document.
func ParseMarkets(data []byte) ([]SelectedCountry, error) {
	var f marketsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	for i, s := range f.SelectedCountries {
		if strings.TrimSpace(s.Country) == "" {
			return nil, fmt.Errorf("market %d: country is required", i)
		}
	}
	return f.SelectedCountries, nil
}

// LoadMarkets reads the markets file. A missing file means no markets
// were selected.
func LoadMarkets(path string) ([]SelectedCountry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read markets file %s: %w", path, err)
	}
	return ParseMarkets(data)
}
