package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("PRICESCOUT_MAX_WORKERS", "9")
	t.Setenv("PRICESCOUT_FETCH_TIMEOUT", "3s")
	t.Setenv("PRICESCOUT_FETCH_STRATEGY", "browser")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.MaxWorkers)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "browser", cfg.FetchStrategy)
	assert.Equal(t, 10, cfg.AttachAttempts)
	assert.Equal(t, ".pip-temp-price__integer", cfg.PriceSelector)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PRICESCOUT_HOME_COUNTRY=sk\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PRICESCOUT_HOME_COUNTRY") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk", cfg.HomeCountry)
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.FetchStrategy = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.FetchStrategy = "firecrawl"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RatesCache = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Preferences = "ldap"
	assert.Error(t, cfg.Validate())
}

func TestCountryFromURL(t *testing.T) {
	assert.Equal(t, "de", CountryFromURL("https://www.ikea.com/de/de/"))
	assert.Equal(t, "at", CountryFromURL("https://www.ikea.com/at/de/p/-123/"))
	assert.Equal(t, "cz", CountryFromURL("https://example.test/"))
}

func TestCurrencyFor(t *testing.T) {
	assert.Equal(t, "PLN", CurrencyFor("Poland"))
	assert.Equal(t, "EUR", CurrencyFor("Atlantis"))
}

func TestParseMarkets_ToMarkets(t *testing.T) {
	doc := []byte(`
selectedCountries:
  - country: Czech Republic
    language: cs
    url: https://www.ikea.com/cz/cs/
    isHome: true
  - country: Poland
    language: pl
    url: https://www.ikea.com/pl/pl/
  - country: Austria
    language: de
    url: https://www.ikea.com/at/de/
`)
	selected, err := ParseMarkets(doc)
	require.NoError(t, err)
	require.Len(t, selected, 3)

	markets := ToMarkets(selected)
	require.Len(t, markets, 2)
	assert.Equal(t, "pl", markets[0].ID)
	assert.Equal(t, "PLN", markets[0].CurrencyCode)
	assert.Equal(t, "at", markets[1].Country)
	assert.Equal(t, "de", markets[1].Language)
	assert.Equal(t, "Austria", markets[1].Name)
}

func TestLoadMarkets_MissingFileMeansNone(t *testing.T) {
	selected, err := LoadMarkets(filepath.Join(t.TempDir(), "markets.yaml"))
	require.NoError(t, err)
	assert.Empty(t, selected)
}
