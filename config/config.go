package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable, e.g. PRICESCOUT_MAX_WORKERS.
const EnvPrefix = "PRICESCOUT"

type Config struct {
	Environment string `envconfig:"ENV"`

	HomeCountry  string `envconfig:"HOME_COUNTRY"`
	HomeCurrency string `envconfig:"HOME_CURRENCY"`
	Locale       string `envconfig:"LOCALE"`
	MarketsFile  string `envconfig:"MARKETS_FILE"`
	Preferences  string `envconfig:"PREFERENCES"`

	FetchStrategy   string        `envconfig:"FETCH_STRATEGY"`
	PriceSelector   string        `envconfig:"PRICE_SELECTOR"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT"`
	MaxWorkers      int           `envconfig:"MAX_WORKERS"`
	MinDelay        time.Duration `envconfig:"MIN_DELAY"`
	MaxDelay        time.Duration `envconfig:"MAX_DELAY"`
	MaxRetries      int           `envconfig:"MAX_RETRIES"`
	RetryWait       time.Duration `envconfig:"RETRY_WAIT"`
	Headless        bool          `envconfig:"HEADLESS"`
	FirecrawlAPIKey string        `envconfig:"FIRECRAWL_API_KEY"`
	FirecrawlAPIURL string        `envconfig:"FIRECRAWL_API_URL"`

	DebounceDelay   time.Duration `envconfig:"DEBOUNCE_DELAY"`
	AttachInterval  time.Duration `envconfig:"ATTACH_INTERVAL"`
	AttachAttempts  int           `envconfig:"ATTACH_ATTEMPTS"`
	ResizeThreshold float64       `envconfig:"RESIZE_THRESHOLD"`

	RatesFeedURL    string        `envconfig:"RATES_FEED_URL"`
	RatesCNBURL     string        `envconfig:"RATES_CNB_URL"`
	RatesTTL        time.Duration `envconfig:"RATES_TTL"`
	RatesStaleAfter time.Duration `envconfig:"RATES_STALE_AFTER"`
	RatesCache      string        `envconfig:"RATES_CACHE"`

	RedisURL   string `envconfig:"REDIS_URL"`
	CSVPath    string `envconfig:"CSV_PATH"`
	HTTPAddr   string `envconfig:"HTTP_ADDR"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE"`
}

func DefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		HomeCountry:     "cz",
		HomeCurrency:    "CZK",
		Locale:          "cs-CZ",
		MarketsFile:     "markets.yaml",
		Preferences:     "file",
		FetchStrategy:   "http",
		PriceSelector:   ".pip-temp-price__integer",
		FetchTimeout:    15 * time.Second,
		MaxWorkers:      4,
		MinDelay:        0,
		MaxDelay:        300 * time.Millisecond,
		MaxRetries:      3,
		RetryWait:       2 * time.Second,
		Headless:        true,
		FirecrawlAPIURL: "https://api.firecrawl.dev",
		DebounceDelay:   500 * time.Millisecond,
		AttachInterval:  500 * time.Millisecond,
		AttachAttempts:  10,
		ResizeThreshold: 50,
		RatesFeedURL:    "https://raw.githubusercontent.com/janca/ikea-price-scout/main/src/data/exchange_rates.json",
		RatesCNBURL:     "https://www.cnb.cz/cs/financni-trhy/devizovy-trh/kurzy-devizoveho-trhu/kurzy-devizoveho-trhu/denni_kurz.txt",
		RatesTTL:        time.Hour,
		RatesStaleAfter: 72 * time.Hour,
		RatesCache:      "none",
		RedisURL:        "redis://localhost:6379/0",
		CSVPath:         "output/comparison.csv",
		HTTPAddr:        ":8080",
		DBHost:          "localhost",
		DBPort:          5433,
		DBUser:          "postgres",
		DBPassword:      "postgres",
		DBName:          "price_scout",
		DBSSLMode:       "disable",
	}
}

// Load starts from DefaultConfig, loads envFile into the process environment
// when it exists, then overlays PRICESCOUT_* variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.FetchStrategy {
	case "http", "browser", "firecrawl":
	default:
		return fmt.Errorf("invalid fetch strategy %q (want http, browser or firecrawl)", c.FetchStrategy)
	}
	switch c.RatesCache {
	case "none", "redis", "postgres":
	default:
		return fmt.Errorf("invalid rates cache %q (want none, redis or postgres)", c.RatesCache)
	}
	switch c.Preferences {
	case "file", "postgres":
	default:
		return fmt.Errorf("invalid preferences source %q (want file or postgres)", c.Preferences)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.AttachAttempts < 1 {
		return fmt.Errorf("attach attempts must be at least 1, got %d", c.AttachAttempts)
	}
	if c.FetchStrategy == "firecrawl" && c.FirecrawlAPIKey == "" {
		return fmt.Errorf("firecrawl strategy requires %s_FIRECRAWL_API_KEY", EnvPrefix)
	}
	return nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}
