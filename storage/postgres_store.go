package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"price-scout/config"
	"price-scout/models"
	"price-scout/rates"
	"price-scout/utils"
)

// PostgresStore persists the user's market selection and the last known
// exchange-rate snapshots. It serves as both storefront.Preferences and
// rates.Cache.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	ping := func() error { return pool.Ping(ctx) }
	if err := utils.Retry(ctx, 3, utils.Exponential(250*time.Millisecond), ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS market_preferences (
	position INT PRIMARY KEY,
	country TEXT NOT NULL,
	language TEXT NOT NULL,
	url TEXT NOT NULL,
	is_home BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rate_snapshots (
	id BIGSERIAL PRIMARY KEY,
	tier TEXT NOT NULL,
	rates JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rate_snapshots_fetched_at ON rate_snapshots(fetched_at DESC);
`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SavePreferences replaces the stored selection in one transaction,
// keeping the given order.
func (s *PostgresStore) SavePreferences(ctx context.Context, selected []config.SelectedCountry) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows := cleanSelection(selected)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM market_preferences`)
		for i, c := range rows {
			batch.Queue(
				`INSERT INTO market_preferences (position, country, language, url, is_home) VALUES ($1, $2, $3, $4, $5)`,
				i, c.Country, c.Language, c.URL, c.IsHome,
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("save preferences failed at statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// Selection returns the stored selection in saved order.
func (s *PostgresStore) Selection(ctx context.Context) ([]config.SelectedCountry, error) {
	rows, err := s.pool.Query(ctx, `SELECT country, language, url, is_home FROM market_preferences ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var out []config.SelectedCountry
	for rows.Next() {
		var c config.SelectedCountry
		if err := rows.Scan(&c.Country, &c.Language, &c.URL, &c.IsHome); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Markets(ctx context.Context) ([]models.Market, error) {
	selected, err := s.Selection(ctx)
	if err != nil {
		return nil, err
	}
	return config.ToMarkets(selected), nil
}

// Load returns the newest stored rate snapshot.
func (s *PostgresStore) Load(ctx context.Context) (rates.Snapshot, bool, error) {
	var (
		snap rates.Snapshot
		raw  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT tier, rates, fetched_at FROM rate_snapshots ORDER BY fetched_at DESC LIMIT 1`,
	).Scan(&snap.Tier, &raw, &snap.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rates.Snapshot{}, false, nil
	}
	if err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("load rate snapshot: %w", err)
	}

	r, err := decodeRates(raw)
	if err != nil {
		return rates.Snapshot{}, false, err
	}
	snap.Rates = r
	return snap, true, nil
}

func (s *PostgresStore) Store(ctx context.Context, snap rates.Snapshot) error {
	raw, err := json.Marshal(snap.Rates)
	if err != nil {
		return fmt.Errorf("encode rates: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO rate_snapshots (tier, rates, fetched_at) VALUES ($1, $2, $3)`,
		snap.Tier, raw, snap.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("store rate snapshot: %w", err)
	}
	return nil
}

func decodeRates(raw []byte) (rates.Rates, error) {
	var r rates.Rates
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if len(r) == 0 {
		return nil, errors.New("decode rates: empty snapshot")
	}
	return r, nil
}

// cleanSelection trims fields and drops entries without a country or URL.
func cleanSelection(selected []config.SelectedCountry) []config.SelectedCountry {
	out := make([]config.SelectedCountry, 0, len(selected))
	for _, c := range selected {
		c.Country = strings.TrimSpace(c.Country)
		c.Language = strings.TrimSpace(strings.ToLower(c.Language))
		c.URL = strings.TrimSpace(c.URL)
		if c.Country == "" || c.URL == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
