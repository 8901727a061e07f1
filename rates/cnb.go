package rates

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// CNBSource reads the Czech National Bank daily fixing. Rates are CZK per
// unit; the amount column is honoured (JPY is quoted per 100).
type CNBSource struct {
	client *http.Client
	url    string
}

func NewCNBSource(client *http.Client, url string) *CNBSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &CNBSource{client: client, url: url}
}

func (s *CNBSource) Rates(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cnb fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cnb fetch failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return ParseCNB(resp.Body)
}

// ParseCNB parses the daily fixing text:
//
//	17.10.2026 #201
//	země|měna|množství|kód|kurz
//	EMU|euro|1|EUR|24,335
//	Japonsko|jen|100|JPY|15,512
//
// The first two lines are a header. CZK is added with rate 1.
func ParseCNB(r io.Reader) (Rates, error) {
	out := Rates{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if line <= 2 {
			continue
		}
		fields := strings.Split(strings.TrimSpace(sc.Text()), "|")
		if len(fields) < 5 {
			continue
		}
		code := strings.TrimSpace(fields[3])
		if code == "" {
			continue
		}
		rate, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(fields[4]), ",", ".", 1))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad rate for %s: %w", line, code, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil || !amount.IsPositive() {
			amount = decimal.NewFromInt(1)
		}
		out[code] = rate.DivRound(amount, 8)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read cnb: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("cnb document has no rates")
	}
	out["CZK"] = decimal.NewFromInt(1)
	return out, nil
}
