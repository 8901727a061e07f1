package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice turns storefront price text into a decimal amount.
//
// It accepts the formats market pages render: "1 299", "1.299,-",
// "€1,299.50", "12,50 zł". Everything but digits and separators is dropped.
// When the last separator is followed by exactly three digits every
// separator is a thousands mark; otherwise the last one is the decimal point.
func ParsePrice(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), ".,")
	if s == "" {
		return decimal.Zero, fmt.Errorf("no price in %q", raw)
	}

	last := strings.LastIndexAny(s, ".,")
	if last >= 0 && len(s)-last-1 != 3 {
		intPart := stripSeparators(s[:last])
		s = intPart + "." + s[last+1:]
	} else {
		s = stripSeparators(s)
	}

	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", ".", "").Replace(s)
}
