package render

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter prints home-currency amounts rounded up to whole units with
// the locale's digit grouping, e.g. "1,200 CZK" in English or "1 200 CZK"
// in Czech.
type MoneyFormatter struct {
	printer  *message.Printer
	currency string
}

// NewMoneyFormatter falls back to English for an unparsable locale.
func NewMoneyFormatter(locale, currency string) *MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &MoneyFormatter{printer: message.NewPrinter(tag), currency: currency}
}

func (f *MoneyFormatter) Format(d decimal.Decimal) string {
	return f.printer.Sprintf("%v", number.Decimal(d.Ceil().IntPart())) + " " + f.currency
}

// Signed is Format with an explicit "+" on positive amounts.
func (f *MoneyFormatter) Signed(d decimal.Decimal) string {
	if d.Ceil().IsPositive() {
		return "+" + f.Format(d)
	}
	return f.Format(d)
}

// FormatPercent renders a percent difference as "+20%", "-14%" or "0%".
func FormatPercent(p int64) string {
	if p > 0 {
		return fmt.Sprintf("+%d%%", p)
	}
	return fmt.Sprintf("%d%%", p)
}
