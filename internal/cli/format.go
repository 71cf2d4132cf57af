// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// Currency is the ISO code used by FormatMoney. Commands set it from config.
var Currency = "USD"

// FormatMoney formats an amount with a currency symbol, thousands
// separators and two decimals.
// e.g., 1234.5 -> "$1,234.50", -12 -> "-$12.00"
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, _ := strconv.ParseInt(whole, 10, 64)
	return sign + symbol() + FormatNumber(n) + "." + frac
}

// FormatMoneyShort formats large amounts with K/M suffixes for tight
// columns and chart labels.
// e.g., 1234 -> "$1.2K", 2500000 -> "$2.5M", 87.4 -> "$87"
func FormatMoneyShort(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	f := d.InexactFloat64()
	switch {
	case f >= 1_000_000:
		return fmt.Sprintf("%s%s%.1fM", sign, symbol(), f/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%s%s%.1fK", sign, symbol(), f/1_000)
	default:
		return fmt.Sprintf("%s%s%.0f", sign, symbol(), f)
	}
}

func symbol() string {
	if s, ok := currencySymbols[strings.ToUpper(Currency)]; ok {
		return s
	}
	return strings.ToUpper(Currency) + " "
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 percentage.
func FormatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(1) + "%"
}

// FormatDelta formats a change with an explicit sign.
func FormatDelta(d decimal.Decimal) string {
	if d.IsNegative() {
		return FormatMoney(d)
	}
	return "+" + FormatMoney(d)
}

// FormatDate formats a calendar date as "Mon Jan 2".
func FormatDate(d model.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("Mon Jan 2")
}

// FormatOptional formats an optional amount, "-" when absent.
func FormatOptional(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return FormatMoney(*d)
}

// Truncate shortens s to n runes with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
