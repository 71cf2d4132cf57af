package cli

import (
	"testing"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5.5", "$5.50"},
		{"1234.567", "$1,234.57"},
		{"-12", "-$12.00"},
		{"1000000", "$1,000,000.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoneyCurrency(t *testing.T) {
	defer func(c string) { Currency = c }(Currency)

	Currency = "EUR"
	if got := FormatMoney(decimal.NewFromInt(10)); got != "€10.00" {
		t.Errorf("EUR = %q", got)
	}
	Currency = "chf"
	if got := FormatMoney(decimal.NewFromInt(10)); got != "CHF 10.00" {
		t.Errorf("CHF = %q", got)
	}
}

func TestFormatMoneyShort(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{87, "$87"},
		{1234, "$1.2K"},
		{2_500_000, "$2.5M"},
		{-1500, "-$1.5K"},
	}
	for _, tt := range tests {
		if got := FormatMoneyShort(decimal.NewFromInt(tt.in)); got != tt.want {
			t.Errorf("FormatMoneyShort(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDeltaAndDate(t *testing.T) {
	if got := FormatDelta(decimal.NewFromInt(5)); got != "+$5.00" {
		t.Errorf("FormatDelta(5) = %q", got)
	}
	if got := FormatDelta(decimal.NewFromInt(-5)); got != "-$5.00" {
		t.Errorf("FormatDelta(-5) = %q", got)
	}
	if got := FormatDate(model.NewDate(2026, 3, 15)); got != "Sun Mar 15" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(model.Date{}); got != "-" {
		t.Errorf("FormatDate(zero) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Groceries", 5); got != "Groc…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("Rent", 5); got != "Rent" {
		t.Errorf("Truncate short = %q", got)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline([]float64{0, 7}); got != "▁█" {
		t.Errorf("RenderSparkline = %q", got)
	}
	if got := RenderSparkline(nil); got != "" {
		t.Errorf("RenderSparkline(nil) = %q", got)
	}
}
