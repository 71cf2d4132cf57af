package model

import "github.com/shopspring/decimal"

func init() {
	// Amounts are serialized as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Hundred is used for percentage math.
var Hundred = decimal.NewFromInt(100)

// Cents rounds an amount half-away-from-zero to two decimal places.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CentsUp rounds a positive amount up to the next whole cent.
func CentsUp(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(2)
}

// NonNegative floors d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns 100*part/whole, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(Hundred).Div(whole)
}

// DecPtr returns a pointer to d.
func DecPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
