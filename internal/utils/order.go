package utils

import "github.com/shopspring/decimal"

// RoundToDecimalPrecision truncates the quantity to the given number of decimal places.
// Truncation never rounds a quantity up past what the account can afford.
func RoundToDecimalPrecision(quantity decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return quantity.Truncate(decimalPrecision)
}

// FormatDecimal renders a value with a fixed number of decimal places for venue APIs.
func FormatDecimal(value decimal.Decimal, decimalPrecision int32) string {
	return value.StringFixed(decimalPrecision)
}

// ParseDecimalOrZero parses a venue string amount, treating empty or malformed input as zero.
func ParseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}

	return v
}
