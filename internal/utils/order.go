package utils

import (
	"math"
	"strconv"
)

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// FormatQuantity rounds the quantity down and renders it without trailing zeros,
// the way REST brokers expect decimal strings.
func FormatQuantity(quantity float64, decimalPrecision int) string {
	return strconv.FormatFloat(RoundToDecimalPrecision(quantity, decimalPrecision), 'f', -1, 64)
}

// FormatPrice renders a price with the shortest exact representation.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// ParseFloat parses a decimal string returned by a broker. Empty or malformed
// values read as zero.
func ParseFloat(value string) float64 {
	if value == "" {
		return 0
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	return f
}
