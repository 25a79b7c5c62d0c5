package domain

import (
	"fmt"
	"math"
)

// FormatPrice renders amount with two decimals behind the currency symbol.
func FormatPrice(amount float64, symbol string) string {
	if symbol == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", symbol, amount)
}

// Cents converts a currency amount to minor units.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
