package models

import "fmt"

// FormatCurrency renders an amount with the two-decimal kyat suffix used
// across order projections, e.g. "1234.50Ks".
func FormatCurrency(amount float64) string {
	return fmt.Sprintf("%.2fKs", amount)
}
