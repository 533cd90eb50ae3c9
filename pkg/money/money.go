// Package money provides integer-cents conversion and formatting for BRL
// amounts. All monetary totals in the application are computed in cents to
// avoid floating-point drift; every summation must go through ToCents.
package money

import (
	"fmt"
	"math"
	"strings"
)

// epsilon compensates for binary float representation of decimal prices
// (e.g. 19.99 stored as 19.989999...).
const epsilon = 1e-9

// ToCents converts a decimal currency amount to integer cents, rounding
// half away from zero.
func ToCents(v float64) int64 {
	if v >= 0 {
		return int64(math.Floor(v*100 + 0.5 + epsilon))
	}
	return -int64(math.Floor(-v*100 + 0.5 + epsilon))
}

// FromCents converts integer cents back to a decimal amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// SumCents converts each price to cents and returns the total. The
// conversion is applied per item, never to the float sum.
func SumCents(prices []float64) int64 {
	var total int64
	for _, p := range prices {
		total += ToCents(p)
	}
	return total
}

// FormatBRL renders integer cents using the Brazilian currency mask,
// e.g. 123456 -> "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return fmt.Sprintf("%sR$ %s,%02d", sign, strings.Join(groups, "."), frac)
}
