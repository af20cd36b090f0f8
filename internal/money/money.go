// Package money holds the decimal helpers shared by tax and totals computation.
//
// Amounts are carried as decimal.Decimal at full precision through a
// computation and rounded exactly once, at the currency minor unit, when a
// breakdown is finalised. decimal.Round rounds half away from zero.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const defaultMinorUnits int32 = 2

// minorUnits lists currencies whose minor unit differs from two decimals.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

var hundred = decimal.NewFromInt(100)

// MinorUnits returns the number of decimal places used by currency.
func MinorUnits(currency string) int32 {
	if places, ok := minorUnits[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return places
	}
	return defaultMinorUnits
}

// Round rounds amount half away from zero at the currency's minor unit.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnits(currency))
}

// Percent returns amount × percent / 100 without rounding.
func Percent(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// Fraction converts a percentage into its multiplier, e.g. 18 → 0.18.
func Fraction(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

// InRange reports whether v lies in the closed interval [lo, hi].
func InRange(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// NormalizeCurrency upper-cases a currency code, falling back to def when blank.
func NormalizeCurrency(currency, def string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return strings.ToUpper(strings.TrimSpace(def))
	}
	return currency
}
