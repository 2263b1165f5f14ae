// Package currency converts monetary amounts through a static rate table.
//
// Rates are expressed relative to EUR, the fixed base currency. Conversion
// goes source -> EUR -> target and rounds half-up to 2 decimal places.
package currency

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rates relative to EUR. Approximate; a production deployment would refresh
// these from a rates API.
var exchangeRates = map[string]decimal.Decimal{
	"EUR": decimal.NewFromFloat(1.0),
	"USD": decimal.NewFromFloat(1.08),
	"MKD": decimal.NewFromFloat(61.5),
	"GBP": decimal.NewFromFloat(0.86),
	"CHF": decimal.NewFromFloat(0.95),
}

// Convert converts amount between two currency codes. Equal codes return the
// amount unchanged, without rounding. Unknown codes fall back to a rate of 1,
// so the conversion degrades to a no-op instead of failing.
func Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}

	fromRate := rateFor(from)
	toRate := rateFor(to)

	inEUR := amount.DivRound(fromRate, 12)
	return inEUR.Mul(toRate).Round(2)
}

// Supported returns the known currency codes in stable (sorted) order.
func Supported() []string {
	codes := make([]string, 0, len(exchangeRates))
	for code := range exchangeRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsSupported reports whether a code has an explicit exchange rate.
func IsSupported(code string) bool {
	_, ok := exchangeRates[strings.ToUpper(code)]
	return ok
}

func rateFor(code string) decimal.Decimal {
	if rate, ok := exchangeRates[strings.ToUpper(code)]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}
