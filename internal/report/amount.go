package report

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const defaultScale = 2

// FormatAmount renders minor units in the currency's major unit, e.g. 4500 EUR
// as "45.00 EUR" and 500 JPY as "500 JPY".
func FormatAmount(minor int64, code string) string {
	scale := defaultScale

	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	s := decimal.New(minor, -int32(scale)).StringFixed(int32(scale))
	if code == "" {
		return s
	}

	return s + " " + code
}
