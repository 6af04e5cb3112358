// Package format renders calculator figures for display.
package format

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money formats d as whole dollars with thousands separators, e.g. "$5,336".
func Money(d decimal.Decimal) string {
	return money(d, 0)
}

// MoneyCents formats d with two decimals, e.g. "$5,336.08".
func MoneyCents(d decimal.Decimal) string {
	return money(d, 2)
}

func money(d decimal.Decimal, places int32) string {
	sign := ""
	rounded := d.Round(places)
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	layout := "#,###."
	if places == 2 {
		layout = "#,###.##"
	}
	return sign + "$" + humanize.FormatFloat(layout, rounded.InexactFloat64())
}

// Percent formats d with one decimal and a percent sign, e.g. "6.7%".
func Percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// Number formats d without trailing zeros, e.g. "4.5".
func Number(d decimal.Decimal) string {
	return d.String()
}

// SIMoney formats v as dollars with an SI suffix and two significant
// digits, e.g. "$5.3k".
func SIMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	value, prefix := humanize.ComputeSI(v)
	digits := 1
	if value >= 1 {
		digits = int(math.Floor(math.Log10(value))) + 1
	}
	prec := 2 - digits
	if prec < 0 {
		prec = 0
	}
	return sign + "$" + strconv.FormatFloat(value, 'f', prec, 64) + prefix
}
