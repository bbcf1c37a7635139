package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// purityFactors maps a karat label to the fraction of pure metal it
// represents. Labels appear both with and without the trailing "T" in
// variant titles.
var purityFactors = map[string]decimal.Decimal{
	"24KT": decimal.RequireFromString("1.000"),
	"24K":  decimal.RequireFromString("1.000"),
	"22KT": decimal.RequireFromString("0.916"),
	"22K":  decimal.RequireFromString("0.916"),
	"18KT": decimal.RequireFromString("0.750"),
	"18K":  decimal.RequireFromString("0.750"),
	"14KT": decimal.RequireFromString("0.585"),
	"14K":  decimal.RequireFromString("0.585"),
	"10KT": decimal.RequireFromString("0.417"),
	"10K":  decimal.RequireFromString("0.417"),
	"9KT":  decimal.RequireFromString("0.375"),
	"9K":   decimal.RequireFromString("0.375"),
}

var fullPurity = decimal.NewFromInt(1)

// PurityFactor returns the purity factor for a label like "22KT" or "18k".
// Unrecognised labels yield full purity rather than an error; catalog data
// is not trusted to be consistent and a reprice run must not die on it.
func PurityFactor(label string) decimal.Decimal {
	if factor, ok := purityFactors[strings.ToUpper(strings.TrimSpace(label))]; ok {
		return factor
	}
	return fullPurity
}
