package catalog

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"goldflow/models"
)

// Metafield keys read off products and variants. Keys are the flattened
// "namespace.key" form the platform client produces.
const (
	KeyMetalWeight       = "custom.metal_weight"
	KeyStoneCarats       = "custom.stone_carats"
	KeyStoneTypes        = "custom.stone_types"
	KeyStonePricePerCt   = "custom.stone_prices_per_carat"
	KeyMakingChargePct   = "custom.making_charge_percentage"
	KeyDiscountMakingPct = "custom.discount_making_charge"
	KeyHallmarking       = "jhango.hallmarking"
	KeyCertification     = "jhango.certification"
)

// Bookkeeping metafields written back after a reprice run.
const (
	BookkeepingNamespace = "jhango"
	KeyGoldRate          = "gold_rate"
	KeySilverRate        = "silver_rate"
	RateValueType        = "number_decimal"
)

// MetafieldValue resolves a numeric metafield tolerantly. Platform metafields
// arrive in whatever shape the merchant's apps left them in: a plain number,
// a numeric string, or a JSON array whose first element is the value. Any
// shape that fails to yield a number resolves to the default; bad data on one
// product must not stop a run.
func MetafieldValue(fields models.Metafields, key string, def decimal.Decimal) decimal.Decimal {
	raw, ok := fields[key]
	if !ok {
		return def
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if strings.HasPrefix(raw, "[") {
		var elems []json.Number
		if err := json.Unmarshal([]byte(raw), &elems); err != nil || len(elems) == 0 {
			return def
		}
		raw = elems[0].String()
	}
	value, err := decimal.NewFromString(strings.Trim(raw, `"`))
	if err != nil {
		return def
	}
	return value
}

// MetafieldString resolves a string metafield, trimming quotes a JSON encoded
// value may carry.
func MetafieldString(fields models.Metafields, key string) string {
	raw := strings.TrimSpace(fields[key])
	if strings.HasPrefix(raw, "[") {
		var elems []string
		if err := json.Unmarshal([]byte(raw), &elems); err == nil && len(elems) > 0 {
			raw = elems[0]
		}
	}
	return strings.Trim(strings.TrimSpace(raw), `"`)
}

// Attributes is the pricing attribute bundle resolved from metafields.
type Attributes struct {
	MetalWeight        decimal.Decimal
	StoneCarats        decimal.Decimal
	StoneType          string
	StonePricePerCarat decimal.Decimal
	MakingChargePct    decimal.Decimal
	DiscountPct        decimal.Decimal
	Hallmarking        decimal.Decimal
	Certification      decimal.Decimal
}

// ProductAttributes resolves the product level attributes. Missing fields
// default to zero so pricing degrades instead of failing.
func ProductAttributes(p models.Product) Attributes {
	return resolve(p.Metafields, Attributes{})
}

// VariantAttributes resolves a variant's attributes on top of the product
// level base: a metafield present on the variant overrides the product value.
func VariantAttributes(v models.Variant, base Attributes) Attributes {
	return resolve(v.Metafields, base)
}

func resolve(fields models.Metafields, base Attributes) Attributes {
	out := Attributes{
		MetalWeight:        MetafieldValue(fields, KeyMetalWeight, base.MetalWeight),
		StoneCarats:        MetafieldValue(fields, KeyStoneCarats, base.StoneCarats),
		StonePricePerCarat: MetafieldValue(fields, KeyStonePricePerCt, base.StonePricePerCarat),
		MakingChargePct:    MetafieldValue(fields, KeyMakingChargePct, base.MakingChargePct),
		DiscountPct:        MetafieldValue(fields, KeyDiscountMakingPct, base.DiscountPct),
		Hallmarking:        MetafieldValue(fields, KeyHallmarking, base.Hallmarking),
		Certification:      MetafieldValue(fields, KeyCertification, base.Certification),
		StoneType:          base.StoneType,
	}
	if s := MetafieldString(fields, KeyStoneTypes); s != "" {
		out.StoneType = s
	}
	return out
}
