package pricing

import "github.com/shopspring/decimal"

var (
	hundred        = decimal.NewFromInt(100)
	compareAtRatio = decimal.RequireFromString("0.80")
)

// GoldInput is the resolved attribute bundle for one gold variant.
// StonePricePerCarat is only the fallback; the configured diamond price for
// StoneType wins when one matches.
type GoldInput struct {
	MetalWeight         decimal.Decimal
	Purity              string
	StoneCarats         decimal.Decimal
	StoneType           string
	StonePricePerCarat  decimal.Decimal
	MakingChargePct     decimal.Decimal
	HallmarkingCharge   decimal.Decimal
	CertificationCharge decimal.Decimal
	DiscountPct         decimal.Decimal
}

// GoldBreakdown records every intermediate quantity of a gold price
// computation. It is informational, for reports and debugging; nothing reads
// it back as input.
type GoldBreakdown struct {
	MetalWeight        decimal.Decimal `json:"metal_weight"`
	Purity             string          `json:"purity"`
	PurityFactor       decimal.Decimal `json:"purity_factor"`
	GoldRate           decimal.Decimal `json:"gold_rate"`
	MetalPrice         decimal.Decimal `json:"metal_price"`
	StoneCarats        decimal.Decimal `json:"stone_carats"`
	StoneType          string          `json:"stone_type"`
	StonePricePerCarat decimal.Decimal `json:"stone_price_per_carat"`
	StonePrice         decimal.Decimal `json:"stone_price"`
	MakingChargePct    decimal.Decimal `json:"making_charge_percentage"`
	MakingCharge       decimal.Decimal `json:"making_charge"`
	DiscountPct        decimal.Decimal `json:"discount_percentage"`
	Discount           decimal.Decimal `json:"discount"`
	Hallmarking        decimal.Decimal `json:"hallmarking_charge"`
	Certification      decimal.Decimal `json:"certification_charge"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxPct             decimal.Decimal `json:"tax_percentage"`
	Tax                decimal.Decimal `json:"tax"`
	Total              decimal.Decimal `json:"total"`
	CompareAtPrice     decimal.Decimal `json:"compare_at_price"`
}

// GoldResult is the outcome of pricing one gold variant.
type GoldResult struct {
	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
	Breakdown      GoldBreakdown
}

// GoldCalculator computes prices for gold variants against a fixed rate, tax
// percentage and diamond configuration. It is stateless beyond that
// configuration: identical inputs always produce identical results.
type GoldCalculator struct {
	rate     decimal.Decimal
	taxPct   decimal.Decimal
	diamonds *DiamondConfig
}

// NewGoldCalculator returns a calculator for the given gold rate
// (currency per gram of pure metal) and tax percentage.
func NewGoldCalculator(rate, taxPct decimal.Decimal, diamonds *DiamondConfig) *GoldCalculator {
	if diamonds == nil {
		diamonds = NewDiamondConfig()
	}
	return &GoldCalculator{rate: rate, taxPct: taxPct, diamonds: diamonds}
}

// Rate returns the gold rate the calculator was built with.
func (c *GoldCalculator) Rate() decimal.Decimal {
	return c.rate
}

// Calculate runs the gold pricing pipeline. Every intermediate monetary
// amount is rounded up to the next whole currency unit as soon as it is
// computed, before it feeds anything downstream; rounding always favours the
// seller and totals never carry fractions. The discount applies to the
// making charge only, tax applies after the discount, and the compare-at
// price is back-computed so the final price displays as a flat 20% off.
//
// The pipeline never fails: zero or negative inputs are taken literally and
// it is the caller's job to keep nonsense out.
func (c *GoldCalculator) Calculate(in GoldInput) GoldResult {
	purityFactor := PurityFactor(in.Purity)

	metalPrice := in.MetalWeight.Mul(purityFactor).Mul(c.rate).Ceil()

	pricePerCarat := c.diamonds.PriceFor(in.StoneType, in.StonePricePerCarat)
	stonePrice := decimal.Zero
	if in.StoneCarats.IsPositive() {
		stonePrice = in.StoneCarats.Mul(pricePerCarat).Ceil()
	}

	makingCharge := metalPrice.Mul(in.MakingChargePct).Div(hundred).Ceil()
	discount := makingCharge.Mul(in.DiscountPct).Div(hundred).Ceil()

	hallmarking := in.HallmarkingCharge.Ceil()
	certification := in.CertificationCharge.Ceil()

	subtotal := metalPrice.Add(stonePrice).Add(makingCharge).Sub(discount).Add(hallmarking).Add(certification)

	tax := subtotal.Mul(c.taxPct).Div(hundred).Ceil()
	total := subtotal.Add(tax)

	compareAt := total.Div(compareAtRatio).Ceil()

	return GoldResult{
		Price:          total,
		CompareAtPrice: compareAt,
		Breakdown: GoldBreakdown{
			MetalWeight:        in.MetalWeight,
			Purity:             in.Purity,
			PurityFactor:       purityFactor,
			GoldRate:           c.rate,
			MetalPrice:         metalPrice,
			StoneCarats:        in.StoneCarats,
			StoneType:          in.StoneType,
			StonePricePerCarat: pricePerCarat,
			StonePrice:         stonePrice,
			MakingChargePct:    in.MakingChargePct,
			MakingCharge:       makingCharge,
			DiscountPct:        in.DiscountPct,
			Discount:           discount,
			Hallmarking:        hallmarking,
			Certification:      certification,
			Subtotal:           subtotal,
			TaxPct:             c.taxPct,
			Tax:                tax,
			Total:              total,
			CompareAtPrice:     compareAt,
		},
	}
}
