package pricing

import "github.com/shopspring/decimal"

var (
	silverWeightMultiplier  = decimal.NewFromInt(1000)
	labDiamondPricePerCarat = decimal.NewFromInt(40000)
)

// SilverBreakdown records the intermediate quantities of a silver price
// computation.
type SilverBreakdown struct {
	SilverWeight     decimal.Decimal `json:"silver_weight"`
	SilverPrice      decimal.Decimal `json:"silver_price"`
	LabDiamondCarats decimal.Decimal `json:"lab_diamond_carats"`
	DiamondPrice     decimal.Decimal `json:"diamond_price"`
	Total            decimal.Decimal `json:"total"`
	CompareAtPrice   decimal.Decimal `json:"compare_at_price"`
}

// SilverResult is the outcome of pricing one silver variant.
type SilverResult struct {
	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
	Breakdown      SilverBreakdown
}

// SilverCalculator computes prices for silver variants. The live silver rate
// is held for bookkeeping only: the formula is a fixed 1000 per gram plus
// 40000 per lab diamond carat and the spot rate never enters it. That is the
// store's business rule, surprising as it looks next to the gold path.
type SilverCalculator struct {
	rate decimal.Decimal
}

// NewSilverCalculator returns a silver calculator recording the given rate.
func NewSilverCalculator(rate decimal.Decimal) *SilverCalculator {
	return &SilverCalculator{rate: rate}
}

// Rate returns the recorded silver rate.
func (c *SilverCalculator) Rate() decimal.Decimal {
	return c.rate
}

// Calculate prices one silver variant from its metal weight in grams and its
// lab diamond carats. Each component is ceiling-rounded, and the compare-at
// price is derived from the total the same way as for gold.
func (c *SilverCalculator) Calculate(weight, labDiamondCarats decimal.Decimal) SilverResult {
	silverPrice := weight.Mul(silverWeightMultiplier).Ceil()
	diamondPrice := labDiamondCarats.Mul(labDiamondPricePerCarat).Ceil()

	total := silverPrice.Add(diamondPrice)
	compareAt := total.Div(compareAtRatio).Ceil()

	return SilverResult{
		Price:          total,
		CompareAtPrice: compareAt,
		Breakdown: SilverBreakdown{
			SilverWeight:     weight,
			SilverPrice:      silverPrice,
			LabDiamondCarats: labDiamondCarats,
			DiamondPrice:     diamondPrice,
			Total:            total,
			CompareAtPrice:   compareAt,
		},
	}
}
