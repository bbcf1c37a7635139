package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestGoldCalculatorReferencePricing(t *testing.T) {
	calc := NewGoldCalculator(dec(t, "6000"), dec(t, "3"), nil)

	result := calc.Calculate(GoldInput{
		MetalWeight:         dec(t, "10"),
		Purity:              "22KT",
		MakingChargePct:     dec(t, "10"),
		HallmarkingCharge:   dec(t, "200"),
		CertificationCharge: dec(t, "150"),
	})

	// 10g * 0.916 * 6000 = 54960, making 5496, hallmark 200, cert 150,
	// subtotal 60806, tax ceil(1824.18) = 1825, total 62631.
	if result.Price.String() != "62631" {
		t.Errorf("unexpected price: %s", result.Price)
	}
	if result.CompareAtPrice.String() != "78289" {
		t.Errorf("unexpected compare at price: %s", result.CompareAtPrice)
	}
	if result.Breakdown.MetalPrice.String() != "54960" {
		t.Errorf("unexpected metal price: %s", result.Breakdown.MetalPrice)
	}
	if result.Breakdown.Tax.String() != "1825" {
		t.Errorf("unexpected tax: %s", result.Breakdown.Tax)
	}
}

func TestGoldCalculatorCeilsEveryStep(t *testing.T) {
	calc := NewGoldCalculator(dec(t, "5999.5"), dec(t, "3"), nil)

	result := calc.Calculate(GoldInput{
		MetalWeight:     dec(t, "1.234"),
		Purity:          "18K",
		MakingChargePct: dec(t, "7.5"),
	})

	// 1.234 * 0.750 * 5999.5 = 5552.537... -> 5553
	if result.Breakdown.MetalPrice.String() != "5553" {
		t.Errorf("metal price not ceiled: %s", result.Breakdown.MetalPrice)
	}
	// 5553 * 7.5% = 416.475 -> 417
	if result.Breakdown.MakingCharge.String() != "417" {
		t.Errorf("making charge not ceiled: %s", result.Breakdown.MakingCharge)
	}
	if !result.Price.Equal(result.Price.Ceil()) {
		t.Errorf("final price carries fractions: %s", result.Price)
	}
}

func TestGoldCalculatorDiscountAppliesToMakingChargeOnly(t *testing.T) {
	calc := NewGoldCalculator(dec(t, "6000"), dec(t, "0"), nil)

	base := calc.Calculate(GoldInput{
		MetalWeight:     dec(t, "10"),
		Purity:          "24K",
		MakingChargePct: dec(t, "10"),
	})
	discounted := calc.Calculate(GoldInput{
		MetalWeight:     dec(t, "10"),
		Purity:          "24K",
		MakingChargePct: dec(t, "10"),
		DiscountPct:     dec(t, "50"),
	})

	// Making charge is 6000; a 50% discount on it alone drops the total by 3000.
	diff := base.Price.Sub(discounted.Price)
	if diff.String() != "3000" {
		t.Errorf("unexpected discount effect: %s", diff)
	}
}

func TestGoldCalculatorStonePricing(t *testing.T) {
	diamonds := NewDiamondConfig()
	diamonds.Set("VVS1", decimal.NewFromInt(50000))

	calc := NewGoldCalculator(dec(t, "6000"), dec(t, "0"), diamonds)

	configured := calc.Calculate(GoldInput{
		MetalWeight:        dec(t, "1"),
		Purity:             "24K",
		StoneCarats:        dec(t, "0.5"),
		StoneType:          "vvs1",
		StonePricePerCarat: dec(t, "10000"),
	})
	if configured.Breakdown.StonePrice.String() != "25000" {
		t.Errorf("configured stone price not used: %s", configured.Breakdown.StonePrice)
	}

	fallback := calc.Calculate(GoldInput{
		MetalWeight:        dec(t, "1"),
		Purity:             "24K",
		StoneCarats:        dec(t, "0.5"),
		StoneType:          "ruby",
		StonePricePerCarat: dec(t, "10000"),
	})
	if fallback.Breakdown.StonePrice.String() != "5000" {
		t.Errorf("fallback stone price not used: %s", fallback.Breakdown.StonePrice)
	}

	noCarats := calc.Calculate(GoldInput{
		MetalWeight: dec(t, "1"),
		Purity:      "24K",
		StoneType:   "vvs1",
	})
	if !noCarats.Breakdown.StonePrice.IsZero() {
		t.Errorf("stone price charged without carats: %s", noCarats.Breakdown.StonePrice)
	}
}

func TestGoldCalculatorCompareAtRatio(t *testing.T) {
	calc := NewGoldCalculator(dec(t, "6000"), dec(t, "3"), nil)
	result := calc.Calculate(GoldInput{MetalWeight: dec(t, "5"), Purity: "22KT"})

	// compareAt = ceil(price / 0.80): the price must sit at or just under
	// 80% of the compare at price.
	ratio := result.Price.Div(result.CompareAtPrice)
	if ratio.GreaterThan(dec(t, "0.80")) {
		t.Errorf("price exceeds 80%% of compare at: price=%s compareAt=%s", result.Price, result.CompareAtPrice)
	}
}

func TestPurityFactor(t *testing.T) {
	cases := []struct {
		label  string
		factor string
	}{
		{"24KT", "1"},
		{"22KT", "0.916"},
		{"22k", "0.916"},
		{" 18K ", "0.75"},
		{"14KT", "0.585"},
		{"10K", "0.417"},
		{"9KT", "0.375"},
		{"platinum", "1"},
		{"", "1"},
	}
	for _, c := range cases {
		got := PurityFactor(c.label)
		if !got.Equal(decimal.RequireFromString(c.factor)) {
			t.Errorf("PurityFactor(%q) = %s, want %s", c.label, got, c.factor)
		}
	}
}
