package processor

import (
	"testing"

	"github.com/shopspring/decimal"

	"goldflow/catalog"
	"goldflow/models"
	"goldflow/pricing"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func goldProduct() models.Product {
	return models.Product{
		ID:     "gid://shopify/Product/1",
		Handle: "gold-ring",
		Title:  "Gold Ring",
		Metafields: models.Metafields{
			catalog.KeyMetalWeight:     "10",
			catalog.KeyMakingChargePct: "10",
			catalog.KeyHallmarking:     "200",
			catalog.KeyCertification:   "150",
		},
		Variants: []models.Variant{{
			ID:         "gid://shopify/ProductVariant/11",
			Title:      "22KT",
			Price:      "60000",
			Metafields: models.Metafields{},
		}},
	}
}

func silverProduct() models.Product {
	return models.Product{
		ID:     "gid://shopify/Product/2",
		Handle: "silver-chain",
		Title:  "Silver Chain",
		Metafields: models.Metafields{
			catalog.KeyMetalWeight: "50",
			catalog.KeyStoneCarats: "0.5",
		},
		Variants: []models.Variant{{
			ID:         "gid://shopify/ProductVariant/21",
			Title:      "925 Silver",
			Price:      "65000",
			Metafields: models.Metafields{},
		}},
	}
}

func TestRepriceGoldAndSilver(t *testing.T) {
	repricer := NewRepricer(
		pricing.NewGoldCalculator(dec(t, "6000"), dec(t, "3"), nil),
		pricing.NewSilverCalculator(dec(t, "75")),
	)

	out := repricer.Reprice([]models.Product{goldProduct(), silverProduct()})

	if len(out.PriceUpdates) != 2 {
		t.Fatalf("expected 2 price updates, got %d", len(out.PriceUpdates))
	}
	if out.PriceUpdates[0].Price.String() != "62631" {
		t.Errorf("unexpected gold price: %s", out.PriceUpdates[0].Price)
	}
	if out.PriceUpdates[1].Price.String() != "70000" {
		t.Errorf("unexpected silver price: %s", out.PriceUpdates[1].Price)
	}

	if len(out.MetafieldUpdates) != 2 {
		t.Fatalf("expected 2 metafield updates, got %d", len(out.MetafieldUpdates))
	}
	gold := out.MetafieldUpdates[0]
	if gold.Namespace != catalog.BookkeepingNamespace || gold.Key != catalog.KeyGoldRate || gold.Value != "6000" {
		t.Errorf("unexpected gold rate metafield: %+v", gold)
	}
	silver := out.MetafieldUpdates[1]
	if silver.Key != catalog.KeySilverRate || silver.Value != "75" {
		t.Errorf("unexpected silver rate metafield: %+v", silver)
	}

	if len(out.Details) != 2 || out.Details[0].OldPrice != "60000" || out.Details[0].NewPrice != "62631" {
		t.Errorf("unexpected change records: %+v", out.Details)
	}
}

func TestRepriceSkipsFamiliesWithoutCalculator(t *testing.T) {
	repricer := NewRepricer(pricing.NewGoldCalculator(dec(t, "6000"), dec(t, "3"), nil), nil)

	out := repricer.Reprice([]models.Product{goldProduct(), silverProduct()})

	if len(out.PriceUpdates) != 1 {
		t.Fatalf("silver product should be skipped without a calculator: %d updates", len(out.PriceUpdates))
	}
	processed, skipped := repricer.Stats()
	if processed != 1 || skipped != 1 {
		t.Errorf("unexpected stats: processed=%d skipped=%d", processed, skipped)
	}
}

func TestRepriceSkipsUnclassifiedProducts(t *testing.T) {
	repricer := NewRepricer(
		pricing.NewGoldCalculator(dec(t, "6000"), dec(t, "3"), nil),
		pricing.NewSilverCalculator(dec(t, "75")),
	)

	plain := models.Product{
		ID:         "gid://shopify/Product/3",
		Handle:     "gift-card",
		Title:      "Gift Card",
		Metafields: models.Metafields{},
		Variants:   []models.Variant{{ID: "v", Title: "Default Title", Metafields: models.Metafields{}}},
	}
	out := repricer.Reprice([]models.Product{plain})

	if len(out.PriceUpdates) != 0 || len(out.MetafieldUpdates) != 0 {
		t.Errorf("unclassified product must not produce updates: %+v", out)
	}
}

func TestRepriceVariantOverridesProductWeight(t *testing.T) {
	product := goldProduct()
	product.Variants = append(product.Variants, models.Variant{
		ID:         "gid://shopify/ProductVariant/12",
		Title:      "18KT",
		Price:      "45000",
		Metafields: models.Metafields{catalog.KeyMetalWeight: "5"},
	})

	repricer := NewRepricer(pricing.NewGoldCalculator(dec(t, "6000"), dec(t, "0"), nil), nil)
	out := repricer.Reprice([]models.Product{product})

	if len(out.PriceUpdates) != 2 {
		t.Fatalf("expected both variants priced, got %d", len(out.PriceUpdates))
	}
	// 5g * 0.750 * 6000 = 22500, making 2250, hallmark 200, cert 150 = 25100
	if out.PriceUpdates[1].Price.String() != "25100" {
		t.Errorf("variant weight override not applied: %s", out.PriceUpdates[1].Price)
	}
}

func TestRepricePreservesCatalogOrder(t *testing.T) {
	repricer := NewRepricer(
		pricing.NewGoldCalculator(dec(t, "6000"), dec(t, "3"), nil),
		pricing.NewSilverCalculator(dec(t, "75")),
	)

	out := repricer.Reprice([]models.Product{silverProduct(), goldProduct()})
	if out.Details[0].ProductTitle != "Silver Chain" || out.Details[1].ProductTitle != "Gold Ring" {
		t.Errorf("catalog order not preserved: %+v", out.Details)
	}
}
