package catalog

import (
	"testing"

	"goldflow/models"
)

func productWithVariants(titles ...string) models.Product {
	p := models.Product{Handle: "test-product"}
	for _, title := range titles {
		p.Variants = append(p.Variants, models.Variant{Title: title})
	}
	return p
}

func TestClassifyGold(t *testing.T) {
	for _, title := range []string{"22KT / 6", "18k yellow", "14K Rose Gold", "9kt"} {
		p := productWithVariants(title)
		if got := Classify(p); got != FamilyGold {
			t.Errorf("Classify(%q) = %s, want gold", title, got)
		}
	}
}

func TestClassifySilver(t *testing.T) {
	for _, title := range []string{"Sterling Silver", "925 / Medium", "silver oxidised"} {
		p := productWithVariants(title)
		if got := Classify(p); got != FamilySilver {
			t.Errorf("Classify(%q) = %s, want silver", title, got)
		}
	}
}

func TestClassifyNone(t *testing.T) {
	p := productWithVariants("Default Title", "Large")
	if got := Classify(p); got != FamilyNone {
		t.Errorf("Classify = %s, want none", got)
	}
}

func TestClassifyGoldWinsDualMatch(t *testing.T) {
	// A gold product with a silver-finish variant matches both token sets.
	p := productWithVariants("22KT", "925 Silver Finish")
	if !IsGold(p) || !IsSilver(p) {
		t.Fatal("expected product to match both families")
	}
	if got := Classify(p); got != FamilyGold {
		t.Errorf("Classify = %s, want gold", got)
	}
}

func TestClassifyAnyVariantCounts(t *testing.T) {
	p := productWithVariants("Default Title", "18KT / 7")
	if got := Classify(p); got != FamilyGold {
		t.Errorf("Classify = %s, want gold when any variant matches", got)
	}
}
