package catalog

import (
	"strings"

	"goldflow/models"
)

// Family is the metal family a product is priced under.
type Family int

const (
	FamilyNone Family = iota
	FamilyGold
	FamilySilver
)

func (f Family) String() string {
	switch f {
	case FamilyGold:
		return "gold"
	case FamilySilver:
		return "silver"
	default:
		return "none"
	}
}

// goldTokens are the karat markers looked for in variant titles. A product
// with any variant title containing one of these is a gold product.
var goldTokens = []string{"9K", "10K", "14K", "18K", "22K", "24K"}

// silverTokens mark silver products the same way.
var silverTokens = []string{"SILVER", "925", "STERLING"}

// IsGold reports whether any variant title carries a karat marker.
func IsGold(p models.Product) bool {
	return anyVariantContains(p, goldTokens)
}

// IsSilver reports whether any variant title marks the product as silver.
func IsSilver(p models.Product) bool {
	return anyVariantContains(p, silverTokens)
}

func anyVariantContains(p models.Product, tokens []string) bool {
	for _, v := range p.Variants {
		title := strings.ToUpper(v.Title)
		for _, token := range tokens {
			if strings.Contains(title, token) {
				return true
			}
		}
	}
	return false
}

// Classify decides the pricing family for a product from its variant titles.
// A product matching both families is treated as gold; the caller is expected
// to log the ambiguity.
func Classify(p models.Product) Family {
	if IsGold(p) {
		return FamilyGold
	}
	if IsSilver(p) {
		return FamilySilver
	}
	return FamilyNone
}
