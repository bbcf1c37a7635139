package catalog

import (
	"strings"

	"goldflow/models"
)

// FilterByHandles narrows a product list to the requested handles. Exclusion
// wins over inclusion. The second return reports whether the run still covers
// the whole catalog, which decides whether bookkeeping rates are recorded
// store wide: any exclusion makes the run partial, and an include list counts
// as the whole catalog only when, less exclusions, it names exactly the
// catalog's handle set.
func FilterByHandles(products []models.Product, include, exclude map[string]struct{}) ([]models.Product, bool) {
	if len(include) == 0 && len(exclude) == 0 {
		return products, true
	}

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		handle := strings.ToLower(p.Handle)
		if _, out := exclude[handle]; out {
			continue
		}
		if len(include) > 0 {
			if _, in := include[handle]; !in {
				continue
			}
		}
		filtered = append(filtered, p)
	}

	if len(include) == 0 {
		return filtered, false
	}

	catalogHandles := make(map[string]struct{}, len(products))
	for _, p := range products {
		catalogHandles[strings.ToLower(p.Handle)] = struct{}{}
	}
	requested := make(map[string]struct{}, len(include))
	for handle := range include {
		if _, out := exclude[handle]; !out {
			requested[handle] = struct{}{}
		}
	}
	isAll := len(requested) == len(catalogHandles)
	if isAll {
		for handle := range catalogHandles {
			if _, ok := requested[handle]; !ok {
				isAll = false
				break
			}
		}
	}
	return filtered, isAll
}

// AffectedByStoneTypes keeps only products referencing at least one of the
// given stone types in their product or variant stone type metafields. Stone
// type lists are comma separated and matched case-insensitively. An empty
// set keeps everything.
func AffectedByStoneTypes(products []models.Product, stoneTypes map[string]struct{}) []models.Product {
	if len(stoneTypes) == 0 {
		return products
	}

	affected := make([]models.Product, 0, len(products))
	for _, p := range products {
		if stoneTypesMatch(p.Metafields, stoneTypes) {
			affected = append(affected, p)
			continue
		}
		for _, v := range p.Variants {
			if stoneTypesMatch(v.Metafields, stoneTypes) {
				affected = append(affected, p)
				break
			}
		}
	}
	return affected
}

func stoneTypesMatch(fields models.Metafields, stoneTypes map[string]struct{}) bool {
	raw := MetafieldString(fields, KeyStoneTypes)
	if raw == "" {
		return false
	}
	for _, entry := range strings.Split(raw, ",") {
		if _, ok := stoneTypes[strings.ToLower(strings.TrimSpace(entry))]; ok {
			return true
		}
	}
	return false
}
