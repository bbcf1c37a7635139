package models

// Metafields holds a product's or variant's metafields flattened from the
// platform's namespaced representation to "namespace.key" -> raw string
// value. Values arrive untyped; tolerant coercion happens at resolution time.
type Metafields map[string]string

// Variant is one purchasable variant of a product. Price fields are kept as
// the raw strings the platform returns; they are only echoed into change
// records, never used in arithmetic.
type Variant struct {
	ID             string
	Title          string
	SKU            string
	Price          string
	CompareAtPrice string
	Metafields     Metafields
}

// Product is a catalog entry with its variants and flattened metafields.
type Product struct {
	ID          string
	Handle      string
	Title       string
	ProductType string
	Metafields  Metafields
	Variants    []Variant
}
