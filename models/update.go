package models

import "github.com/shopspring/decimal"

// VariantPriceUpdate instructs the platform to set a variant's price and
// compare-at price. Prices are whole currency units. ProductID names the
// owning product, which the bulk mutation needs alongside the variant.
type VariantPriceUpdate struct {
	ProductID      string
	VariantID      string
	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
}

// MetafieldUpdate instructs the platform to write one metafield on a product.
// Used to record the metal rate a reprice run was computed with.
type MetafieldUpdate struct {
	ProductID string
	Namespace string
	Key       string
	Value     string
	ValueType string
}

// ChangeRecord is the human readable form of one variant reprice, assembled
// for the emailed run report.
type ChangeRecord struct {
	ProductTitle   string `json:"product_title"`
	VariantTitle   string `json:"variant_title"`
	OldPrice       string `json:"old_price"`
	NewPrice       string `json:"new_price"`
	CompareAtPrice string `json:"compare_at_price"`
	StoneType      string `json:"stone_type,omitempty"`
}

// UpdateError describes one rejected write. TargetID is the variant or
// product the platform refused.
type UpdateError struct {
	TargetID string `json:"target_id"`
	Message  string `json:"message"`
}

// BatchResult summarises a dispatched batch. Every instruction is attempted;
// partial failure is reported here, never raised as an error.
type BatchResult struct {
	SuccessCount int
	FailedCount  int
	Errors       []UpdateError
}

// Merge combines two batch results into one.
func (r BatchResult) Merge(other BatchResult) BatchResult {
	return BatchResult{
		SuccessCount: r.SuccessCount + other.SuccessCount,
		FailedCount:  r.FailedCount + other.FailedCount,
		Errors:       append(append([]UpdateError{}, r.Errors...), other.Errors...),
	}
}
