package sale

import "github.com/google/uuid"

// DefaultMaxQuantity is the default ceiling of identical units per product in
// a single sale.
const DefaultMaxQuantity = 20

// ItemLimitSpecification is satisfied by sales, or requests, holding more than
// Max units of a single product.
type ItemLimitSpecification struct {
	Max int
}

// IsSatisfiedBy reports whether any product of sale exceeds the limit.
func (l ItemLimitSpecification) IsSatisfiedBy(sale *Sale) bool {
	return l.Check(sale) != nil
}

// ExceedsRequest reports whether the requested lines exceed the limit for any
// product once quantities of the same product are summed.
func (l ItemLimitSpecification) ExceedsRequest(lines []Line) bool {
	return l.CheckRequest(lines) != nil
}

// Check returns an *ItemLimitExceededError for the first product of sale
// over the limit.
func (l ItemLimitSpecification) Check(sale *Sale) error {
	seen := make(map[uuid.UUID]bool, len(sale.items))
	for _, it := range sale.items {
		if it.quantity > l.max() {
			return &ItemLimitExceededError{ProductID: it.productID, Quantity: it.quantity, Limit: l.max()}
		}
		if seen[it.productID] {
			continue
		}
		seen[it.productID] = true
		if q := sale.QuantityOf(it.productID); q > l.max() {
			return &ItemLimitExceededError{ProductID: it.productID, Quantity: q, Limit: l.max()}
		}
	}
	return nil
}

// CheckRequest is Check applied to requested lines. A single line over the
// limit is reported before quantities are summed.
func (l ItemLimitSpecification) CheckRequest(lines []Line) error {
	for _, ln := range lines {
		if ln.Quantity > l.max() {
			return &ItemLimitExceededError{ProductID: ln.Product.ID, Quantity: ln.Quantity, Limit: l.max()}
		}
	}
	for _, g := range groupLines(lines) {
		if g.Quantity > l.max() {
			return &ItemLimitExceededError{ProductID: g.Product.ID, Quantity: g.Quantity, Limit: l.max()}
		}
	}
	return nil
}

func (l ItemLimitSpecification) max() int {
	if l.Max <= 0 {
		return DefaultMaxQuantity
	}
	return l.Max
}

// UpdateAllowedSpecification is satisfied by sales that may still change.
type UpdateAllowedSpecification struct{}

// IsSatisfiedBy reports whether sale is not cancelled.
func (UpdateAllowedSpecification) IsSatisfiedBy(sale *Sale) bool {
	return !sale.IsCancelled()
}
