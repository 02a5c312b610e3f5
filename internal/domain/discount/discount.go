// Package discount maps line-item quantities to volume discount rates.
package discount

import "github.com/shopspring/decimal"

// Policy returns the discount rate, in [0, 1], for a line of the given quantity.
// Implementations must be pure.
type Policy interface {
	Rate(quantity int) decimal.Decimal
}

// Func adapts an ordinary function to a Policy.
type Func func(quantity int) decimal.Decimal

// Rate calls f(quantity).
func (f Func) Rate(quantity int) decimal.Decimal { return f(quantity) }

// Tier is a minimum quantity and the rate that applies from it upwards.
type Tier struct {
	MinQuantity int
	Rate        decimal.Decimal
}

// Tiered applies the rate of the highest tier whose MinQuantity is reached.
// Tiers must be sorted by ascending MinQuantity. Quantities below the first
// tier get no discount.
type Tiered []Tier

// Rate implements Policy.
func (t Tiered) Rate(quantity int) decimal.Decimal {
	rate := decimal.Zero
	for _, tier := range t {
		if quantity < tier.MinQuantity {
			break
		}
		rate = tier.Rate
	}
	return rate
}

// Standard is the volume discount used for every sale: 10% from 4 identical
// units, 20% from 10. The per-product ceiling is not a pricing concern and is
// enforced by the sale service.
var Standard Policy = Tiered{
	{MinQuantity: 4, Rate: decimal.RequireFromString("0.10")},
	{MinQuantity: 10, Rate: decimal.RequireFromString("0.20")},
}
