// Package sale implements the sale aggregate, its volume pricing and the
// domain service that drives its lifecycle.
//
// A Sale owns an ordered list of Items and a derived total. Status moves from
// created to updated (repeatable) and from either to cancelled, which is
// terminal. Sales are not safe for concurrent use; callers serialise access
// per sale id (the repositories use an optimistic version check).
package sale

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/sales-service/internal/domain/discount"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusUpdated, StatusCancelled:
		return true
	}
	return false
}

// MaxLines is the maximum number of lines a single sale may hold.
const MaxLines = 100

// Party is a denormalised reference to the customer or branch of a sale.
type Party struct {
	ID   uuid.UUID
	Name string
}

// Sale is the aggregate root of a sales transaction.
type Sale struct {
	id          uuid.UUID
	number      string
	date        time.Time
	customer    Party
	branch      Party
	items       []Item
	status      Status
	currency    string
	total       money.Money
	createdAt   time.Time
	updatedAt   *time.Time
	cancelledAt *time.Time
	version     int
}

func (s *Sale) ID() uuid.UUID           { return s.id }
func (s *Sale) Number() string          { return s.number }
func (s *Sale) Date() time.Time         { return s.date }
func (s *Sale) Customer() Party         { return s.customer }
func (s *Sale) Branch() Party           { return s.branch }
func (s *Sale) Status() Status          { return s.status }
func (s *Sale) Total() money.Money      { return s.total }
func (s *Sale) CreatedAt() time.Time    { return s.createdAt }
func (s *Sale) UpdatedAt() *time.Time   { return s.updatedAt }
func (s *Sale) CancelledAt() *time.Time { return s.cancelledAt }
func (s *Sale) IsCancelled() bool       { return s.status == StatusCancelled }
func (s *Sale) Items() []Item           { return slices.Clone(s.items) }
func (s *Sale) Len() int                { return len(s.items) }

// Version is the persistence concurrency token the sale was loaded with.
func (s *Sale) Version() int { return s.version }

// SetVersion is called by repositories after a successful write.
func (s *Sale) SetVersion(v int) { s.version = v }

// Currency is the currency of the sale's items, or its default currency when
// it has none.
func (s *Sale) Currency() string { return s.currency }

// QuantityOf returns the total quantity of a product across all lines.
func (s *Sale) QuantityOf(productID uuid.UUID) int {
	n := 0
	for _, it := range s.items {
		if it.productID == productID {
			n = addQuantity(n, it.quantity)
		}
	}
	return n
}

// AddItem appends a line for quantity units of p priced with policy, then
// recomputes the total. Adding a product priced in a different currency than
// the existing lines fails and leaves the sale as it was.
//
// The sale does not remember the policy. Service.AddItemsToSale prices with
// the service's policy.
func (s *Sale) AddItem(p product.Product, quantity int, policy discount.Policy) error {
	if s.IsCancelled() {
		return invalidState("cannot add items to cancelled sale %s", s.number)
	}
	it, err := newItem(p, quantity, policy)
	if err != nil {
		return err
	}

	s.items = append(s.items, it)
	if err := s.recalculate(); err != nil {
		s.items = s.items[:len(s.items)-1]
		return err
	}
	return nil
}

// RemoveItem drops the line with the given id. Removing an unknown id is a no-op.
func (s *Sale) RemoveItem(itemID uuid.UUID) error {
	if s.IsCancelled() {
		return invalidState("cannot remove items from cancelled sale %s", s.number)
	}
	s.items = slices.DeleteFunc(s.items, func(it Item) bool { return it.id == itemID })
	return s.recalculate()
}

// ClearItems removes every line. The total becomes zero in the prevailing
// currency.
func (s *Sale) ClearItems() error {
	if s.IsCancelled() {
		return invalidState("cannot clear items of cancelled sale %s", s.number)
	}
	s.items = nil
	return s.recalculate()
}

// replaceItems swaps the whole line collection. On a currency violation the
// new lines stay in place and the error is returned.
func (s *Sale) replaceItems(items []Item) error {
	s.items = items
	return s.recalculate()
}

// Cancel moves the sale to the terminal cancelled state.
func (s *Sale) Cancel(at time.Time) error {
	if s.IsCancelled() {
		return invalidState("sale %s is already cancelled", s.number)
	}
	s.status = StatusCancelled
	s.cancelledAt = &at
	return nil
}

// MarkUpdated records a successful modification.
func (s *Sale) MarkUpdated(at time.Time) error {
	if s.IsCancelled() {
		return invalidState("cannot update cancelled sale %s", s.number)
	}
	s.status = StatusUpdated
	s.updatedAt = &at
	return nil
}

// recalculate derives the total from the lines.
func (s *Sale) recalculate() error {
	if len(s.items) == 0 {
		s.total = money.Zero(s.currency)
		return nil
	}

	currency := s.items[0].total.Currency()
	sum := money.Zero(currency)
	for _, it := range s.items {
		next, err := sum.Add(it.total)
		if err != nil {
			return violation(fmt.Sprintf("all items must share currency %s, product %s is priced in %s",
				currency, it.productID, it.total.Currency()))
		}
		sum = next
	}

	s.currency = currency
	s.total = sum.Round(2)
	return nil
}

// Validate checks the aggregate rules and returns every violated one.
func (s *Sale) Validate() []string {
	var rules []string
	if !validNumber(s.number) {
		rules = append(rules, fmt.Sprintf("sale number %q must be 5-20 letters, digits or hyphens", s.number))
	}
	if s.date.IsZero() {
		rules = append(rules, "sale date is required")
	}
	if s.customer.ID == uuid.Nil {
		rules = append(rules, "customer is required")
	}
	if s.branch.ID == uuid.Nil {
		rules = append(rules, "branch is required")
	}
	if !s.status.Valid() {
		rules = append(rules, fmt.Sprintf("unknown status %q", s.status))
	}
	if len(s.items) > MaxLines {
		rules = append(rules, fmt.Sprintf("sale cannot contain more than %d items", MaxLines))
	}

	one := decimal.NewFromInt(1)
	sum := decimal.Zero
	mixed := false
	for _, it := range s.items {
		if it.quantity <= 0 {
			rules = append(rules, fmt.Sprintf("quantity of product %s must be greater than 0", it.productID))
		}
		if it.discountRate.IsNegative() || it.discountRate.GreaterThan(one) {
			rules = append(rules, fmt.Sprintf("discount of product %s must be between 0 and 1", it.productID))
		}
		if it.total.Amount().IsNegative() {
			rules = append(rules, fmt.Sprintf("total of product %s cannot be negative", it.productID))
		}
		if it.total.Currency() != s.items[0].total.Currency() {
			mixed = true
		}
		sum = sum.Add(it.total.Amount())
	}
	if mixed {
		rules = append(rules, "all items must share one currency")
	} else if len(s.items) > 0 && !s.total.Amount().Equal(sum.Round(2)) {
		rules = append(rules, fmt.Sprintf("total %s does not match items sum %s", s.total.Amount(), sum.Round(2)))
	}
	return rules
}

func validNumber(n string) bool {
	if len(n) < 5 || len(n) > 20 {
		return false
	}
	for i := range len(n) {
		c := n[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}
