package sale

import (
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/domain/discount"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
)

// DefaultCurrency is used for sales that have no items yet.
const DefaultCurrency = "USD"

// Line is a requested quantity of a product.
type Line struct {
	Product  product.Product
	Quantity int
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the discount policy applied to new lines.
func WithPolicy(p discount.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithMaxQuantity sets the ceiling of identical units per product.
func WithMaxQuantity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = ItemLimitSpecification{Max: n}
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNumberGenerator sets the source of generated sale numbers.
func WithNumberGenerator(g NumberGenerator) Option {
	return func(s *Service) { s.numbers = g }
}

// WithDefaultCurrency sets the currency of sales without items. Codes that
// are not three upper case letters are ignored.
func WithDefaultCurrency(currency string) Option {
	return func(s *Service) {
		if money.ValidateCurrency(currency) == nil {
			s.currency = currency
		}
	}
}

// Service holds the sale business rules that span more than one aggregate
// method: the per-product ceiling, line grouping on update and number
// assignment.
type Service struct {
	policy   discount.Policy
	limit    ItemLimitSpecification
	now      func() time.Time
	numbers  NumberGenerator
	currency string
}

// NewService creates a sale Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		policy:   discount.Standard,
		limit:    ItemLimitSpecification{Max: DefaultMaxQuantity},
		now:      time.Now,
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.numbers == nil {
		s.numbers = NewNumbers()
	}
	return s
}

// Limit returns the item limit specification the service enforces.
func (s *Service) Limit() ItemLimitSpecification { return s.limit }

// CreateSale starts a new sale for customer at branch. An empty number is
// replaced with a generated one.
func (s *Service) CreateSale(customer, branch Party, number string) (*Sale, error) {
	if customer.ID == uuid.Nil {
		return nil, invalidArgument("customer is required")
	}
	if branch.ID == uuid.Nil {
		return nil, invalidArgument("branch is required")
	}

	now := s.now()
	if number == "" {
		number = s.numbers.Generate(now)
	} else if !validNumber(number) {
		return nil, invalidArgument("sale number %q must be 5-20 letters, digits or hyphens", number)
	}

	return &Sale{
		id:        uuid.New(),
		number:    number,
		date:      now,
		customer:  customer,
		branch:    branch,
		status:    StatusCreated,
		currency:  s.currency,
		total:     money.Zero(s.currency),
		createdAt: now,
	}, nil
}

// AddItemsToSale appends lines to sale in input order. Every line is checked
// before the sale is touched: quantities must be positive, the accumulated
// quantity of each product must stay within the ceiling and all products
// must be priced in the sale's currency.
func (s *Service) AddItemsToSale(sale *Sale, lines []Line) error {
	if sale.IsCancelled() {
		return invalidState("cannot add items to cancelled sale %s", sale.number)
	}

	limit := s.limit.max()
	for _, l := range lines {
		if l.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: l.Product.ID, Quantity: l.Quantity}
		}
		if l.Quantity > limit {
			return &ItemLimitExceededError{ProductID: l.Product.ID, Quantity: l.Quantity, Limit: limit}
		}
	}

	requested := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		requested[l.Product.ID] = addQuantity(requested[l.Product.ID], l.Quantity)
		if total := addQuantity(sale.QuantityOf(l.Product.ID), requested[l.Product.ID]); total > limit {
			return &ItemLimitExceededError{ProductID: l.Product.ID, Quantity: total, Limit: limit}
		}
	}

	if n := len(sale.items) + len(lines); n > MaxLines {
		return violation(fmt.Sprintf("sale cannot contain more than %d items", MaxLines))
	}

	if len(lines) > 0 {
		currency := lines[0].Product.Price.Currency()
		if len(sale.items) > 0 {
			currency = sale.currency
		}
		for _, l := range lines {
			if c := l.Product.Price.Currency(); c != currency {
				return violation(fmt.Sprintf("all items must share currency %s, product %s is priced in %s",
					currency, l.Product.ID, c))
			}
		}
	}

	for _, l := range lines {
		if err := sale.AddItem(l.Product, l.Quantity, s.policy); err != nil {
			return err
		}
	}
	return nil
}

// CancelSale cancels sale. The optional reason is returned with the
// cancellation for the event, the sale does not keep it.
func (s *Service) CancelSale(sale *Sale, reason string) (Cancellation, error) {
	now := s.now()
	if err := sale.Cancel(now); err != nil {
		return Cancellation{}, err
	}
	return Cancellation{Reason: reason, At: now}, nil
}

// UpdateSale replaces the customer and branch of sale and, when lines is not
// nil, its whole line collection. Lines of the same product are merged into
// one; products whose merged quantity is not positive are dropped.
//
// Argument and state errors, and an *ItemLimitExceededError for a single line
// over the ceiling, leave the sale untouched. An *InvariantViolationError is returned after the changes were applied, so
// callers must discard the sale in that case.
func (s *Service) UpdateSale(sale *Sale, customer, branch Party, lines []Line) (*Sale, error) {
	if sale.IsCancelled() {
		return nil, invalidState("cannot update cancelled sale %s", sale.number)
	}
	if customer.ID == uuid.Nil {
		return nil, invalidArgument("customer is required")
	}
	if branch.ID == uuid.Nil {
		return nil, invalidArgument("branch is required")
	}
	limit := s.limit.max()
	for _, l := range lines {
		if l.Quantity > limit {
			return nil, &ItemLimitExceededError{ProductID: l.Product.ID, Quantity: l.Quantity, Limit: limit}
		}
	}

	sale.customer = customer
	sale.branch = branch

	var rules []string
	if lines != nil {
		items := make([]Item, 0, len(lines))
		for _, g := range groupLines(lines) {
			if g.Quantity <= 0 {
				continue
			}
			it, err := newItem(g.Product, g.Quantity, s.policy)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		if err := sale.replaceItems(items); err != nil {
			var v *InvariantViolationError
			if !errors.As(err, &v) {
				return nil, err
			}
			rules = append(rules, v.Rules...)
		}
	}

	rules = append(rules, sale.Validate()...)
	for _, it := range sale.items {
		if it.quantity > limit {
			rules = append(rules, (&ItemLimitExceededError{
				ProductID: it.productID,
				Quantity:  it.quantity,
				Limit:     limit,
			}).Error())
		}
	}
	if len(rules) > 0 {
		return nil, violation(rules...)
	}

	if err := sale.MarkUpdated(s.now()); err != nil {
		return nil, err
	}
	return sale, nil
}

// groupLines sums quantities per product, keeping the order in which each
// product first appears.
func groupLines(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.Product.ID]; ok {
			out[i].Quantity = addQuantity(out[i].Quantity, l.Quantity)
			continue
		}
		index[l.Product.ID] = len(out)
		out = append(out, l)
	}
	return out
}

// addQuantity adds two quantities, saturating at math.MaxInt and math.MinInt
// so that ceiling checks cannot be bypassed by wrapping around.
func addQuantity(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}
