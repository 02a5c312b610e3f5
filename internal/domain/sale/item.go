package sale

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/sales-service/internal/domain/discount"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
)

// Item is one line of a sale. Its price, discount and total are fixed when the
// line is created; changing the quantity means replacing the line.
type Item struct {
	id           uuid.UUID
	productID    uuid.UUID
	productName  string
	quantity     int
	unitPrice    money.Money
	discountRate decimal.Decimal
	total        money.Money
}

func newItem(p product.Product, quantity int, policy discount.Policy) (Item, error) {
	if quantity <= 0 {
		return Item{}, &InvalidQuantityError{ProductID: p.ID, Quantity: quantity}
	}

	rate := policy.Rate(quantity)
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Item{}, invalidArgument("discount rate %s for product %s is outside [0, 1]", rate, p.ID)
	}

	total, err := lineTotal(p.Price, quantity, rate)
	if err != nil {
		return Item{}, invalidArgument("price of product %s: %s", p.ID, err)
	}

	return Item{
		id:           uuid.New(),
		productID:    p.ID,
		productName:  p.Name,
		quantity:     quantity,
		unitPrice:    p.Price,
		discountRate: rate,
		total:        total,
	}, nil
}

// lineTotal computes round(price * quantity * (1 - rate), 2).
func lineTotal(price money.Money, quantity int, rate decimal.Decimal) (money.Money, error) {
	factor := decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromInt(1).Sub(rate))
	gross, err := price.Mul(factor)
	if err != nil {
		return money.Money{}, err
	}
	return gross.Round(2), nil
}

func (i Item) ID() uuid.UUID                 { return i.id }
func (i Item) ProductID() uuid.UUID          { return i.productID }
func (i Item) ProductName() string           { return i.productName }
func (i Item) Quantity() int                 { return i.quantity }
func (i Item) UnitPrice() money.Money        { return i.unitPrice }
func (i Item) DiscountRate() decimal.Decimal { return i.discountRate }
func (i Item) Total() money.Money            { return i.total }

// Discount returns the amount taken off the undiscounted line price.
func (i Item) Discount() decimal.Decimal {
	gross := i.unitPrice.Amount().Mul(decimal.NewFromInt(int64(i.quantity)))
	return gross.Sub(i.total.Amount()).Round(2)
}
