package sale

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sales-service/internal/domain/discount"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
)

// --- Helpers ---

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestProduct(name, price, currency string) product.Product {
	return product.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: money.MustNew(price, currency),
	}
}

func newTestService(opts ...Option) *Service {
	return NewService(append([]Option{WithClock(func() time.Time { return testNow })}, opts...)...)
}

func newTestSale(t *testing.T, svc *Service) *Sale {
	t.Helper()
	s, err := svc.CreateSale(
		Party{ID: uuid.New(), Name: "Jane Doe"},
		Party{ID: uuid.New(), Name: "Downtown"},
		"",
	)
	require.NoError(t, err)
	return s
}

func requireAmount(t *testing.T, want string, got money.Money) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got.Amount()), "want %s, got %s", want, got.Amount())
}

// --- Item ---

func TestNewItem_Total(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		quantity int
		rate     string
		total    string
	}{
		{name: "no discount", price: "1.99", quantity: 3, rate: "0", total: "5.97"},
		{name: "ten percent", price: "10.00", quantity: 5, rate: "0.10", total: "45.00"},
		{name: "half rounds away from zero", price: "0.05", quantity: 5, rate: "0.10", total: "0.23"},
		{name: "twenty percent", price: "3.33", quantity: 12, rate: "0.20", total: "31.97"},
		{name: "free product", price: "0", quantity: 4, rate: "0.10", total: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProduct("Beer", tt.price, "USD")
			it, err := newItem(p, tt.quantity, discount.Standard)
			require.NoError(t, err)

			assert.Equal(t, p.ID, it.ProductID())
			assert.Equal(t, "Beer", it.ProductName())
			assert.True(t, decimal.RequireFromString(tt.rate).Equal(it.DiscountRate()))
			requireAmount(t, tt.total, it.Total())
			assert.False(t, it.Total().Amount().IsNegative())
		})
	}
}

func TestNewItem_InvalidQuantity(t *testing.T) {
	p := newTestProduct("Beer", "2.00", "USD")

	for _, q := range []int{0, -1} {
		_, err := newItem(p, q, discount.Standard)

		var qErr *InvalidQuantityError
		require.ErrorAs(t, err, &qErr)
		assert.Equal(t, p.ID, qErr.ProductID)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestNewItem_RateOutOfRange(t *testing.T) {
	p := newTestProduct("Beer", "2.00", "USD")
	bad := discount.Func(func(int) decimal.Decimal { return decimal.RequireFromString("1.5") })

	_, err := newItem(p, 1, bad)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestItem_Discount(t *testing.T) {
	it, err := newItem(newTestProduct("Beer", "2.00", "USD"), 10, discount.Standard)
	require.NoError(t, err)
	assert.Equal(t, "4", it.Discount().String())
}

func TestItem_PriceSnapshot(t *testing.T) {
	p := newTestProduct("Beer", "2.00", "USD")
	it, err := newItem(p, 1, discount.Standard)
	require.NoError(t, err)

	p.Price = money.MustNew("9.00", "USD")
	requireAmount(t, "2.00", it.UnitPrice())
}

// --- Aggregate ---

func TestSale_AddRemoveRoundTrip(t *testing.T) {
	s := newTestSale(t, newTestService())

	require.NoError(t, s.AddItem(newTestProduct("IPA", "4.50", "USD"), 2, discount.Standard))
	before := s.Total()

	require.NoError(t, s.AddItem(newTestProduct("Stout", "7.25", "USD"), 5, discount.Standard))
	requireAmount(t, "41.63", s.Total())

	added := s.Items()[1]
	require.NoError(t, s.RemoveItem(added.ID()))
	assert.True(t, before.Equal(s.Total()))
	assert.Equal(t, 1, s.Len())
}

func TestSale_RemoveUnknownItem(t *testing.T) {
	s := newTestSale(t, newTestService())
	require.NoError(t, s.AddItem(newTestProduct("IPA", "4.50", "USD"), 2, discount.Standard))

	require.NoError(t, s.RemoveItem(uuid.New()))
	assert.Equal(t, 1, s.Len())
	requireAmount(t, "9.00", s.Total())
}

func TestSale_ClearItems(t *testing.T) {
	s := newTestSale(t, newTestService())
	require.NoError(t, s.AddItem(newTestProduct("Lager", "3.00", "EUR"), 1, discount.Standard))
	assert.Equal(t, "EUR", s.Currency())

	require.NoError(t, s.ClearItems())
	assert.Zero(t, s.Len())
	assert.True(t, s.Total().IsZero())
	assert.Equal(t, "EUR", s.Total().Currency())
}

func TestSale_ClearItems_DefaultCurrency(t *testing.T) {
	s := newTestSale(t, newTestService(WithDefaultCurrency("BRL")))

	require.NoError(t, s.ClearItems())
	assert.Equal(t, "BRL", s.Total().Currency())
}

func TestSale_MixedCurrencies(t *testing.T) {
	s := newTestSale(t, newTestService())
	require.NoError(t, s.AddItem(newTestProduct("IPA", "4.50", "USD"), 1, discount.Standard))

	err := s.AddItem(newTestProduct("Pilsner", "3.00", "EUR"), 1, discount.Standard)

	var vErr *InvariantViolationError
	require.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Len(t, vErr.Rules, 1)
	assert.Equal(t, 1, s.Len())
	requireAmount(t, "4.50", s.Total())
}

func TestSale_Cancel(t *testing.T) {
	s := newTestSale(t, newTestService())
	at := testNow.Add(time.Hour)

	require.NoError(t, s.Cancel(at))
	assert.Equal(t, StatusCancelled, s.Status())
	require.NotNil(t, s.CancelledAt())
	assert.Equal(t, at, *s.CancelledAt())

	require.ErrorIs(t, s.Cancel(at), ErrInvalidState)
}

func TestSale_CancelledIsTerminal(t *testing.T) {
	s := newTestSale(t, newTestService())
	require.NoError(t, s.AddItem(newTestProduct("IPA", "4.50", "USD"), 1, discount.Standard))
	require.NoError(t, s.Cancel(testNow))

	tests := []struct {
		name string
		op   func() error
	}{
		{name: "add", op: func() error { return s.AddItem(newTestProduct("IPA", "4.50", "USD"), 1, discount.Standard) }},
		{name: "remove", op: func() error { return s.RemoveItem(s.Items()[0].ID()) }},
		{name: "clear", op: s.ClearItems},
		{name: "mark updated", op: func() error { return s.MarkUpdated(testNow) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.op(), ErrInvalidState)
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestSale_MarkUpdated(t *testing.T) {
	s := newTestSale(t, newTestService())
	at := testNow.Add(time.Minute)

	require.NoError(t, s.MarkUpdated(at))
	assert.Equal(t, StatusUpdated, s.Status())
	require.NotNil(t, s.UpdatedAt())
	assert.Equal(t, at, *s.UpdatedAt())

	require.NoError(t, s.MarkUpdated(at.Add(time.Minute)))
	assert.Equal(t, StatusUpdated, s.Status())
}

func TestSale_Validate(t *testing.T) {
	s := newTestSale(t, newTestService())
	require.NoError(t, s.AddItem(newTestProduct("IPA", "4.50", "USD"), 3, discount.Standard))
	assert.Empty(t, s.Validate())

	s.number = "bad number!"
	s.customer = Party{}
	s.date = time.Time{}

	rules := s.Validate()
	assert.Len(t, rules, 3)
}

func TestSale_Validate_TooManyLines(t *testing.T) {
	s := newTestSale(t, newTestService())
	p := newTestProduct("IPA", "1.00", "USD")
	for range MaxLines + 1 {
		s.items = append(s.items, Item{productID: p.ID, quantity: 1, unitPrice: p.Price, total: p.Price})
	}
	require.NoError(t, s.recalculate())

	assert.Contains(t, s.Validate(), "sale cannot contain more than 100 items")
}

// --- Snapshot ---

func TestSnapshot_Restore(t *testing.T) {
	svc := newTestService()
	s := newTestSale(t, svc)
	require.NoError(t, svc.AddItemsToSale(s, []Line{
		{Product: newTestProduct("IPA", "4.50", "USD"), Quantity: 4},
		{Product: newTestProduct("Stout", "7.25", "USD"), Quantity: 1},
	}))
	_, err := svc.CancelSale(s, "customer changed their mind")
	require.NoError(t, err)
	s.SetVersion(3)

	restored, err := Restore(s.Snapshot())
	require.NoError(t, err)

	want, got := s.Snapshot(), restored.Snapshot()
	assert.True(t, want.Total.Equal(got.Total))
	want.Total, got.Total = decimal.Zero, decimal.Zero
	assert.Equal(t, want, got)
	assert.Equal(t, 3, restored.Version())
	assert.True(t, restored.IsCancelled())
}

func TestRestore_Invalid(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{name: "missing id", snap: Snapshot{Status: StatusCreated, Currency: "USD"}},
		{name: "unknown status", snap: Snapshot{ID: uuid.New(), Status: "paid", Currency: "USD"}},
		{name: "negative price", snap: Snapshot{
			ID: uuid.New(), Status: StatusCreated, Currency: "USD",
			Items: []ItemSnapshot{{ID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(-1), Currency: "USD"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.snap)
			require.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

// --- Events ---

func TestNewEvent(t *testing.T) {
	svc := newTestService()
	s := newTestSale(t, svc)
	require.NoError(t, svc.AddItemsToSale(s, []Line{{Product: newTestProduct("IPA", "2.00", "USD"), Quantity: 10}}))

	created := NewEvent(EventCreated, s, testNow)
	assert.Equal(t, EventCreated, created.Type)
	assert.Empty(t, created.Reason)
	assert.Equal(t, s.ID(), created.Sale.ID)
	require.Len(t, created.Sale.Items, 1)
	assert.Equal(t, "16", created.Sale.Items[0].Total.String())

	c, err := svc.CancelSale(s, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, Cancellation{Reason: "duplicate", At: testNow}, c)

	cancelled := c.Event(s)
	assert.Equal(t, EventCancelled, cancelled.Type)
	assert.Equal(t, "duplicate", cancelled.Reason)
	assert.Equal(t, testNow, cancelled.OccurredAt)
	assert.Equal(t, StatusCancelled, cancelled.Sale.Status)
	assert.NotEqual(t, created.ID, cancelled.ID)

	// The reason only travels in the event.
	assert.Empty(t, NewEvent(EventCancelled, s, testNow).Reason)

	// The snapshot does not follow later changes.
	assert.Equal(t, StatusCreated, created.Sale.Status)
}
