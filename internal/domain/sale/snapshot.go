package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/sales-service/internal/domain/money"
)

// Snapshot is the flat, storage-friendly view of a sale.
type Snapshot struct {
	ID          uuid.UUID
	Number      string
	Date        time.Time
	Customer    Party
	Branch      Party
	Status      Status
	Currency    string
	Total       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	CancelledAt *time.Time
	Version     int
	Items       []ItemSnapshot
}

// ItemSnapshot is the flat view of a sale line.
type ItemSnapshot struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	Currency     string
	DiscountRate decimal.Decimal
	Total        decimal.Decimal
}

// Snapshot returns a copy of the sale's state.
func (s *Sale) Snapshot() Snapshot {
	items := make([]ItemSnapshot, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, ItemSnapshot{
			ID:           it.id,
			ProductID:    it.productID,
			ProductName:  it.productName,
			Quantity:     it.quantity,
			UnitPrice:    it.unitPrice.Amount(),
			Currency:     it.unitPrice.Currency(),
			DiscountRate: it.discountRate,
			Total:        it.total.Amount(),
		})
	}
	return Snapshot{
		ID:          s.id,
		Number:      s.number,
		Date:        s.date,
		Customer:    s.customer,
		Branch:      s.branch,
		Status:      s.status,
		Currency:    s.currency,
		Total:       s.total.Amount(),
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		CancelledAt: s.cancelledAt,
		Version:     s.version,
		Items:       items,
	}
}

// Restore rebuilds a sale loaded from storage. Line totals are taken as
// stored; the sale total is recomputed from them.
func Restore(snap Snapshot) (*Sale, error) {
	if snap.ID == uuid.Nil {
		return nil, invalidArgument("restore sale: id is required")
	}
	if !snap.Status.Valid() {
		return nil, invalidArgument("restore sale %s: unknown status %q", snap.ID, snap.Status)
	}

	s := &Sale{
		id:          snap.ID,
		number:      snap.Number,
		date:        snap.Date,
		customer:    snap.Customer,
		branch:      snap.Branch,
		status:      snap.Status,
		currency:    snap.Currency,
		createdAt:   snap.CreatedAt,
		updatedAt:   snap.UpdatedAt,
		cancelledAt: snap.CancelledAt,
		version:     snap.Version,
		items:       make([]Item, 0, len(snap.Items)),
	}
	for _, is := range snap.Items {
		price, err := money.New(is.UnitPrice, is.Currency)
		if err != nil {
			return nil, invalidArgument("restore sale %s: item %s price: %s", snap.ID, is.ID, err)
		}
		total, err := money.New(is.Total, is.Currency)
		if err != nil {
			return nil, invalidArgument("restore sale %s: item %s total: %s", snap.ID, is.ID, err)
		}
		s.items = append(s.items, Item{
			id:           is.ID,
			productID:    is.ProductID,
			productName:  is.ProductName,
			quantity:     is.Quantity,
			unitPrice:    price,
			discountRate: is.DiscountRate,
			total:        total,
		})
	}
	if err := s.recalculate(); err != nil {
		return nil, err
	}
	return s, nil
}
