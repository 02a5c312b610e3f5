package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item that can be sold. Price is the current list
// price; sales snapshot it when a line is added.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       money.Money
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// GetByIDs returns the products found among ids. Missing ids are not an
	// error; callers compare the result against the request.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
}
