// Package customer holds the buyer side of a sale.
package customer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is a person or company buying from a branch.
type Customer struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Repository provides customer lookups.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
}
