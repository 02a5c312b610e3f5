// Package branch holds the retail locations where sales happen.
package branch

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested branch does not exist.
var ErrNotFound = errors.New("branch not found")

// Status is the operational state of a branch.
type Status string

const (
	StatusActive            Status = "active"
	StatusTemporarilyClosed Status = "temporarily_closed"
	StatusUnderRenovation   Status = "under_renovation"
	StatusClosedPermanently Status = "closed_permanently"
)

// Address is the physical location of a branch.
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// Branch is a physical store.
type Branch struct {
	ID      uuid.UUID
	Name    string
	Phone   string
	Address Address
	Status  Status
}

// Repository provides branch lookups.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	List(ctx context.Context) ([]Branch, error)
}
