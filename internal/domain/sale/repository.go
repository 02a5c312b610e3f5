package sale

import (
	"context"

	"github.com/google/uuid"
)

// ListParams filters and pages a sale listing. A zero Status matches every
// status.
type ListParams struct {
	Limit  int
	Offset int
	Status Status
}

// Repository persists sales.
//
// Update must fail with ErrConflict when the stored version differs from
// sale.Version(), and bump the version on success. Create fails with
// ErrDuplicateNumber when the number is taken. Get, Update and Delete return
// ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	Get(ctx context.Context, id uuid.UUID) (*Sale, error)
	Update(ctx context.Context, sale *Sale) error
	// List returns the requested page, newest first, and the number of
	// sales matching the filter.
	List(ctx context.Context, params ListParams) ([]*Sale, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
