package sale

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Error categories. Every error returned by this package matches exactly one
// of them with errors.Is.
var (
	// ErrInvalidArgument marks structurally invalid input, detected before
	// any mutation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState marks operations not permitted in the sale's current
	// lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvariantViolation marks a failed post-mutation validation.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrNotFound is returned by repositories for unknown sale ids.
	ErrNotFound = errors.New("sale not found")
	// ErrConflict is returned by repositories when the stored version no
	// longer matches the one the sale was loaded with.
	ErrConflict = errors.New("sale was modified concurrently")
	// ErrDuplicateNumber is returned by repositories when the sale number is
	// already taken.
	ErrDuplicateNumber = errors.New("sale number already exists")
)

// InvalidQuantityError indicates a requested line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID uuid.UUID
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s (got %d)", e.ProductID, e.Quantity)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidArgument }

// ItemLimitExceededError indicates more identical units of a product than the
// per-product ceiling allows.
type ItemLimitExceededError struct {
	ProductID uuid.UUID
	Quantity  int
	Limit     int
}

func (e *ItemLimitExceededError) Error() string {
	return fmt.Sprintf("cannot sell more than %d identical items of product %s (got %d)", e.Limit, e.ProductID, e.Quantity)
}

func (e *ItemLimitExceededError) Unwrap() error { return ErrInvariantViolation }

// InvariantViolationError lists every aggregate rule a sale failed.
type InvariantViolationError struct {
	Rules []string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + strings.Join(e.Rules, "; ")
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

func violation(rules ...string) *InvariantViolationError {
	return &InvariantViolationError{Rules: rules}
}

func invalidState(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidState, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
