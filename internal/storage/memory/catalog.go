package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/domain/branch"
	"github.com/xenking/sales-service/internal/domain/customer"
	"github.com/xenking/sales-service/internal/domain/product"
)

// table is a concurrency-safe map of catalog entities.
type table[T any] struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]T
	name func(T) string
}

func newTable[T any](name func(T) string) *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]T), name: name}
}

func (t *table[T]) put(id uuid.UUID, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = v
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) list() []T {
	t.mu.RLock()
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		out = append(out, v)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(t.name(a), t.name(b)) })
	return out
}

// ProductRepository is an in-memory product.Repository.
type ProductRepository struct {
	t *table[product.Product]
}

var _ product.Repository = (*ProductRepository)(nil)

// NewProductRepository creates a repository holding products.
func NewProductRepository(products ...product.Product) *ProductRepository {
	r := &ProductRepository{t: newTable(func(p product.Product) string { return p.Name })}
	_ = r.Upsert(context.Background(), products...)
	return r
}

// Upsert inserts or replaces products.
func (r *ProductRepository) Upsert(_ context.Context, products ...product.Product) error {
	for _, p := range products {
		r.t.put(p.ID, p)
	}
	return nil
}

// List implements product.Repository.
func (r *ProductRepository) List(context.Context) ([]product.Product, error) {
	return r.t.list(), nil
}

// GetByID implements product.Repository.
func (r *ProductRepository) GetByID(_ context.Context, id uuid.UUID) (*product.Product, error) {
	p, ok := r.t.get(id)
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs implements product.Repository.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []uuid.UUID) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.t.get(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CustomerRepository is an in-memory customer.Repository.
type CustomerRepository struct {
	t *table[customer.Customer]
}

var _ customer.Repository = (*CustomerRepository)(nil)

// NewCustomerRepository creates a repository holding customers.
func NewCustomerRepository(customers ...customer.Customer) *CustomerRepository {
	r := &CustomerRepository{t: newTable(func(c customer.Customer) string { return c.Name })}
	_ = r.Upsert(context.Background(), customers...)
	return r
}

// Upsert inserts or replaces customers.
func (r *CustomerRepository) Upsert(_ context.Context, customers ...customer.Customer) error {
	for _, c := range customers {
		r.t.put(c.ID, c)
	}
	return nil
}

// GetByID implements customer.Repository.
func (r *CustomerRepository) GetByID(_ context.Context, id uuid.UUID) (*customer.Customer, error) {
	c, ok := r.t.get(id)
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

// List implements customer.Repository.
func (r *CustomerRepository) List(context.Context) ([]customer.Customer, error) {
	return r.t.list(), nil
}

// BranchRepository is an in-memory branch.Repository.
type BranchRepository struct {
	t *table[branch.Branch]
}

var _ branch.Repository = (*BranchRepository)(nil)

// NewBranchRepository creates a repository holding branches.
func NewBranchRepository(branches ...branch.Branch) *BranchRepository {
	r := &BranchRepository{t: newTable(func(b branch.Branch) string { return b.Name })}
	_ = r.Upsert(context.Background(), branches...)
	return r
}

// Upsert inserts or replaces branches.
func (r *BranchRepository) Upsert(_ context.Context, branches ...branch.Branch) error {
	for _, b := range branches {
		r.t.put(b.ID, b)
	}
	return nil
}

// GetByID implements branch.Repository.
func (r *BranchRepository) GetByID(_ context.Context, id uuid.UUID) (*branch.Branch, error) {
	b, ok := r.t.get(id)
	if !ok {
		return nil, branch.ErrNotFound
	}
	return &b, nil
}

// List implements branch.Repository.
func (r *BranchRepository) List(context.Context) ([]branch.Branch, error) {
	return r.t.list(), nil
}
