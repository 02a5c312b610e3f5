// Package memory provides in-process repositories for tests and for running
// the service without a database.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/domain/sale"
)

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository stores sale snapshots in a map. Every read restores a fresh
// aggregate so callers never share state.
type SaleRepository struct {
	mu      sync.RWMutex
	sales   map[uuid.UUID]sale.Snapshot
	numbers map[string]uuid.UUID
}

// NewSaleRepository creates an empty SaleRepository.
func NewSaleRepository() *SaleRepository {
	return &SaleRepository{
		sales:   make(map[uuid.UUID]sale.Snapshot),
		numbers: make(map[string]uuid.UUID),
	}
}

// Create implements sale.Repository.
func (r *SaleRepository) Create(_ context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := s.Snapshot()
	if _, ok := r.numbers[snap.Number]; ok {
		return errors.Wrapf(sale.ErrDuplicateNumber, "number %s", snap.Number)
	}
	snap.Version = 1
	r.sales[snap.ID] = snap
	r.numbers[snap.Number] = snap.ID
	s.SetVersion(1)
	return nil
}

// Get implements sale.Repository.
func (r *SaleRepository) Get(_ context.Context, id uuid.UUID) (*sale.Sale, error) {
	r.mu.RLock()
	snap, ok := r.sales[id]
	r.mu.RUnlock()
	if !ok {
		return nil, sale.ErrNotFound
	}
	return sale.Restore(snap)
}

// Update implements sale.Repository.
func (r *SaleRepository) Update(_ context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := s.Snapshot()
	stored, ok := r.sales[snap.ID]
	if !ok {
		return sale.ErrNotFound
	}
	if stored.Version != snap.Version {
		return errors.Wrapf(sale.ErrConflict, "version %d, stored %d", snap.Version, stored.Version)
	}
	snap.Version++
	r.sales[snap.ID] = snap
	s.SetVersion(snap.Version)
	return nil
}

// List implements sale.Repository.
func (r *SaleRepository) List(_ context.Context, params sale.ListParams) ([]*sale.Sale, int, error) {
	r.mu.RLock()
	matched := make([]sale.Snapshot, 0, len(r.sales))
	for _, snap := range r.sales {
		if params.Status == "" || snap.Status == params.Status {
			matched = append(matched, snap)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b sale.Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	page := matched[min(params.Offset, total):]
	if params.Limit > 0 && len(page) > params.Limit {
		page = page[:params.Limit]
	}

	out := make([]*sale.Sale, 0, len(page))
	for _, snap := range page {
		s, err := sale.Restore(snap)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, nil
}

// Delete implements sale.Repository.
func (r *SaleRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.sales[id]
	if !ok {
		return sale.ErrNotFound
	}
	delete(r.sales, id)
	delete(r.numbers, snap.Number)
	return nil
}
