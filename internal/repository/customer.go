package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sales-service/internal/domain/customer"
)

const (
	getCustomerByIDSQL = `SELECT id, name, email FROM customers WHERE id = $1`

	listCustomersSQL = `SELECT id, name, email FROM customers ORDER BY name, id`

	upsertCustomerSQL = `INSERT INTO customers (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer.
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx, getCustomerByIDSQL, id).Scan(&c.ID, &c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// List returns all customers ordered by name.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[customer.Customer])
}

// Upsert inserts or replaces customers.
func (r *CustomerRepository) Upsert(ctx context.Context, customers ...customer.Customer) error {
	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(upsertCustomerSQL, c.ID, c.Name, c.Email)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting customers: %w", err)
	}
	return nil
}
