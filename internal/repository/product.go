package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, price, currency
		FROM products ORDER BY name, id`

	getProductByIDSQL = `SELECT id, name, description, price, currency
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, description, price, currency
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, currency)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or replaces catalog products.
func (r *ProductRepository) Upsert(ctx context.Context, products ...product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductSQL, p.ID, p.Name, p.Description, p.Price.Amount(), p.Price.Currency())
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting products: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		price    decimal.Decimal
		currency string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &currency); err != nil {
		return p, err
	}
	m, err := money.New(price, currency)
	if err != nil {
		return p, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.Price = m
	return p, nil
}
