package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sales-service/internal/domain/sale"
)

const (
	saleColumns = `id, number, sale_date, customer_id, customer_name, branch_id, branch_name,
		status, currency, total, created_at, updated_at, cancelled_at, version`

	insertSaleSQL = `INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)`

	updateSaleSQL = `UPDATE sales SET
			customer_id = $2, customer_name = $3, branch_id = $4, branch_name = $5,
			status = $6, currency = $7, total = $8,
			updated_at = $9, cancelled_at = $10, version = version + 1
		WHERE id = $1 AND version = $11
		RETURNING version`

	saleExistsSQL = `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`

	getSaleSQL = `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	listSalesSQL = `SELECT ` + saleColumns + ` FROM sales
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2::int, 0) OFFSET $3`

	countSalesSQL = `SELECT count(*) FROM sales WHERE ($1 = '' OR status = $1)`

	deleteSaleSQL = `DELETE FROM sales WHERE id = $1`

	deleteSaleItemsSQL = `DELETE FROM sale_items WHERE sale_id = $1`

	listSaleItemsSQL = `SELECT sale_id, id, product_id, product_name, quantity, unit_price, currency, discount_rate, total
		FROM sale_items WHERE sale_id = ANY($1)
		ORDER BY sale_id, position`
)

var saleItemColumns = []string{
	"id", "sale_id", "position", "product_id", "product_name",
	"quantity", "unit_price", "currency", "discount_rate", "total",
}

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository implements sale.Repository backed by PostgreSQL. Items are
// stored in sale_items and rewritten as a whole on every update.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// Create inserts a new sale with version 1.
func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	snap := s.Snapshot()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSaleSQL,
			snap.ID, snap.Number, snap.Date,
			snap.Customer.ID, snap.Customer.Name, snap.Branch.ID, snap.Branch.Name,
			string(snap.Status), snap.Currency, snap.Total,
			snap.CreatedAt, snap.UpdatedAt, snap.CancelledAt,
		); err != nil {
			if isUniqueViolation(err) {
				return errors.Wrapf(sale.ErrDuplicateNumber, "number %s", snap.Number)
			}
			return fmt.Errorf("inserting sale: %w", err)
		}
		return insertItems(ctx, tx, snap)
	})
	if err != nil {
		return fmt.Errorf("creating sale %q: %w", snap.ID, err)
	}

	s.SetVersion(1)
	return nil
}

// Update replaces the stored sale if its version still matches.
func (r *SaleRepository) Update(ctx context.Context, s *sale.Sale) error {
	snap := s.Snapshot()
	var version int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, updateSaleSQL,
			snap.ID,
			snap.Customer.ID, snap.Customer.Name, snap.Branch.ID, snap.Branch.Name,
			string(snap.Status), snap.Currency, snap.Total,
			snap.UpdatedAt, snap.CancelledAt, snap.Version,
		).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, saleExistsSQL, snap.ID).Scan(&exists); err != nil {
				return fmt.Errorf("checking sale: %w", err)
			}
			if !exists {
				return sale.ErrNotFound
			}
			return errors.Wrapf(sale.ErrConflict, "version %d", snap.Version)
		}
		if err != nil {
			return fmt.Errorf("updating sale: %w", err)
		}

		if _, err := tx.Exec(ctx, deleteSaleItemsSQL, snap.ID); err != nil {
			return fmt.Errorf("deleting sale items: %w", err)
		}
		return insertItems(ctx, tx, snap)
	})
	if err != nil {
		return fmt.Errorf("updating sale %q: %w", snap.ID, err)
	}

	s.SetVersion(version)
	return nil
}

// Get loads a sale with its items.
func (r *SaleRepository) Get(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	rows, err := r.pool.Query(ctx, getSaleSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}
	snap, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}

	sales, err := r.restore(ctx, []sale.Snapshot{snap})
	if err != nil {
		return nil, err
	}
	return sales[0], nil
}

// List returns a page of sales, newest first, and the number of matching sales.
func (r *SaleRepository) List(ctx context.Context, params sale.ListParams) ([]*sale.Sale, int, error) {
	status := string(params.Status)

	var total int
	if err := r.pool.QueryRow(ctx, countSalesSQL, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting sales: %w", err)
	}

	rows, err := r.pool.Query(ctx, listSalesSQL, status, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sales: %w", err)
	}
	snaps, err := pgx.CollectRows(rows, scanSale)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sales: %w", err)
	}

	sales, err := r.restore(ctx, snaps)
	if err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// Delete removes a sale and its items.
func (r *SaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deleteSaleSQL, id)
	if err != nil {
		return fmt.Errorf("deleting sale %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return sale.ErrNotFound
	}
	return nil
}

// restore attaches items to the scanned sale rows and rebuilds the aggregates.
func (r *SaleRepository) restore(ctx context.Context, snaps []sale.Snapshot) ([]*sale.Sale, error) {
	if len(snaps) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	rows, err := r.pool.Query(ctx, listSaleItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing sale items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanSaleItem)
	if err != nil {
		return nil, fmt.Errorf("listing sale items: %w", err)
	}

	bySale := make(map[uuid.UUID][]sale.ItemSnapshot, len(snaps))
	for _, it := range items {
		bySale[it.saleID] = append(bySale[it.saleID], it.ItemSnapshot)
	}

	out := make([]*sale.Sale, 0, len(snaps))
	for _, snap := range snaps {
		snap.Items = bySale[snap.ID]
		s, err := sale.Restore(snap)
		if err != nil {
			return nil, fmt.Errorf("restoring sale %q: %w", snap.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, snap sale.Snapshot) error {
	if len(snap.Items) == 0 {
		return nil
	}
	rows := make([][]any, len(snap.Items))
	for i, it := range snap.Items {
		rows[i] = []any{
			it.ID, snap.ID, i, it.ProductID, it.ProductName,
			it.Quantity, it.UnitPrice, it.Currency, it.DiscountRate, it.Total,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"sale_items"}, saleItemColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("inserting sale items: %w", err)
	}
	return nil
}

func scanSale(row pgx.CollectableRow) (sale.Snapshot, error) {
	var (
		s           sale.Snapshot
		status      string
		updatedAt   *time.Time
		cancelledAt *time.Time
	)
	err := row.Scan(
		&s.ID, &s.Number, &s.Date,
		&s.Customer.ID, &s.Customer.Name, &s.Branch.ID, &s.Branch.Name,
		&status, &s.Currency, &s.Total,
		&s.CreatedAt, &updatedAt, &cancelledAt, &s.Version,
	)
	s.Status = sale.Status(status)
	s.UpdatedAt = updatedAt
	s.CancelledAt = cancelledAt
	return s, err
}

type itemRow struct {
	saleID uuid.UUID
	sale.ItemSnapshot
}

func scanSaleItem(row pgx.CollectableRow) (itemRow, error) {
	var it itemRow
	err := row.Scan(
		&it.saleID, &it.ID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.Currency, &it.DiscountRate, &it.Total,
	)
	return it, err
}
