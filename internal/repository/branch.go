package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sales-service/internal/domain/branch"
)

const (
	branchColumns = `id, name, phone, street, city, state, zip_code, country, status`

	getBranchByIDSQL = `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`

	listBranchesSQL = `SELECT ` + branchColumns + ` FROM branches ORDER BY name, id`

	upsertBranchSQL = `INSERT INTO branches (` + branchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip_code = EXCLUDED.zip_code,
			country = EXCLUDED.country,
			status = EXCLUDED.status`
)

var _ branch.Repository = (*BranchRepository)(nil)

// BranchRepository implements branch.Repository backed by PostgreSQL.
type BranchRepository struct {
	pool *pgxpool.Pool
}

// NewBranchRepository returns a BranchRepository that uses the given pool.
func NewBranchRepository(pool *pgxpool.Pool) *BranchRepository {
	return &BranchRepository{pool: pool}
}

// GetByID returns a single branch.
func (r *BranchRepository) GetByID(ctx context.Context, id uuid.UUID) (*branch.Branch, error) {
	rows, err := r.pool.Query(ctx, getBranchByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting branch %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBranch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, branch.ErrNotFound
		}
		return nil, fmt.Errorf("getting branch %q: %w", id, err)
	}
	return &b, nil
}

// List returns all branches ordered by name.
func (r *BranchRepository) List(ctx context.Context) ([]branch.Branch, error) {
	rows, err := r.pool.Query(ctx, listBranchesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return pgx.CollectRows(rows, scanBranch)
}

// Upsert inserts or replaces branches.
func (r *BranchRepository) Upsert(ctx context.Context, branches ...branch.Branch) error {
	batch := &pgx.Batch{}
	for _, b := range branches {
		batch.Queue(upsertBranchSQL, b.ID, b.Name, b.Phone,
			b.Address.Street, b.Address.City, b.Address.State, b.Address.ZipCode, b.Address.Country,
			string(b.Status),
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting branches: %w", err)
	}
	return nil
}

func scanBranch(row pgx.CollectableRow) (branch.Branch, error) {
	var (
		b      branch.Branch
		status string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Phone,
		&b.Address.Street, &b.Address.City, &b.Address.State, &b.Address.ZipCode, &b.Address.Country,
		&status,
	)
	b.Status = branch.Status(status)
	return b, err
}
