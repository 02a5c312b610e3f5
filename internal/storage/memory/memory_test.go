package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sales-service/internal/domain/branch"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
	"github.com/xenking/sales-service/internal/domain/sale"
)

func newSale(t *testing.T, svc *sale.Service, number string) *sale.Sale {
	t.Helper()
	s, err := svc.CreateSale(sale.Party{ID: uuid.New(), Name: "Jane"}, sale.Party{ID: uuid.New(), Name: "Main"}, number)
	require.NoError(t, err)
	return s
}

func TestSaleRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSaleRepository()
	svc := sale.NewService()
	s := newSale(t, svc, "")
	p := product.Product{ID: uuid.New(), Name: "IPA", Price: money.MustNew("2.00", "USD")}
	require.NoError(t, svc.AddItemsToSale(s, []sale.Line{{Product: p, Quantity: 10}}))

	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, 1, s.Version())

	got, err := repo.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.Number(), got.Number())
	assert.Equal(t, "16.00", got.Total().Amount().StringFixed(2))

	// Mutating a loaded copy does not touch the stored sale.
	require.NoError(t, got.ClearItems())
	again, err := repo.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())

	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, sale.ErrNotFound)
}

func TestSaleRepository_DuplicateNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewSaleRepository()
	svc := sale.NewService()

	require.NoError(t, repo.Create(ctx, newSale(t, svc, "S-00001")))
	require.ErrorIs(t, repo.Create(ctx, newSale(t, svc, "S-00001")), sale.ErrDuplicateNumber)
}

func TestSaleRepository_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := NewSaleRepository()
	svc := sale.NewService()
	s := newSale(t, svc, "")
	require.NoError(t, repo.Create(ctx, s))

	first, err := repo.Get(ctx, s.ID())
	require.NoError(t, err)
	second, err := repo.Get(ctx, s.ID())
	require.NoError(t, err)

	cancelSale(t, svc, first, "")
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version())

	_, err = svc.UpdateSale(second, second.Customer(), second.Branch(), nil)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Update(ctx, second), sale.ErrConflict)

	require.ErrorIs(t, repo.Update(ctx, newSale(t, svc, "")), sale.ErrNotFound)
}

func TestSaleRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSaleRepository()
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := range 5 {
		at := start.Add(time.Duration(i) * time.Minute)
		svc := sale.NewService(sale.WithClock(func() time.Time { return at }))
		s := newSale(t, svc, "")
		if i%2 == 0 {
			cancelSale(t, svc, s, "")
		}
		require.NoError(t, repo.Create(ctx, s))
		ids = append(ids, s.ID())
	}

	page, total, err := repo.List(ctx, sale.ListParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID())
	assert.Equal(t, ids[2], page[1].ID())

	cancelled, total, err := repo.List(ctx, sale.ListParams{Status: sale.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, cancelled, 3)

	empty, total, err := repo.List(ctx, sale.ListParams{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)

	require.NoError(t, repo.Delete(ctx, ids[0]))
	require.ErrorIs(t, repo.Delete(ctx, ids[0]), sale.ErrNotFound)
	_, total, err = repo.List(ctx, sale.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestCatalogRepositories(t *testing.T) {
	ctx := context.Background()
	ipa := product.Product{ID: uuid.New(), Name: "IPA", Price: money.MustNew("4.50", "USD")}
	ale := product.Product{ID: uuid.New(), Name: "Ale", Price: money.MustNew("3.00", "USD")}
	products := NewProductRepository(ipa, ale)

	list, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ale", list[0].Name)

	found, err := products.GetByIDs(ctx, []uuid.UUID{ipa.ID, ipa.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = products.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, product.ErrNotFound)

	b := branch.Branch{ID: uuid.New(), Name: "Main", Status: branch.StatusActive}
	branches := NewBranchRepository(b)
	got, err := branches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, *got)
	_, err = branches.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, branch.ErrNotFound)
}

func cancelSale(t *testing.T, svc *sale.Service, s *sale.Sale, reason string) {
	t.Helper()
	_, err := svc.CancelSale(s, reason)
	require.NoError(t, err)
}
