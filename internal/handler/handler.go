// Package handler exposes the sale use cases over HTTP with a JSON API.
package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/domain/product"
	"github.com/xenking/sales-service/internal/domain/sale"
	"github.com/xenking/sales-service/internal/usecase"
)

// Compile-time check ensuring the use case satisfies Sales.
var _ Sales = (*usecase.Sales)(nil)

// Sales is the application service behind the sale endpoints.
type Sales interface {
	Create(ctx context.Context, in usecase.CreateInput) (*sale.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*sale.Sale, error)
	List(ctx context.Context, in usecase.ListInput) (*usecase.ListResult, error)
	Update(ctx context.Context, in usecase.UpdateInput) (*sale.Sale, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*sale.Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the sales API.
type Handler struct {
	sales    Sales
	products product.Repository
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(sales Sales, products product.Repository) *Handler {
	return &Handler{
		sales:    sales,
		products: products,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sales", h.CreateSale)
	mux.HandleFunc("GET /api/sales", h.ListSales)
	mux.HandleFunc("GET /api/sales/{id}", h.GetSale)
	mux.HandleFunc("PUT /api/sales/{id}", h.UpdateSale)
	mux.HandleFunc("DELETE /api/sales/{id}", h.DeleteSale)
	mux.HandleFunc("POST /api/sales/{id}/cancel", h.CancelSale)
	mux.HandleFunc("GET /api/products", h.ListProducts)
}
