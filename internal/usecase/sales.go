// Package usecase orchestrates the sale domain with its repositories and the
// event publisher.
package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sales-service/internal/domain/branch"
	"github.com/xenking/sales-service/internal/domain/customer"
	"github.com/xenking/sales-service/internal/domain/product"
	"github.com/xenking/sales-service/internal/domain/sale"
)

const instrumentation = "github.com/xenking/sales-service/internal/usecase"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MissingProductsError lists requested products that do not exist.
type MissingProductsError struct {
	IDs []uuid.UUID
}

func (e *MissingProductsError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return "products not found: " + strings.Join(ids, ", ")
}

func (e *MissingProductsError) Unwrap() error { return product.ErrNotFound }

// LineInput is a requested product quantity.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput holds the input for creating a sale.
type CreateInput struct {
	CustomerID uuid.UUID
	BranchID   uuid.UUID
	// Number is optional; a number is generated when empty.
	Number string
	Items  []LineInput
}

// UpdateInput holds the input for updating a sale. A nil Items keeps the
// current lines; a non-nil slice replaces them all.
type UpdateInput struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	BranchID   uuid.UUID
	Items      []LineInput
}

// ListInput filters and pages a sale listing.
type ListInput struct {
	Limit  int
	Offset int
	Status string
}

// ListResult is a page of sales.
type ListResult struct {
	Sales  []*sale.Sale
	Total  int
	Limit  int
	Offset int
}

// Deps holds the collaborators of Sales.
type Deps struct {
	Sales     sale.Repository
	Products  product.Repository
	Customers customer.Repository
	Branches  branch.Repository
	Service   *sale.Service
	// Publisher is optional.
	Publisher sale.Publisher
	Meter     metric.MeterProvider
	Tracer    trace.TracerProvider
	Now       func() time.Time
}

// Sales implements the sale use cases: load, apply domain rules, persist,
// then publish. Publishing happens after the write and its failure is only
// logged and counted.
type Sales struct {
	sales     sale.Repository
	products  product.Repository
	customers customer.Repository
	branches  branch.Repository
	service   *sale.Service
	canUpdate sale.UpdateAllowedSpecification
	publisher sale.Publisher
	now       func() time.Time

	tracer       trace.Tracer
	created      metric.Int64Counter
	updated      metric.Int64Counter
	cancelled    metric.Int64Counter
	eventsFailed metric.Int64Counter
}

// New creates Sales.
func New(d Deps) (*Sales, error) {
	if d.Service == nil {
		d.Service = sale.NewService()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	meter := d.Meter.Meter(instrumentation)
	s := &Sales{
		sales:     d.Sales,
		products:  d.Products,
		customers: d.Customers,
		branches:  d.Branches,
		service:   d.Service,
		publisher: d.Publisher,
		now:       d.Now,
		tracer:    d.Tracer.Tracer(instrumentation),
	}

	var err error
	if s.created, err = meter.Int64Counter("sales.created", metric.WithDescription("Sales created")); err != nil {
		return nil, errors.Wrap(err, "sales.created counter")
	}
	if s.updated, err = meter.Int64Counter("sales.updated", metric.WithDescription("Sales updated")); err != nil {
		return nil, errors.Wrap(err, "sales.updated counter")
	}
	if s.cancelled, err = meter.Int64Counter("sales.cancelled", metric.WithDescription("Sales cancelled")); err != nil {
		return nil, errors.Wrap(err, "sales.cancelled counter")
	}
	if s.eventsFailed, err = meter.Int64Counter("sales.events.failed", metric.WithDescription("Sale events that failed to publish")); err != nil {
		return nil, errors.Wrap(err, "sales.events.failed counter")
	}
	return s, nil
}

// Create creates and persists a sale.
func (s *Sales) Create(ctx context.Context, in CreateInput) (_ *sale.Sale, rerr error) {
	ctx, span := s.tracer.Start(ctx, "sales.Create")
	defer func() { endSpan(span, rerr) }()

	cust, br, lines, err := s.lookup(ctx, in.CustomerID, in.BranchID, in.Items)
	if err != nil {
		return nil, err
	}
	limit := s.service.Limit()
	if err := limit.CheckRequest(lines); err != nil {
		return nil, err
	}

	sl, err := s.service.CreateSale(cust, br, in.Number)
	if err != nil {
		return nil, err
	}
	if err := s.service.AddItemsToSale(sl, lines); err != nil {
		return nil, err
	}
	if err := limit.Check(sl); err != nil {
		return nil, err
	}

	if err := s.sales.Create(ctx, sl); err != nil {
		return nil, errors.Wrap(err, "create sale")
	}
	span.SetAttributes(attribute.String("sale.id", sl.ID().String()))

	s.created.Add(ctx, 1)
	s.publish(ctx, sale.NewEvent(sale.EventCreated, sl, s.now()))
	return sl, nil
}

// Get returns a sale by id.
func (s *Sales) Get(ctx context.Context, id uuid.UUID) (_ *sale.Sale, rerr error) {
	ctx, span := s.tracer.Start(ctx, "sales.Get", trace.WithAttributes(attribute.String("sale.id", id.String())))
	defer func() { endSpan(span, rerr) }()

	return s.sales.Get(ctx, id)
}

// List returns a page of sales, newest first.
func (s *Sales) List(ctx context.Context, in ListInput) (_ *ListResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "sales.List")
	defer func() { endSpan(span, rerr) }()

	status := sale.Status(in.Status)
	if status != "" && !status.Valid() {
		return nil, errors.Wrapf(sale.ErrInvalidArgument, "unknown status %q", in.Status)
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	offset := max(in.Offset, 0)

	sales, total, err := s.sales.List(ctx, sale.ListParams{Limit: limit, Offset: offset, Status: status})
	if err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	return &ListResult{Sales: sales, Total: total, Limit: limit, Offset: offset}, nil
}

// Update reassigns the customer and branch of a sale and optionally replaces
// its lines.
func (s *Sales) Update(ctx context.Context, in UpdateInput) (_ *sale.Sale, rerr error) {
	ctx, span := s.tracer.Start(ctx, "sales.Update", trace.WithAttributes(attribute.String("sale.id", in.ID.String())))
	defer func() { endSpan(span, rerr) }()

	sl, err := s.sales.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if !s.canUpdate.IsSatisfiedBy(sl) {
		return nil, errors.Wrapf(sale.ErrInvalidState, "sale %s is cancelled", sl.Number())
	}

	cust, br, lines, err := s.lookup(ctx, in.CustomerID, in.BranchID, in.Items)
	if err != nil {
		return nil, err
	}
	if in.Items == nil {
		lines = nil
	}

	limit := s.service.Limit()
	if err := limit.CheckRequest(lines); err != nil {
		return nil, err
	}
	if _, err := s.service.UpdateSale(sl, cust, br, lines); err != nil {
		return nil, err
	}
	if err := limit.Check(sl); err != nil {
		return nil, err
	}

	if err := s.sales.Update(ctx, sl); err != nil {
		return nil, errors.Wrap(err, "update sale")
	}

	s.updated.Add(ctx, 1)
	s.publish(ctx, sale.NewEvent(sale.EventModified, sl, s.now()))
	return sl, nil
}

// Cancel cancels a sale with an optional reason.
func (s *Sales) Cancel(ctx context.Context, id uuid.UUID, reason string) (_ *sale.Sale, rerr error) {
	ctx, span := s.tracer.Start(ctx, "sales.Cancel", trace.WithAttributes(attribute.String("sale.id", id.String())))
	defer func() { endSpan(span, rerr) }()

	sl, err := s.sales.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.service.CancelSale(sl, reason)
	if err != nil {
		return nil, err
	}
	if err := s.sales.Update(ctx, sl); err != nil {
		return nil, errors.Wrap(err, "update sale")
	}

	s.cancelled.Add(ctx, 1)
	s.publish(ctx, c.Event(sl))
	return sl, nil
}

// Delete removes a sale. No event is published.
func (s *Sales) Delete(ctx context.Context, id uuid.UUID) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "sales.Delete", trace.WithAttributes(attribute.String("sale.id", id.String())))
	defer func() { endSpan(span, rerr) }()

	return s.sales.Delete(ctx, id)
}

// lookup fetches the customer, the branch and the requested products
// concurrently and resolves items into domain lines.
func (s *Sales) lookup(ctx context.Context, customerID, branchID uuid.UUID, items []LineInput) (
	cust, br sale.Party, lines []sale.Line, err error,
) {
	if customerID == uuid.Nil {
		return cust, br, nil, errors.Wrap(sale.ErrInvalidArgument, "customer id is required")
	}
	if branchID == uuid.Nil {
		return cust, br, nil, errors.Wrap(sale.ErrInvalidArgument, "branch id is required")
	}

	var (
		c        *customer.Customer
		b        *branch.Branch
		products []product.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c, err = s.customers.GetByID(gctx, customerID)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.branches.GetByID(gctx, branchID)
		return err
	})
	if len(items) > 0 {
		ids := make([]uuid.UUID, len(items))
		for i, it := range items {
			ids[i] = it.ProductID
		}
		g.Go(func() error {
			var err error
			products, err = s.products.GetByIDs(gctx, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return cust, br, nil, err
	}

	byID := make(map[uuid.UUID]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	var missing []uuid.UUID
	lines = make([]sale.Line, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			if !slices.Contains(missing, it.ProductID) {
				missing = append(missing, it.ProductID)
			}
			continue
		}
		lines = append(lines, sale.Line{Product: p, Quantity: it.Quantity})
	}
	if len(missing) > 0 {
		return cust, br, nil, &MissingProductsError{IDs: missing}
	}

	return sale.Party{ID: c.ID, Name: c.Name}, sale.Party{ID: b.ID, Name: b.Name}, lines, nil
}

func (s *Sales) publish(ctx context.Context, ev sale.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.eventsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(ev.Type))))
		zctx.From(ctx).Warn("Publish sale event",
			zap.String("event_type", string(ev.Type)),
			zap.Stringer("sale_id", ev.Sale.ID),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
