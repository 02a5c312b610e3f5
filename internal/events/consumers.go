package events

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sales-service/internal/domain/sale"
)

// AuditLog writes a structured log line for every sale event.
type AuditLog struct{}

var _ Handler = AuditLog{}

// Handles implements Handler.
func (AuditLog) Handles() []sale.EventType {
	return []sale.EventType{sale.EventCreated, sale.EventModified, sale.EventCancelled}
}

// Handle implements Handler.
func (AuditLog) Handle(ctx context.Context, ev sale.Event) error {
	fields := []zap.Field{
		zap.Stringer("event_id", ev.ID),
		zap.Stringer("sale_id", ev.Sale.ID),
		zap.String("sale_number", ev.Sale.Number),
		zap.Stringer("customer_id", ev.Sale.Customer.ID),
		zap.Stringer("branch_id", ev.Sale.Branch.ID),
		zap.String("total", ev.Sale.Total.StringFixed(2)),
		zap.String("currency", ev.Sale.Currency),
		zap.Int("items", len(ev.Sale.Items)),
	}

	lg := zctx.From(ctx)
	switch ev.Type {
	case sale.EventCreated:
		lg.Info("Sale created", fields...)
	case sale.EventModified:
		lg.Info("Sale modified", append(fields, zap.String("status", string(ev.Sale.Status)))...)
	case sale.EventCancelled:
		lg.Info("Sale cancelled", append(fields, zap.String("reason", ev.Reason))...)
	}
	return nil
}
