// Package events dispatches sale events to in-process handlers and forwards
// them to a Redis stream.
package events

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xenking/sales-service/internal/domain/sale"
)

// Handler consumes sale events of the types it handles.
type Handler interface {
	Handles() []sale.EventType
	Handle(ctx context.Context, ev sale.Event) error
}

// Bus is a synchronous in-process event bus. Handlers run in registration
// order; a failing handler does not stop the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[sale.EventType][]Handler
}

var _ sale.Publisher = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[sale.EventType][]Handler)}
}

// Register subscribes h to the events it handles.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range h.Handles() {
		b.handlers[t] = append(b.handlers[t], h)
	}
}

// Publish dispatches ev to every handler registered for its type. Handler
// errors are logged and returned combined.
func (b *Bus) Publish(ctx context.Context, ev sale.Event) error {
	b.mu.RLock()
	handlers := b.handlers[ev.Type]
	b.mu.RUnlock()

	lg := zctx.From(ctx).With(
		zap.String("event_type", string(ev.Type)),
		zap.Stringer("event_id", ev.ID),
	)
	if len(handlers) == 0 {
		lg.Debug("No handlers registered for event")
		return nil
	}

	var errs error
	for _, h := range handlers {
		if err := h.Handle(ctx, ev); err != nil {
			lg.Error("Event handler failed", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return errors.Wrapf(errs, "dispatch %s", ev.Type)
	}
	return nil
}
