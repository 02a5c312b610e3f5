package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/xenking/sales-service/internal/domain/sale"
)

// StreamAdder is the subset of the Redis client used by RedisPublisher.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisConfig configures RedisPublisher.
type RedisConfig struct {
	Stream string
	// MaxLen caps the stream length (approximate trimming). Zero disables it.
	MaxLen int64
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// RedisPublisher appends sale events to a Redis stream. Calls go through a
// circuit breaker so a down Redis fails fast instead of slowing every
// request.
type RedisPublisher struct {
	client  StreamAdder
	stream  string
	maxLen  int64
	breaker *gobreaker.CircuitBreaker[string]
}

var (
	_ sale.Publisher = (*RedisPublisher)(nil)
	_ Handler        = (*RedisPublisher)(nil)
)

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(client StreamAdder, cfg RedisConfig) *RedisPublisher {
	if cfg.Stream == "" {
		cfg.Stream = "sales.events"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	threshold := cfg.FailureThreshold

	return &RedisPublisher{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "redis:" + cfg.Stream,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
}

// State returns the current breaker state.
func (p *RedisPublisher) State() gobreaker.State { return p.breaker.State() }

// Handles implements Handler.
func (p *RedisPublisher) Handles() []sale.EventType {
	return []sale.EventType{sale.EventCreated, sale.EventModified, sale.EventCancelled}
}

// Handle implements Handler.
func (p *RedisPublisher) Handle(ctx context.Context, ev sale.Event) error {
	return p.Publish(ctx, ev)
}

// Publish implements sale.Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, ev sale.Event) error {
	_, err := p.breaker.Execute(func() (string, error) {
		return p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: map[string]any{
				"id":      ev.ID.String(),
				"type":    string(ev.Type),
				"sale_id": ev.Sale.ID.String(),
				"payload": Encode(ev),
			},
		}).Result()
	})
	if err != nil {
		return errors.Wrapf(err, "xadd %s to %s", ev.Type, p.stream)
	}
	return nil
}
