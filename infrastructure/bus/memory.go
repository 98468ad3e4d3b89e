// Package bus provides the event transports that decouple vote writes
// from reputation recomputation: an in-process synchronous bus and a
// Redis pub/sub bus for multi-process deployments.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.EventBus = (*InProcessBus)(nil)

// InProcessBus dispatches rating-changed events synchronously to every
// subscribed handler within the publishing goroutine. A handler panic is
// recovered and logged so one listener can never poison the vote write
// or its sibling listeners.
type InProcessBus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []func(ctx context.Context, event domain.RatingChangedEvent)
}

// NewInProcessBus creates an empty synchronous bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{logger: logger}
}

// Publish delivers the event to every handler in subscription order.
// It never returns an error: the in-process transport cannot fail, and
// handler outcomes are deliberately invisible to the publisher.
func (b *InProcessBus) Publish(ctx context.Context, event domain.RatingChangedEvent) error {
	b.mu.RLock()
	handlers := make([]func(context.Context, domain.RatingChangedEvent), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, handler, event)
	}
	return nil
}

func (b *InProcessBus) dispatch(ctx context.Context, handler func(context.Context, domain.RatingChangedEvent), event domain.RatingChangedEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("rating-changed handler panicked",
				"item", event.ItemID, "panic", r)
		}
	}()
	handler(ctx, event)
}

// Subscribe registers a handler invoked for every published event.
func (b *InProcessBus) Subscribe(handler func(ctx context.Context, event domain.RatingChangedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}
