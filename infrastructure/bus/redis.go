package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// DefaultChannel is the Redis pub/sub channel rating-changed events
// travel on when no channel is configured.
const DefaultChannel = "merit:rating-changed"

// Verify interface compliance at compile time.
var _ ports.EventBus = (*RedisBus)(nil)

// RedisBus carries rating-changed events over Redis pub/sub so
// reputation listeners in other processes observe vote changes. Events
// are JSON encoded. Delivery keeps Redis pub/sub semantics: fire and
// forget, no replay for subscribers that were offline.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers []func(ctx context.Context, event domain.RatingChangedEvent)

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRedisBus creates a bus over the given client. An empty channel
// falls back to DefaultChannel.
func NewRedisBus(client *redis.Client, channel string, logger *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Publish JSON-encodes the event and publishes it on the bus channel.
func (b *RedisBus) Publish(ctx context.Context, event domain.RatingChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode rating-changed event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish rating-changed event: %w", err)
	}
	return nil
}

// Subscribe registers a handler and, on first use, starts the receive
// loop that feeds handlers from the Redis subscription.
func (b *RedisBus) Subscribe(handler func(ctx context.Context, event domain.RatingChangedEvent)) {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()

	b.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		sub := b.client.Subscribe(ctx, b.channel)
		go b.receive(ctx, sub)
	})
}

// Close stops the receive loop and waits for it to drain.
func (b *RedisBus) Close() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	<-b.done
	return nil
}

func (b *RedisBus) receive(ctx context.Context, sub *redis.PubSub) {
	defer close(b.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.deliver(ctx, msg.Payload)
		}
	}
}

func (b *RedisBus) deliver(ctx context.Context, payload string) {
	var event domain.RatingChangedEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Error("discarding undecodable rating-changed event", "error", err)
		return
	}

	b.mu.RLock()
	handlers := make([]func(context.Context, domain.RatingChangedEvent), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatchOne(ctx, handler, event)
	}
}

func (b *RedisBus) dispatchOne(ctx context.Context, handler func(context.Context, domain.RatingChangedEvent), event domain.RatingChangedEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("rating-changed handler panicked",
				"item", event.ItemID, "panic", r)
		}
	}()
	handler(ctx, event)
}
