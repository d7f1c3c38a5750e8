// Package events is the in-process pub/sub seam between the expense
// lifecycle and its side effects. Approvals and rejections publish here;
// consumers such as notifications subscribe without the services knowing
// about them.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

// BaseEvent carries the envelope fields every event shares. Concrete
// events embed it and add their typed fields on top.
type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	logger      *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]Handler),
		logger:      logger,
	}
}

func (b *EventBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	count := len(b.subscribers[eventType])
	b.mu.Unlock()

	b.logger.Info("event subscriber registered", "event_type", eventType, "subscribers", count)
}

func (b *EventBus) subscribersFor(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribers[eventType]
}

// Publish dispatches to each subscriber in its own goroutine. Subscriber
// failures are logged and never reach the publisher: a lost notification
// must not fail the approval that triggered it.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	handlers := b.subscribersFor(event.EventType())
	if len(handlers) == 0 {
		b.logger.Debug("event has no subscribers", "event_type", event.EventType())
		return nil
	}

	b.logger.Info("publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"subscribers", len(handlers))

	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				b.logger.Error("event subscriber failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(handler)
	}
	return nil
}

// PublishSync runs subscribers inline and stops at the first failure.
// Used where the caller needs delivery confirmed, and in tests.
func (b *EventBus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.subscribersFor(event.EventType())
	if len(handlers) == 0 {
		b.logger.Debug("event has no subscribers", "event_type", event.EventType())
		return nil
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("event subscriber failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			return fmt.Errorf("subscriber failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}
