// Package projection builds local read models from observed events.
// Handles ordering, deduplication, and bounded retention.
// Does not emit events or interact with transports directly.
package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"chatorbit/domain"
	"chatorbit/domain/event"
)

// Timeline is a permanent sink keeping the most recent deliveries in
// memory, deduplicated by message identifier. It backs the inspection
// surface and costs one bounded slice.
type Timeline struct {
	mu       sync.RWMutex
	limit    int
	seen     map[uuid.UUID]struct{}
	Messages []domain.Message
}

func NewTimeline(limit int) *Timeline {
	return &Timeline{
		limit: limit,
		seen:  make(map[uuid.UUID]struct{}),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	delivered, ok := e.(event.MessageDelivered)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.seen[delivered.Message.ID]; dup {
		return nil
	}
	t.seen[delivered.Message.ID] = struct{}{}
	t.Messages = append(t.Messages, delivered.Message)

	if t.limit > 0 && len(t.Messages) > t.limit {
		evicted := t.Messages[0]
		delete(t.seen, evicted.ID)
		t.Messages = t.Messages[1:]
	}
	return nil
}

// Recent returns a copy of the projected messages, oldest first.
func (t *Timeline) Recent() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.Message(nil), t.Messages...)
}
