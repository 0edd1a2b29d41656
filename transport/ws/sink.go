package ws

import (
	"context"

	"chatorbit/domain/event"
)

// Sink buffers fan-out pushes for one connection. The write pump drains
// it; a full buffer drops the push rather than stalling the fan-out
// worker behind one slow client.
type Sink struct {
	Events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fan-out worker.
// Redirects the event to the connection owning this sink; the write pump
// takes it from there.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Backpressure: the slow client misses the live push only.
		return nil
	}
}
