package workers

import (
	"context"
	"log/slog"
	"time"

	"chatorbit/contract"
	"chatorbit/domain/event"
)

// Ensure *EventFanout implements the contract.Worker interface at compile time.
var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers domain events to the live connections each event
// names, resolved through the presence registry, plus the permanent sinks
// (projection, telemetry).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across connections, durability, or retries. Durability belongs
// to the router's store writes, which happen before the event is published;
// a push into a stale or saturated sink is a harmless no-op.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IPresence
	domainEvents   chan event.DomainEvent
	telemetryChan  chan event.Event
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.IPresence,
	domainEvents chan event.DomainEvent,
	telemetryChan chan event.Event,
	sinkTimeout time.Duration,
) *EventFanout {
	return &EventFanout{
		log:           log,
		registry:      registry,
		domainEvents:  domainEvents,
		telemetryChan: telemetryChan,
		sinkTimeout:   sinkTimeout,
	}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		case evt, ok := <-w.domainEvents:
			if !ok {
				w.log.Debug("Domain event channel closed")
				return nil
			}
			w.Fanout(ctx, evt)
			w.notifyTelemetry(evt)
		}
	}
}

// Fanout pushes one event into every targeted live sink and every permanent
// sink. A nil recipient list means broadcast to all live connections; an
// empty list means permanent sinks only.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var live []contract.EventSink
	recipients := evt.Recipients()
	if recipients == nil {
		live = w.registry.Sinks()
	} else {
		for _, uid := range recipients {
			sink, ok := w.registry.SinkFor(uid)
			if !ok {
				// Offline or stale recipient: the message stays durable,
				// the push is skipped.
				w.log.Debug("No live sink for recipient", "uid", uid)
				continue
			}
			live = append(live, sink)
		}
	}

	for _, sink := range append(live, w.permanentSinks...) {
		w.consume(ctx, sink, evt)
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Sink rejected event", "error", err)
	}
}

func (w *EventFanout) notifyTelemetry(evt event.DomainEvent) {
	technical, ok := toTechnical(evt)
	if !ok {
		return
	}
	select {
	case w.telemetryChan <- technical:
	default:
		w.log.Debug("Observability telemetry event lost")
	}
}

func toTechnical(evt event.DomainEvent) (event.Event, bool) {
	now := time.Now().UTC()
	switch e := evt.(type) {
	case event.MessageDelivered:
		return event.Event{Type: event.MessageDeliveredType, CreatedAt: now, Payload: e}, true
	case event.OfflineQueued:
		return event.Event{Type: event.OfflineQueuedType, CreatedAt: now, Payload: e}, true
	case event.SessionHistory:
		return event.Event{Type: event.SessionOpenedType, CreatedAt: now, Payload: e}, true
	default:
		return event.Event{}, false
	}
}
