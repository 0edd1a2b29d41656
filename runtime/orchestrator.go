// Package runtime wires the delivery pipeline together: buffered event
// channels, the fan-out worker, telemetry, and their supervision. It
// orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"chatorbit/contract"
	"chatorbit/domain/event"
	"chatorbit/runtime/workers"
)

type Orchestrator struct {
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        contract.IPresence
	domainEvents    chan event.DomainEvent
	telemetryEvents chan event.Event
	permanentSinks  []contract.EventSink
	handlers        []event.Handler
	sinkTimeout     time.Duration
	metricInterval  time.Duration
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry contract.IPresence,
	telemetryEvents chan event.Event,
	bufferSize int,
	sinkTimeout, metricInterval time.Duration,
) *Orchestrator {
	return &Orchestrator{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		domainEvents:    make(chan event.DomainEvent, bufferSize),
		telemetryEvents: telemetryEvents,
		sinkTimeout:     sinkTimeout,
		metricInterval:  metricInterval,
	}
}

// Add registers permanent sinks consulted on every fan-out, regardless of
// the event's recipients.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Handle registers telemetry handlers run by the telemetry worker.
func (o *Orchestrator) Handle(handlers ...event.Handler) {
	o.handlers = append(o.handlers, handlers...)
}

// Publish enqueues a domain event for asynchronous fan-out. A full channel
// drops the event: the durable write already happened in the service, only
// the live push is lost.
func (o *Orchestrator) Publish(evt event.DomainEvent) {
	select {
	case o.domainEvents <- evt:
	default:
		o.log.Warn("Domain event channel full, dropping live push")
		o.notifySaturation()
	}
}

func (o *Orchestrator) notifySaturation() {
	select {
	case o.telemetryEvents <- event.Event{
		Type:      event.ChannelCapacityType,
		CreatedAt: time.Now().UTC(),
		Payload: event.ChannelCapacity{
			ChannelName: "domainEvents",
			Capacity:    cap(o.domainEvents),
			Length:      len(o.domainEvents),
		},
	}:
	default:
	}
}

// Start registers all pipeline workers with the supervisor and launches
// supervision in the background. Callers stop the pipeline either through
// ctx or Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanout := workers.NewEventFanout(o.log, o.registry, o.domainEvents, o.telemetryEvents, o.sinkTimeout).
		Add(o.permanentSinks...)

	o.supervisor.Add(fanout)
	o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.telemetryEvents, o.handlers))
	o.supervisor.Add(workers.NewRuntimeStatsWorker(o.log, o.telemetryEvents, o.metricInterval))

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the pipeline by canceling the
// supervised context; workers drain on their own.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
