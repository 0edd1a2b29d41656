package event

import (
	"log/slog"
	"time"
)

// LatencyHandler measures the lead time between a message's send timestamp
// and the moment its delivery event reached telemetry.
type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(e Event) {
	payload, ok := e.Payload.(MessageDelivered)
	if !ok {
		return
	}
	leadTime := time.Since(payload.Message.SentAt)

	h.log.Debug("telemetry: delivery latency",
		"sender", payload.Message.Sender,
		"receiver", payload.Message.Receiver,
		"lead_time_ms", leadTime.Milliseconds(),
	)

	if leadTime > h.latencyThreshold {
		h.log.Warn("high delivery latency detected", "lead_time", leadTime)
	}
}
