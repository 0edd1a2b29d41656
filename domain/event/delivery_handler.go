package event

import (
	"log/slog"
)

// DeliveryCountHandler tallies routed messages, split by delivery path.
// Useful for observability dashboards and for spotting an offline-queue
// buildup when receivers stop coming back online.
type DeliveryCountHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewDeliveryCountHandler(log *slog.Logger, counter *Counter) *DeliveryCountHandler {
	return &DeliveryCountHandler{log: log, counter: counter}
}

func (h *DeliveryCountHandler) Handle(e Event) {
	switch e.Type {
	case MessageDeliveredType, OfflineQueuedType, SessionOpenedType:
		h.counter.Increment(e.Type)
	}
}
