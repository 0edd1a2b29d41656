package event

import (
	"log/slog"

	"chatorbit/errors"
)

// WorkerRestartedHandler surfaces supervisor restarts: a worker restarting
// in a loop is the first symptom of a poisoned event in the pipeline.
type WorkerRestartedHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewWorkerRestartedHandler(log *slog.Logger, counter *Counter) *WorkerRestartedHandler {
	return &WorkerRestartedHandler{log: log, counter: counter}
}

func (h *WorkerRestartedHandler) Handle(e Event) {
	if e.Type != RestartedAfterPanicType {
		return
	}
	payload, ok := e.Payload.(WorkerRestartedAfterPanic)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error())
		return
	}
	h.counter.Increment(RestartedAfterPanicType)
	h.log.Warn("worker restarted after panic", "name", payload.WorkerName)
}
