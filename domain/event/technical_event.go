package event

import (
	"sync"
	"time"
)

type Type string

const (
	MessageDeliveredType    Type = "MESSAGE_DELIVERED"
	OfflineQueuedType       Type = "OFFLINE_QUEUED"
	SessionOpenedType       Type = "SESSION_OPENED"
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	RuntimeStatsType        Type = "RUNTIME_STATS"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
)

// Event is the technical/telemetry envelope, kept apart from DomainEvent so
// that observability never leaks into the delivery path.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type RuntimeStats struct {
	Goroutines int
	CpuPercent float64
	RamPercent float32
	AllocMb    uint64
	NumGC      uint32
}

// Counter accumulates per-type event counts for the telemetry handlers.
type Counter struct {
	mu     sync.Mutex
	counts map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}
