package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"chatorbit/contract"
	"chatorbit/domain/event"
)

var _ contract.Worker = (*RuntimeStatsWorker)(nil)

// RuntimeStatsWorker samples the server process itself (CPU, RSS, heap,
// goroutines) and feeds the telemetry channel at a fixed interval.
type RuntimeStatsWorker struct {
	log            *slog.Logger
	telemetryChan  chan event.Event
	metricInterval time.Duration
}

func NewRuntimeStatsWorker(log *slog.Logger, telemetryChan chan event.Event, metricInterval time.Duration) *RuntimeStatsWorker {
	return &RuntimeStatsWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w *RuntimeStatsWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping runtime stats")
			return nil
		case <-ticker.C:
			stats := w.sample(proc)
			select {
			case w.telemetryChan <- event.Event{
				Type:      event.RuntimeStatsType,
				CreatedAt: time.Now().UTC(),
				Payload:   stats,
			}:
			default:
				w.log.Debug("Observability telemetry stats lost")
			}
		}
	}
}

func (w *RuntimeStatsWorker) sample(proc *process.Process) event.RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := event.RuntimeStats{
		Goroutines: runtime.NumGoroutine(),
		AllocMb:    mem.Alloc / 1024 / 1024,
		NumGC:      mem.NumGC,
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CpuPercent = cpu
	} else {
		w.log.Debug("Error while reading process cpu usage", "err", err)
	}
	if ram, err := proc.MemoryPercent(); err == nil {
		stats.RamPercent = ram
	} else {
		w.log.Debug("Error while reading process ram usage", "err", err)
	}
	return stats
}
