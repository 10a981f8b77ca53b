package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"pairchat/contract"
	"pairchat/domain/event"
)

// HealthMonitoringWorker samples the server process on a fixed
// interval: CPU and RAM via gopsutil, goroutine count, online
// identities, and the fill level of the event channel. Pure telemetry,
// never touches domain state.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	events         chan event.DomainEvent
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, registry contract.IRegistry,
	events chan event.DomainEvent, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		registry:       registry,
		events:         events,
		metricInterval: metricInterval,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(proc)
		}
	}
}

func (w *HealthMonitoringWorker) sample(proc *process.Process) {
	cpu, err := proc.CPUPercent()
	if err != nil {
		w.log.Debug("Error while reading process cpu usage", "err", err)
		return
	}
	ram, err := proc.MemoryPercent()
	if err != nil {
		w.log.Debug("Error while reading process ram usage", "err", err)
		return
	}

	w.log.Info("telemetry: server health",
		"cpu_percent", cpu,
		"ram_percent", ram,
		"goroutines", goruntime.NumGoroutine(),
		"online_users", len(w.registry.Snapshot()),
		"event_backlog", len(w.events),
		"event_capacity", cap(w.events),
	)
}
