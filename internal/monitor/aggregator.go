package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Aggregator merges monitor output into a SystemState. It can sample on
// demand with Collect or keep a periodically refreshed state via Start.
type Aggregator struct {
	monitors []Monitor
	state    *SystemState
	interval time.Duration
	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

func NewAggregator(monitors []Monitor, interval time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		monitors: monitors,
		state:    &SystemState{},
		interval: interval,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// DefaultMonitors returns the host monitors used for dispatch decisions.
func DefaultMonitors(paths []string) []Monitor {
	return []Monitor{
		NewCPUMonitor(),
		NewMemoryMonitor(),
		NewStorageMonitor(paths),
		NewGPUMonitor(),
	}
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.Collect(ctx)

	go a.runLoop(ctx)

	a.logger.Info("resource sampler started", "interval", a.interval, "monitors", len(a.monitors))
	return nil
}

func (a *Aggregator) Stop() error {
	a.stopOnce.Do(func() {
		close(a.done)
		a.logger.Info("resource sampler stopped")
	})
	return nil
}

func (a *Aggregator) GetState() *SystemState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

func (a *Aggregator) GetStateJSON() ([]byte, error) {
	state := a.GetState()
	return json.Marshal(state)
}

func (a *Aggregator) runLoop(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Collect(ctx)
		case <-ctx.Done():
			return
		case <-a.done:
			return
		}
	}
}

// Collect samples every monitor once, stores the result and returns a copy.
// Failing monitors are logged and leave their section zeroed.
func (a *Aggregator) Collect(ctx context.Context) *SystemState {
	newState := &SystemState{
		Timestamp: time.Now(),
		GPUs:      []GPUState{},
		Storage:   make(StorageState),
	}

	for _, m := range a.monitors {
		data, err := m.Collect(ctx)
		if err != nil {
			a.logger.Warn("monitor collection failed",
				"monitor", m.Name(),
				"error", err,
			)
			continue
		}

		switch m.Name() {
		case "cpu":
			if cpuState, ok := data.(*CPUState); ok {
				newState.CPU = *cpuState
			}
		case "memory":
			if memState, ok := data.(*MemoryState); ok {
				newState.Memory = *memState
			}
		case "storage":
			if storageState, ok := data.(StorageState); ok {
				newState.Storage = storageState
			}
		case "gpu":
			if gpuStates, ok := data.([]GPUState); ok {
				newState.GPUs = gpuStates
			}
		}
	}

	a.mu.Lock()
	a.state = newState
	a.mu.Unlock()

	return newState.Clone()
}
