// Package resource inspects the host before the training stage and shrinks
// datasets for quick runs.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/haskel/variantlab/internal/monitor"
)

// Sampler returns a fresh view of host resources.
type Sampler interface {
	Collect(ctx context.Context) *monitor.SystemState
}

// Snapshot is what the dispatcher needs to pick a strategy.
type Snapshot struct {
	SubstrateAvailable  bool      `json:"substrate_available"`
	LogicalCores        int       `json:"logical_cores"`
	CPUPercent          float64   `json:"cpu_percent"`
	MemoryHeadroomBytes uint64    `json:"memory_headroom_bytes"`
	GPUCount            int       `json:"gpu_count"`
	Reasons             []Reason  `json:"reasons,omitempty"`
	TakenAt             time.Time `json:"taken_at"`
}

type Optimizer struct {
	sampler Sampler
	checker *ThresholdChecker
	logger  *slog.Logger
}

func NewOptimizer(sampler Sampler, thresholds Thresholds, logger *slog.Logger) *Optimizer {
	return &Optimizer{
		sampler: sampler,
		checker: NewThresholdChecker(thresholds),
		logger:  logger,
	}
}

// Snapshot samples the host once and classifies it.
func (o *Optimizer) Snapshot(ctx context.Context) Snapshot {
	state := o.sampler.Collect(ctx)
	reasons := o.checker.Check(state)

	snap := Snapshot{
		SubstrateAvailable:  true,
		LogicalCores:        state.CPU.LogicalCores,
		CPUPercent:          state.CPU.UsagePercent,
		MemoryHeadroomBytes: state.Memory.AvailableBytes,
		GPUCount:            len(state.GPUs),
		Reasons:             reasons,
		TakenAt:             state.Timestamp,
	}
	for _, r := range reasons {
		if r.Blocking() {
			snap.SubstrateAvailable = false
		}
	}

	o.logger.Debug("resource snapshot",
		"cores", snap.LogicalCores,
		"cpu_percent", snap.CPUPercent,
		"memory_headroom_mb", snap.MemoryHeadroomBytes/(1024*1024),
		"gpus", snap.GPUCount,
		"substrate_available", snap.SubstrateAvailable,
		"reasons", reasons,
	)

	return snap
}

// Downsample picks at most limit sample/label pairs using a seeded random
// selection. Pairs keep their original relative order. Inputs are never
// modified.
func Downsample(samples, labels []string, limit int, seed int64) ([]string, []string, error) {
	if len(samples) != len(labels) {
		return nil, nil, fmt.Errorf("samples and labels differ in length: %d vs %d", len(samples), len(labels))
	}
	if limit < 1 {
		return nil, nil, fmt.Errorf("sample cap must be at least 1, got %d", limit)
	}

	if len(samples) <= limit {
		return slices.Clone(samples), slices.Clone(labels), nil
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	idx := rng.Perm(len(samples))[:limit]
	slices.Sort(idx)

	outS := make([]string, limit)
	outL := make([]string, limit)
	for i, j := range idx {
		outS[i] = samples[j]
		outL[i] = labels[j]
	}

	return outS, outL, nil
}
