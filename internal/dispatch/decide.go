package dispatch

import "github.com/haskel/variantlab/internal/resource"

// Policy carries the configured limits for a dispatch decision.
type Policy struct {
	ParallelEnabled    bool
	MemoryPerTaskBytes uint64
	TaskCount          int
}

// Decide picks the concurrent strategy only when parallelism is enabled,
// the host can run tasks side by side and free memory covers every task.
func Decide(snap resource.Snapshot, p Policy) StrategyType {
	if !p.ParallelEnabled || !snap.SubstrateAvailable {
		return StrategySequential
	}

	if p.TaskCount < 1 {
		return StrategySequential
	}
	// divide rather than multiply so huge per-task sizes cannot wrap
	if snap.MemoryHeadroomBytes/uint64(p.TaskCount) < p.MemoryPerTaskBytes {
		return StrategySequential
	}

	return StrategyConcurrent
}
