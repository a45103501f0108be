package resource

import (
	"github.com/haskel/variantlab/internal/monitor"
)

type Reason string

const (
	ReasonTooFewCores    Reason = "too_few_cores"
	ReasonCPUOverload    Reason = "cpu_overload"
	ReasonMemoryOverload Reason = "memory_overload"
	ReasonGPUOverload    Reason = "gpu_overload"
	ReasonStorageLow     Reason = "storage_low"
)

// Blocking reports whether the reason rules out concurrent execution.
func (r Reason) Blocking() bool {
	return r == ReasonTooFewCores || r == ReasonCPUOverload
}

type Thresholds struct {
	MinCores          int
	CPUCeilingPercent float64
	MemoryMaxPercent  float64
	GPUMaxPercent     float64
	MinFreeDiskBytes  uint64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCores:          2,
		CPUCeilingPercent: 85,
		MemoryMaxPercent:  90,
		GPUMaxPercent:     90,
		MinFreeDiskBytes:  1 << 30,
	}
}

type ThresholdChecker struct {
	thresholds Thresholds
}

func NewThresholdChecker(thresholds Thresholds) *ThresholdChecker {
	return &ThresholdChecker{thresholds: thresholds}
}

func (c *ThresholdChecker) Check(state *monitor.SystemState) []Reason {
	var reasons []Reason

	if state.CPU.LogicalCores < c.thresholds.MinCores {
		reasons = append(reasons, ReasonTooFewCores)
	}

	if state.CPU.UsagePercent > c.thresholds.CPUCeilingPercent {
		reasons = append(reasons, ReasonCPUOverload)
	}

	if state.Memory.UsagePercent > c.thresholds.MemoryMaxPercent {
		reasons = append(reasons, ReasonMemoryOverload)
	}

	for _, gpu := range state.GPUs {
		if gpu.UsagePercent > c.thresholds.GPUMaxPercent {
			reasons = append(reasons, ReasonGPUOverload)
			break
		}
	}

	for _, disk := range state.Storage {
		if disk.TotalBytes > 0 && disk.FreeBytes < c.thresholds.MinFreeDiskBytes {
			reasons = append(reasons, ReasonStorageLow)
			break
		}
	}

	return reasons
}
