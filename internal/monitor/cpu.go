package monitor

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
)

type CPUMonitor struct{}

func NewCPUMonitor() *CPUMonitor {
	return &CPUMonitor{}
}

func (m *CPUMonitor) Name() string {
	return "cpu"
}

func (m *CPUMonitor) Collect(ctx context.Context) (any, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}

	var overall float64
	if len(percentages) > 0 {
		overall = percentages[0]
	}

	corePercentages, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, err
	}

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores == 0 {
		cores = runtime.NumCPU()
	}

	// Load average is unavailable on some platforms; usage still applies.
	var load1 float64
	if avg, err := load.AvgWithContext(ctx); err == nil {
		load1 = avg.Load1
	}

	return &CPUState{
		UsagePercent: overall,
		LogicalCores: cores,
		Load1:        load1,
		Cores:        corePercentages,
	}, nil
}
