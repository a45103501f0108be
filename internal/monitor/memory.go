package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/mem"
)

type MemoryMonitor struct{}

func NewMemoryMonitor() *MemoryMonitor {
	return &MemoryMonitor{}
}

func (m *MemoryMonitor) Name() string {
	return "memory"
}

func (m *MemoryMonitor) Collect(ctx context.Context) (any, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &MemoryState{
		UsedBytes:      v.Used,
		AvailableBytes: v.Available,
		TotalBytes:     v.Total,
		UsagePercent:   v.UsedPercent,
	}, nil
}
