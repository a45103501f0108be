package monitor

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/shirou/gopsutil/v4/disk"
)

// StorageMonitor reports free space for the directories a run writes into.
// Directories created lazily by the run are measured on their nearest
// existing parent, keyed by the configured path.
type StorageMonitor struct {
	paths []string
}

func NewStorageMonitor(paths []string) *StorageMonitor {
	var clean []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if !slices.Contains(clean, p) {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		clean = []string{"/"}
	}
	return &StorageMonitor{paths: clean}
}

func (m *StorageMonitor) Name() string {
	return "storage"
}

func (m *StorageMonitor) Collect(ctx context.Context) (any, error) {
	state := make(StorageState, len(m.paths))

	for _, path := range m.paths {
		target, ok := existingAncestor(path)
		if !ok {
			continue
		}

		usage, err := disk.UsageWithContext(ctx, target)
		if err != nil {
			continue
		}

		state[path] = DiskState{
			UsedBytes:    usage.Used,
			FreeBytes:    usage.Free,
			TotalBytes:   usage.Total,
			UsagePercent: usage.UsedPercent,
		}
	}

	return state, nil
}

func existingAncestor(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}
