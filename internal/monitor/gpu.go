package monitor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const gpuQuery = "index,name,utilization.gpu,temperature.gpu,memory.used,memory.total"

// QueryFunc runs the GPU query and returns its CSV output.
type QueryFunc func(ctx context.Context) ([]byte, error)

// GPUMonitor collects NVIDIA GPU metrics through nvidia-smi.
// Hosts without the tool report an empty slice.
type GPUMonitor struct {
	query QueryFunc
}

func NewGPUMonitor() *GPUMonitor {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return &GPUMonitor{}
	}

	return NewGPUMonitorWithQuery(func(ctx context.Context) ([]byte, error) {
		cmd := exec.CommandContext(ctx, path,
			"--query-gpu="+gpuQuery, "--format=csv,noheader,nounits")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("nvidia-smi: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return out, nil
	})
}

func NewGPUMonitorWithQuery(q QueryFunc) *GPUMonitor {
	return &GPUMonitor{query: q}
}

func (m *GPUMonitor) Name() string {
	return "gpu"
}

func (m *GPUMonitor) Available() bool {
	return m.query != nil
}

func (m *GPUMonitor) Collect(ctx context.Context) (any, error) {
	if m.query == nil {
		return []GPUState{}, nil
	}

	out, err := m.query(ctx)
	if err != nil {
		return nil, err
	}

	return parseGPUQuery(out)
}

func parseGPUQuery(out []byte) ([]GPUState, error) {
	gpus := []GPUState{}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 6 {
			return nil, fmt.Errorf("unexpected nvidia-smi line: %q", line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("gpu index %q: %w", fields[0], err)
		}

		gpus = append(gpus, GPUState{
			Index:          idx,
			Name:           fields[1],
			UsagePercent:   parseFloatOrZero(fields[2]),
			Temperature:    int(parseFloatOrZero(fields[3])),
			VRAMUsedBytes:  uint64(parseFloatOrZero(fields[4])) * 1024 * 1024,
			VRAMTotalBytes: uint64(parseFloatOrZero(fields[5])) * 1024 * 1024,
		})
	}

	return gpus, nil
}

// nvidia-smi prints "[N/A]" for unsupported fields.
func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
