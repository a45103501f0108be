package external

import (
	"context"
	"fmt"

	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/stats"
)

type EvaluateRequest struct {
	Op      string                 `json:"op"`
	Variant experiment.Variant     `json:"variant"`
	Model   experiment.ModelHandle `json:"model"`
	Test    experiment.Partition   `json:"test"`
	Metrics []string               `json:"metrics"`
}

// EvaluateResponse carries one value per test item for each metric.
type EvaluateResponse struct {
	Metrics map[string][]float64 `json:"metrics"`
}

// CommandEvaluator implements experiment.Evaluator.
type CommandEvaluator struct {
	runner  *Runner
	metrics []string
}

func NewCommandEvaluator(r *Runner, metrics []string) *CommandEvaluator {
	return &CommandEvaluator{runner: r, metrics: metrics}
}

func (e *CommandEvaluator) Evaluate(ctx context.Context, handle experiment.ModelHandle, test experiment.Partition) (experiment.MetricsSet, error) {
	var resp EvaluateResponse
	err := e.runner.Call(ctx, "evaluate", EvaluateRequest{
		Op:      "evaluate",
		Variant: handle.Variant,
		Model:   handle,
		Test:    test,
		Metrics: e.metrics,
	}, &resp)
	if err != nil {
		return experiment.MetricsSet{}, fmt.Errorf("evaluate variant %s: %w", handle.Variant, err)
	}

	set := experiment.MetricsSet{
		Variant: handle.Variant,
		Metrics: make(map[string]experiment.Distribution, len(e.metrics)),
	}
	for _, m := range e.metrics {
		values, ok := resp.Metrics[m]
		if !ok {
			return experiment.MetricsSet{}, fmt.Errorf("evaluate variant %s: metric %q missing from evaluator output", handle.Variant, m)
		}
		if len(values) != test.Len() {
			return experiment.MetricsSet{}, fmt.Errorf("evaluate variant %s: metric %q has %d values for %d test items",
				handle.Variant, m, len(values), test.Len())
		}
		set.Metrics[m] = stats.Describe(values)
	}

	return set, nil
}
