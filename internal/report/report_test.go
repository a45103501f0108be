package report

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haskel/variantlab/internal/experiment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() *experiment.RunResult {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &experiment.RunResult{
		RunID:      "0b6f8f4e-1111-2222-3333-444455556666",
		Name:       "unet-vs-attention",
		Mode:       experiment.ModeFull,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Minute),
		Dispatch:   "concurrent",
		Split:      experiment.SplitSizes{Train: 151, Validation: 33, Test: 33},
		Models: map[experiment.Variant]experiment.ModelHandle{
			experiment.VariantA: {Variant: experiment.VariantA, URI: "file:///m/a.pt", Name: "unet-vs-attention-A"},
			experiment.VariantB: {Variant: experiment.VariantB, URI: "file:///m/b.pt"},
		},
		Metrics: map[experiment.Variant]experiment.MetricsSet{
			experiment.VariantA: {Variant: experiment.VariantA, Metrics: map[string]experiment.Distribution{
				"dice": {Mean: 0.81, StdDev: 0.05},
			}},
			experiment.VariantB: {Variant: experiment.VariantB, Metrics: map[string]experiment.Distribution{
				"dice": {Mean: 0.77, StdDev: 0.06},
			}},
		},
		Comparisons: []experiment.ComparisonResult{{
			Metric: "dice", Significant: true, Direction: 1, PValue: 0.012,
			EffectSize: 0.71, MeanA: 0.81, MeanB: 0.77,
			Interpretation: "dice: A is significantly higher than B",
		}},
		Decision: &experiment.WinnerDecision{
			Winner:          experiment.VariantA,
			Confidence:      experiment.ConfidenceHigh,
			Summary:         "A won with 1 of 1 metrics (confidence: high)",
			Recommendations: []string{"Use variant A for its stronger metric profile"},
		},
		CrossValidation: &experiment.CVResult{
			Folds: 5,
			Means: map[experiment.Variant]map[string]float64{
				experiment.VariantA: {"dice": 0.80},
				experiment.VariantB: {"dice": 0.76},
			},
			StdDevs: map[experiment.Variant]map[string]float64{
				experiment.VariantA: {"dice": 0.02},
				experiment.VariantB: {"dice": 0.03},
			},
		},
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, testLogger())

	path, err := g.Render(context.Background(), sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-20260301-104200-0b6f8f4e.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# Experiment report: unet-vs-attention")
	assert.Contains(t, out, "**A won with 1 of 1 metrics (confidence: high)**")
	assert.Contains(t, out, "- Use variant A for its stronger metric profile")
	assert.Contains(t, out, "| dice | 0.8100 | 0.0500 | 0.7700 | 0.0600 | 0.0120 | 0.71 | yes |")
	assert.Contains(t, out, "## Cross-validation (5 folds)")
	assert.Contains(t, out, "| 151 / 33 / 33 |")
	assert.Contains(t, out, "| Duration | 42m0s |")
	assert.Contains(t, out, "- A: file:///m/a.pt (persisted as unet-vs-attention-A)")
}

func TestRender_MinimalResult(t *testing.T) {
	g := New(t.TempDir(), testLogger())

	path, err := g.Render(context.Background(), &experiment.RunResult{Name: "bare", Mode: experiment.ModeQuick, QuickTest: true})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "quick (quick test)")
	assert.NotContains(t, string(data), "## Decision")
	assert.NotContains(t, string(data), "## Cross-validation")
}

func TestRender_Errors(t *testing.T) {
	g := New(t.TempDir(), testLogger())

	_, err := g.Render(context.Background(), nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Render(ctx, sampleResult())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderFallback(t *testing.T) {
	g := New(t.TempDir(), testLogger())

	path, err := g.RenderFallback(context.Background(), sampleResult())
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fr fallbackReport
	require.NoError(t, json.Unmarshal(data, &fr))
	assert.Equal(t, "A won with 1 of 1 metrics (confidence: high)", fr.Summary)
	assert.InDelta(t, 0.81, fr.Metrics[experiment.VariantA]["dice"], 1e-9)
	assert.InDelta(t, 0.77, fr.Metrics[experiment.VariantB]["dice"], 1e-9)
}

func TestRenderFallback_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	g := New(file, testLogger())
	_, err := g.RenderFallback(context.Background(), sampleResult())
	assert.Error(t, err)
}
