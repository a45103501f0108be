package estimate

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/storage"
)

func TestEstimator_DefaultAlpha(t *testing.T) {
	for _, a := range []float64{0, -1, 1.5} {
		if e := New(a); e.alpha != 0.3 {
			t.Errorf("alpha %v: expected default 0.3, got %f", a, e.alpha)
		}
	}
}

func TestEstimator_ObserveAndEstimate(t *testing.T) {
	e := New(0.5) // Use 0.5 for easier math

	d, learned := e.Estimate(experiment.StageModelTraining)
	if learned {
		t.Error("unseen stage should not be learned")
	}
	if d != DefaultDurations[experiment.StageModelTraining] {
		t.Errorf("expected default duration, got %v", d)
	}

	e.Observe(experiment.StageModelTraining, 10*time.Minute)
	d, learned = e.Estimate(experiment.StageModelTraining)
	if !learned || d != 10*time.Minute {
		t.Errorf("first observation should be used directly, got %v learned=%v", d, learned)
	}

	// With alpha=0.5: 0.5*20m + 0.5*10m = 15m
	e.Observe(experiment.StageModelTraining, 20*time.Minute)
	d, _ = e.Estimate(experiment.StageModelTraining)
	if d != 15*time.Minute {
		t.Errorf("expected 15m, got %v", d)
	}

	stats := e.Stats()
	if stats[experiment.StageModelTraining].Count != 2 {
		t.Errorf("expected count 2, got %d", stats[experiment.StageModelTraining].Count)
	}
}

func TestEstimator_IgnoresCompletedAndNegative(t *testing.T) {
	e := New(0.5)
	e.Observe(experiment.StageCompleted, time.Second)
	e.Observe(experiment.StageDataLoading, -time.Second)

	if len(e.Stats()) != 0 {
		t.Errorf("expected no stats, got %v", e.Stats())
	}
}

func TestEstimator_Remaining(t *testing.T) {
	e := New(1)
	planned := experiment.PlannedStages(experiment.ModeModelsOnly)

	e.Observe(experiment.StageDataLoading, 10*time.Second)
	e.Observe(experiment.StageDataPreprocessing, 20*time.Second)
	e.Observe(experiment.StageModelTraining, 100*time.Second)

	// 4s into data loading: 6 + 20 + 100
	got := e.Remaining(planned, experiment.StageDataLoading, 4*time.Second)
	if got != 126*time.Second {
		t.Errorf("expected 126s, got %v", got)
	}

	// Overrunning the current stage estimate never goes negative.
	got = e.Remaining(planned, experiment.StageModelTraining, 500*time.Second)
	if got != 0 {
		t.Errorf("expected 0, got %v", got)
	}

	if e.Remaining(planned, experiment.StageModelEvaluation, 0) != 0 {
		t.Error("stage outside the plan should give zero")
	}
}

func TestEstimator_ObserverAndLoad(t *testing.T) {
	var seen []StageStats
	e := New(0.5)
	e.SetObserver(func(s StageStats) { seen = append(seen, s) })

	e.Observe(experiment.StageDataLoading, 4*time.Second)
	if len(seen) != 1 || seen[0].Stage != experiment.StageDataLoading {
		t.Fatalf("observer not called: %v", seen)
	}

	e2 := New(0.5)
	e2.LoadStats([]StageStats{
		{Stage: experiment.StageDataLoading, Count: 3, Average: 8 * time.Second},
		{Stage: experiment.Stage("bogus"), Count: 1, Average: time.Second},
	})
	if d, ok := e2.Estimate(experiment.StageDataLoading); !ok || d != 8*time.Second {
		t.Errorf("expected loaded 8s, got %v %v", d, ok)
	}
	if len(e2.Stats()) != 1 {
		t.Errorf("invalid stages should be skipped, got %v", e2.Stats())
	}
}

func TestBind_RoundTripsThroughStorage(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := storage.New(dir, time.Hour, logger)
	e := New(0.5)
	Bind(e, s, experiment.ModeFull)

	e.Observe(experiment.StageModelEvaluation, 90*time.Second)
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s2 := storage.New(dir, time.Hour, logger)
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e2 := New(0.5)
	Bind(e2, s2, experiment.ModeFull)

	d, ok := e2.Estimate(experiment.StageModelEvaluation)
	if !ok || d != 90*time.Second {
		t.Errorf("expected 90s restored from storage, got %v %v", d, ok)
	}

	quick := New(0.5)
	Bind(quick, s2, experiment.ModeQuick)
	if _, ok := quick.Estimate(experiment.StageModelEvaluation); ok {
		t.Error("full-mode timings must not leak into quick mode")
	}
}
