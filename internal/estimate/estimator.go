// Package estimate learns how long pipeline stages take and projects the
// remaining time of a run.
package estimate

import (
	"sync"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

// DefaultDurations are used for stages that have never been observed.
var DefaultDurations = map[experiment.Stage]time.Duration{
	experiment.StageInitialization:      time.Second,
	experiment.StageDataLoading:         30 * time.Second,
	experiment.StageDataPreprocessing:   time.Minute,
	experiment.StageModelTraining:       30 * time.Minute,
	experiment.StageModelEvaluation:     5 * time.Minute,
	experiment.StageStatisticalAnalysis: 10 * time.Second,
	experiment.StageReportGeneration:    5 * time.Second,
}

// StageStats is the smoothed duration of one stage.
type StageStats struct {
	Stage   experiment.Stage `json:"stage"`
	Count   int64            `json:"count"`
	Average time.Duration    `json:"average"`
}

// StatsObserver is called when a stage's statistics change.
type StatsObserver func(stats StageStats)

// Estimator keeps an exponential moving average of each stage's duration.
type Estimator struct {
	mu       sync.RWMutex
	stats    map[experiment.Stage]*stageState
	alpha    float64 // smoothing factor (0 < alpha <= 1)
	observer StatsObserver
}

type stageState struct {
	count   int64
	average float64 // seconds
}

// New creates an Estimator. Alpha weights recent runs; invalid values
// fall back to 0.3.
func New(alpha float64) *Estimator {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &Estimator{
		stats: make(map[experiment.Stage]*stageState),
		alpha: alpha,
	}
}

// Observe records how long a stage took.
func (e *Estimator) Observe(stage experiment.Stage, d time.Duration) {
	if d < 0 || stage == experiment.StageCompleted {
		return
	}

	e.mu.Lock()

	secs := d.Seconds()
	st, ok := e.stats[stage]
	if !ok {
		st = &stageState{count: 1, average: secs}
		e.stats[stage] = st
	} else {
		st.count++
		st.average = e.alpha*secs + (1-e.alpha)*st.average
	}

	snapshot := StageStats{Stage: stage, Count: st.count, Average: seconds(st.average)}
	observer := e.observer

	e.mu.Unlock()

	// Notify observer outside of lock
	if observer != nil {
		observer(snapshot)
	}
}

// Estimate returns the expected duration of a stage and whether it was
// learned from observations.
func (e *Estimator) Estimate(stage experiment.Stage) (time.Duration, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if st, ok := e.stats[stage]; ok {
		return seconds(st.average), true
	}
	return DefaultDurations[stage], false
}

// Remaining projects the time left when the run is inside current, having
// spent inStage there. Time already past a stage's estimate counts as zero.
func (e *Estimator) Remaining(planned []experiment.Stage, current experiment.Stage, inStage time.Duration) time.Duration {
	var total time.Duration
	found := false

	for _, st := range planned {
		if st == current {
			found = true
			est, _ := e.Estimate(st)
			if left := est - inStage; left > 0 {
				total += left
			}
			continue
		}
		if found {
			est, _ := e.Estimate(st)
			total += est
		}
	}

	if !found {
		return 0
	}
	return total
}

// Stats returns a copy of every learned stage.
func (e *Estimator) Stats() map[experiment.Stage]StageStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[experiment.Stage]StageStats, len(e.stats))
	for stage, st := range e.stats {
		out[stage] = StageStats{Stage: stage, Count: st.count, Average: seconds(st.average)}
	}
	return out
}

func (e *Estimator) SetObserver(observer StatsObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = observer
}

// LoadStats seeds the estimator with previously learned values.
func (e *Estimator) LoadStats(stats []StageStats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range stats {
		if !s.Stage.IsValid() || s.Count <= 0 {
			continue
		}
		e.stats[s.Stage] = &stageState{count: s.Count, average: s.Average.Seconds()}
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
