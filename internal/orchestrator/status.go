package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

// snapshot is the immutable view of PipelineState published to readers.
type snapshot struct {
	runID          string
	mode           experiment.Mode
	planned        []experiment.Stage
	stage          experiment.Stage
	startedAt      time.Time
	stageStartedAt time.Time
	finishedAt     time.Time
	completed      int
	errorCount     int
	lastError      string
}

var idleSnapshot = &snapshot{stage: experiment.StageInitialization}

func (o *Orchestrator) publish(s *PipelineState) {
	o.snap.Store(s.snapshot())
}

// Status derives a fresh ExecutionStatus from the last published snapshot.
// It never blocks the running pipeline.
func (o *Orchestrator) Status() experiment.ExecutionStatus {
	snap := o.snap.Load()
	if snap == nil {
		snap = idleSnapshot
	}

	st := experiment.ExecutionStatus{
		RunID:           snap.runID,
		Mode:            snap.mode,
		Stage:           snap.stage,
		StagesCompleted: snap.completed,
		StagesTotal:     len(snap.planned),
		HasError:        snap.errorCount > 0,
		LastError:       snap.lastError,
		ErrorCount:      snap.errorCount,
	}
	if snap.startedAt.IsZero() {
		return st
	}

	now := o.now()
	switch {
	case !snap.finishedAt.IsZero():
		st.Elapsed = snap.finishedAt.Sub(snap.startedAt)
	default:
		st.Elapsed = now.Sub(snap.startedAt)
		if o.estimator != nil {
			st.EstimatedRemaining = o.estimator.Remaining(snap.planned, snap.stage, now.Sub(snap.stageStartedAt))
		}
	}

	return st
}

// Summary is a short human-readable digest of the current or last run.
func (o *Orchestrator) Summary() string {
	st := o.Status()

	var b strings.Builder
	if st.RunID == "" {
		b.WriteString("No run started\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Run %s (%s)\n", st.RunID, st.Mode)
	fmt.Fprintf(&b, "Stage: %s (%d/%d, %.0f%%)\n", st.Stage, st.StagesCompleted, st.StagesTotal, st.Progress()*100)
	fmt.Fprintf(&b, "Elapsed: %s", st.Elapsed.Round(time.Second))
	if st.EstimatedRemaining > 0 {
		fmt.Fprintf(&b, ", about %s remaining", st.EstimatedRemaining.Round(time.Second))
	}
	b.WriteString("\n")

	if st.HasError {
		fmt.Fprintf(&b, "Errors: %d (last: %s)\n", st.ErrorCount, st.LastError)
	}

	if d := o.decision.Load(); d != nil {
		fmt.Fprintf(&b, "Decision: %s\n", d.Summary)
	}

	return b.String()
}
