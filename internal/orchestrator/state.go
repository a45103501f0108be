package orchestrator

import (
	"fmt"
	"slices"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

// transitions lists every allowed stage change. Skips exist only for the
// evaluation_only and models_only modes.
var transitions = map[experiment.Stage][]experiment.Stage{
	experiment.StageInitialization:      {experiment.StageDataLoading},
	experiment.StageDataLoading:         {experiment.StageDataPreprocessing, experiment.StageModelEvaluation},
	experiment.StageDataPreprocessing:   {experiment.StageModelTraining},
	experiment.StageModelTraining:       {experiment.StageModelEvaluation, experiment.StageCompleted},
	experiment.StageModelEvaluation:     {experiment.StageStatisticalAnalysis},
	experiment.StageStatisticalAnalysis: {experiment.StageReportGeneration},
	experiment.StageReportGeneration:    {experiment.StageCompleted},
}

// ValidateTransition checks a stage change against the transition table.
func ValidateTransition(from, to experiment.Stage) error {
	if !from.IsValid() || !to.IsValid() {
		return fmt.Errorf("unknown stage in transition %s -> %s", from, to)
	}
	if !slices.Contains(transitions[from], to) {
		return fmt.Errorf("invalid stage transition %s -> %s", from, to)
	}
	return nil
}

// StageError is one entry of the run's error log.
type StageError struct {
	Stage     experiment.Stage   `json:"stage"`
	Kind      string             `json:"kind"`
	Variant   experiment.Variant `json:"variant,omitempty"`
	Message   string             `json:"message"`
	Recovered bool               `json:"recovered"`
	At        time.Time          `json:"at"`
}

// PipelineState is owned by the control goroutine of a run. Readers only
// ever see copies published through the status snapshot.
type PipelineState struct {
	RunID          string
	Mode           experiment.Mode
	Planned        []experiment.Stage
	Stage          experiment.Stage
	StartedAt      time.Time
	StageStartedAt time.Time
	FinishedAt     time.Time
	Completed      int
	Errors         []StageError
}

func newPipelineState(runID string, mode experiment.Mode, now time.Time) *PipelineState {
	return &PipelineState{
		RunID:          runID,
		Mode:           mode,
		Planned:        experiment.PlannedStages(mode),
		Stage:          experiment.StageInitialization,
		StartedAt:      now,
		StageStartedAt: now,
	}
}

// advance moves to the next stage and returns how long the previous one took.
func (s *PipelineState) advance(to experiment.Stage, now time.Time) (time.Duration, error) {
	if err := ValidateTransition(s.Stage, to); err != nil {
		return 0, err
	}

	took := now.Sub(s.StageStartedAt)
	s.Stage = to
	s.StageStartedAt = now
	s.Completed++
	if to == experiment.StageCompleted {
		s.Completed = len(s.Planned)
		s.FinishedAt = now
	}
	return took, nil
}

func (s *PipelineState) record(pe *PipelineError, recovered bool, now time.Time) {
	s.Errors = append(s.Errors, StageError{
		Stage:     pe.Stage,
		Kind:      pe.Kind.String(),
		Variant:   pe.Variant,
		Message:   pe.Err.Error(),
		Recovered: recovered,
		At:        now,
	})
}

// snapshot copies the fields readers need.
func (s *PipelineState) snapshot() *snapshot {
	snap := &snapshot{
		runID:          s.RunID,
		mode:           s.Mode,
		planned:        s.Planned,
		stage:          s.Stage,
		startedAt:      s.StartedAt,
		stageStartedAt: s.StageStartedAt,
		finishedAt:     s.FinishedAt,
		completed:      s.Completed,
		errorCount:     len(s.Errors),
	}
	if n := len(s.Errors); n > 0 {
		snap.lastError = s.Errors[n-1].Message
	}
	return snap
}
