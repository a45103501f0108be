package orchestrator

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haskel/variantlab/internal/experiment"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to experiment.Stage
		ok       bool
	}{
		{experiment.StageInitialization, experiment.StageDataLoading, true},
		{experiment.StageDataLoading, experiment.StageDataPreprocessing, true},
		{experiment.StageDataLoading, experiment.StageModelEvaluation, true},
		{experiment.StageModelTraining, experiment.StageModelEvaluation, true},
		{experiment.StageModelTraining, experiment.StageCompleted, true},
		{experiment.StageReportGeneration, experiment.StageCompleted, true},

		{experiment.StageInitialization, experiment.StageModelTraining, false},
		{experiment.StageModelEvaluation, experiment.StageModelTraining, false},
		{experiment.StageModelTraining, experiment.StageModelTraining, false},
		{experiment.StageCompleted, experiment.StageInitialization, false},
		{experiment.StageCompleted, experiment.StageCompleted, false},
		{experiment.StageDataLoading, experiment.Stage("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPlannedStagesFollowTransitionTable(t *testing.T) {
	for _, mode := range []experiment.Mode{
		experiment.ModeFull, experiment.ModeQuick, experiment.ModeModelsOnly, experiment.ModeEvaluationOnly,
	} {
		planned := experiment.PlannedStages(mode)
		for i := 1; i < len(planned); i++ {
			assert.NoError(t, ValidateTransition(planned[i-1], planned[i]), "mode %s", mode)
		}
	}
}

func TestPipelineState_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newPipelineState("run-1", experiment.ModeModelsOnly, start)

	took, err := s.advance(experiment.StageDataLoading, start.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, took)
	assert.Equal(t, 1, s.Completed)

	_, err = s.advance(experiment.StageModelEvaluation, start.Add(3*time.Second))
	assert.NoError(t, err, "the table allows the evaluation_only skip")

	_, err = s.advance(experiment.StageDataLoading, start.Add(4*time.Second))
	assert.Error(t, err, "stages never go backwards")
	assert.Equal(t, experiment.StageModelEvaluation, s.Stage)
}

func TestPipelineState_CompletedOnce(t *testing.T) {
	now := time.Now()
	s := newPipelineState("run-1", experiment.ModeModelsOnly, now)

	for _, st := range s.Planned[1:] {
		_, err := s.advance(st, now)
		require.NoError(t, err)
	}
	assert.Equal(t, len(s.Planned), s.Completed)
	assert.False(t, s.FinishedAt.IsZero())

	_, err := s.advance(experiment.StageCompleted, now)
	assert.Error(t, err)
}

func TestPipelineState_SnapshotErrors(t *testing.T) {
	s := newPipelineState("run-1", experiment.ModeFull, time.Now())
	s.record(newError(KindReport, experiment.StageReportGeneration, errors.New("template broke")), true, time.Now())
	s.record(newError(KindReport, experiment.StageReportGeneration, errors.New("disk full")), true, time.Now())

	snap := s.snapshot()
	assert.Equal(t, 2, snap.errorCount)
	assert.Equal(t, "disk full", snap.lastError)
	assert.Equal(t, "report", s.Errors[0].Kind)
	assert.True(t, s.Errors[0].Recovered)
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("diverged")
	err := error(variantError(KindTraining, experiment.StageModelTraining, experiment.VariantB, cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindTraining, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(cause))
	assert.Contains(t, err.Error(), "training error at model_training (variant B): diverged")

	var pe *PipelineError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &pe)
	assert.False(t, pe.Recoverable())

	for kind, want := range map[Kind]bool{
		KindConfig:          false,
		KindData:            false,
		KindTraining:        false,
		KindDispatch:        true,
		KindEvaluation:      false,
		KindAnalysis:        false,
		KindCrossValidation: true,
		KindReport:          true,
	} {
		assert.Equal(t, want, (&PipelineError{Kind: kind}).Recoverable(), kind.String())
	}
}
