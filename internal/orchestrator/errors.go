package orchestrator

import (
	"errors"
	"fmt"

	"github.com/haskel/variantlab/internal/experiment"
)

// Kind classifies pipeline failures. Recovery decisions switch on it.
type Kind int

const (
	KindConfig Kind = iota + 1
	KindData
	KindTraining
	KindDispatch
	KindEvaluation
	KindAnalysis
	KindCrossValidation
	KindReport
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindData:
		return "data"
	case KindTraining:
		return "training"
	case KindDispatch:
		return "dispatch"
	case KindEvaluation:
		return "evaluation"
	case KindAnalysis:
		return "analysis"
	case KindCrossValidation:
		return "cross_validation"
	case KindReport:
		return "report"
	default:
		return "unknown"
	}
}

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// PipelineError is the single error type returned by Run.
type PipelineError struct {
	Kind    Kind
	Stage   experiment.Stage
	Variant experiment.Variant
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Variant != "" {
		return fmt.Sprintf("%s error at %s (variant %s): %v", e.Kind, e.Stage, e.Variant, e.Err)
	}
	return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the run continues past this kind of failure.
func (e *PipelineError) Recoverable() bool {
	switch e.Kind {
	case KindDispatch, KindCrossValidation, KindReport:
		return true
	}
	return false
}

// KindOf extracts the kind of a pipeline error, or 0 when err is not one.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func newError(kind Kind, stage experiment.Stage, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

func variantError(kind Kind, stage experiment.Stage, v experiment.Variant, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Variant: v, Err: err}
}
