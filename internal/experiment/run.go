package experiment

import (
	"fmt"
	"time"
)

// Stage is one step of the pipeline state machine.
type Stage string

const (
	StageInitialization      Stage = "initialization"
	StageDataLoading         Stage = "data_loading"
	StageDataPreprocessing   Stage = "data_preprocessing"
	StageModelTraining       Stage = "model_training"
	StageModelEvaluation     Stage = "model_evaluation"
	StageStatisticalAnalysis Stage = "statistical_analysis"
	StageReportGeneration    Stage = "report_generation"
	StageCompleted           Stage = "completed"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageInitialization,
	StageDataLoading,
	StageDataPreprocessing,
	StageModelTraining,
	StageModelEvaluation,
	StageStatisticalAnalysis,
	StageReportGeneration,
	StageCompleted,
}

// Ordinal returns the position of the stage in pipeline order, or -1.
func (s Stage) Ordinal() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid checks if the stage belongs to the enumeration.
func (s Stage) IsValid() bool {
	return s.Ordinal() >= 0
}

// String returns string representation.
func (s Stage) String() string {
	return string(s)
}

// PlannedStages returns the stages a run in the given mode visits, in order.
func PlannedStages(mode Mode) []Stage {
	switch mode {
	case ModeModelsOnly:
		return []Stage{
			StageInitialization,
			StageDataLoading,
			StageDataPreprocessing,
			StageModelTraining,
			StageCompleted,
		}
	case ModeEvaluationOnly:
		return []Stage{
			StageInitialization,
			StageDataLoading,
			StageModelEvaluation,
			StageStatisticalAnalysis,
			StageReportGeneration,
			StageCompleted,
		}
	default:
		return append([]Stage(nil), Stages...)
	}
}

// VariantConfig describes how one variant is trained.
type VariantConfig struct {
	Name        string      `json:"name"`
	Hyperparams Hyperparams `json:"hyperparams,omitempty"`
}

// RunConfig is the immutable input of a run. It is produced once from the
// loaded configuration and never mutated afterwards.
type RunConfig struct {
	Name     string                    `json:"name"`
	Manifest string                    `json:"manifest"`
	Ratios   SplitRatios               `json:"ratios"`
	Seed     int64                     `json:"seed"`
	Variants map[Variant]VariantConfig `json:"variants"`

	ParallelEnabled    bool          `json:"parallel_enabled"`
	MaxConcurrency     int           `json:"max_concurrency"`
	MemoryPerTaskBytes uint64        `json:"memory_per_task_bytes"`
	QuickTest          bool          `json:"quick_test"`
	SampleCap          int           `json:"sample_cap"`
	TaskTimeout        time.Duration `json:"task_timeout"`

	Alpha        float64  `json:"alpha"`
	TieTolerance float64  `json:"tie_tolerance"`
	Metrics      []string `json:"metrics"`
	CVFolds      int      `json:"cv_folds"`

	LogFile string `json:"log_file,omitempty"`
}

// Validate checks the fields the orchestrator relies on.
func (c RunConfig) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("manifest path is required")
	}
	if sum := c.Ratios.Sum(); sum < 1-1e-6 || sum > 1+1e-6 {
		return fmt.Errorf("split ratios must sum to 1.0, got %.4f", sum)
	}
	for _, v := range Variants {
		if _, ok := c.Variants[v]; !ok {
			return fmt.Errorf("variant %s is not configured", v)
		}
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.SampleCap < 1 && c.QuickTest {
		return fmt.Errorf("sample_cap must be at least 1 when quick test is enabled")
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %f", c.Alpha)
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("at least one tracked metric is required")
	}
	return nil
}

// RunOptions toggle optional behavior of a run.
type RunOptions struct {
	PersistModels  bool `json:"persist_models"`
	GenerateReport bool `json:"generate_report"`
	CrossValidate  bool `json:"cross_validate"`
}

// ExecutionStatus is a snapshot of run progress, always derived fresh.
type ExecutionStatus struct {
	RunID              string        `json:"run_id,omitempty"`
	Mode               Mode          `json:"mode,omitempty"`
	Stage              Stage         `json:"stage"`
	StagesCompleted    int           `json:"stages_completed"`
	StagesTotal        int           `json:"stages_total"`
	Elapsed            time.Duration `json:"elapsed"`
	EstimatedRemaining time.Duration `json:"estimated_remaining"`
	HasError           bool          `json:"has_error"`
	LastError          string        `json:"last_error,omitempty"`
	ErrorCount         int           `json:"error_count"`
}

// Progress returns the completed fraction in [0, 1].
func (s ExecutionStatus) Progress() float64 {
	if s.StagesTotal == 0 {
		return 0
	}
	return float64(s.StagesCompleted) / float64(s.StagesTotal)
}

// RunResult holds every artifact a run produced.
type RunResult struct {
	RunID           string                  `json:"run_id"`
	Name            string                  `json:"name"`
	Mode            Mode                    `json:"mode"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
	QuickTest       bool                    `json:"quick_test"`
	Dispatch        string                  `json:"dispatch,omitempty"`
	Split           SplitSizes              `json:"split"`
	Models          map[Variant]ModelHandle `json:"models,omitempty"`
	Metrics         map[Variant]MetricsSet  `json:"metrics,omitempty"`
	Comparisons     []ComparisonResult      `json:"comparisons,omitempty"`
	Decision        *WinnerDecision         `json:"decision,omitempty"`
	CrossValidation *CVResult               `json:"cross_validation,omitempty"`
	ReportPath      string                  `json:"report_path,omitempty"`
	Status          ExecutionStatus         `json:"status"`
}
