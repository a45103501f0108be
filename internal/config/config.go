package config

import (
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

type Config struct {
	Experiment    ExperimentConfig    `yaml:"experiment"`
	Execution     ExecutionConfig     `yaml:"execution"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
	Persistence   PersistenceConfig   `yaml:"persistence"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	Status        StatusConfig        `yaml:"status"`
}

// ExperimentConfig describes the dataset and the two variants.
type ExperimentConfig struct {
	Name string `yaml:"name" validate:"required"`

	// Manifest lists sample/label pairs (CSV with header or JSON array).
	Manifest string                 `yaml:"manifest" validate:"required"`
	Split    experiment.SplitRatios `yaml:"split"`
	Seed     int64                  `yaml:"seed"`

	VariantA VariantConfig `yaml:"variant_a"`
	VariantB VariantConfig `yaml:"variant_b"`
}

type VariantConfig struct {
	Name        string         `yaml:"name" validate:"required"`
	Hyperparams map[string]any `yaml:"hyperparams"`
}

// ExecutionConfig controls how the training stage is dispatched.
type ExecutionConfig struct {
	// Parallel allows concurrent training when resources permit.
	Parallel          bool    `yaml:"parallel"`
	MaxConcurrency    int     `yaml:"max_concurrency"`
	MemoryPerTaskMB   int     `yaml:"memory_per_task_mb"`
	CPUCeilingPercent float64 `yaml:"cpu_ceiling_percent"`

	// QuickTest down-samples the dataset to SampleCap items in every mode.
	QuickTest bool `yaml:"quick_test"`
	SampleCap int  `yaml:"sample_cap"`

	TaskTimeoutSec int `yaml:"task_timeout_sec"`
}

// AnalysisConfig holds the statistical comparison settings.
type AnalysisConfig struct {
	Alpha float64 `yaml:"alpha"`
	// TieTolerance treats significant differences smaller than this as ties.
	TieTolerance float64  `yaml:"tie_tolerance"`
	Metrics      []string `yaml:"metrics"`
	CVFolds      int      `yaml:"cv_folds"`
}

// CollaboratorsConfig names the external commands that train and evaluate models.
type CollaboratorsConfig struct {
	Trainer   CommandConfig `yaml:"trainer"`
	Evaluator CommandConfig `yaml:"evaluator"`
}

type CommandConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Dir     string            `yaml:"dir"`
}

type PersistenceConfig struct {
	DataDir          string `yaml:"data_dir"`
	ResultsDir       string `yaml:"results_dir"`
	ModelsDir        string `yaml:"models_dir"`
	ReportsDir       string `yaml:"reports_dir"`
	HistoryDB        string `yaml:"history_db"`
	FlushIntervalSec int    `yaml:"flush_interval_sec"`
}

type MonitoringConfig struct {
	Paths []string `yaml:"paths"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File mirrors log output when set.
	File string `yaml:"file"`
}

// StatusConfig controls the status API served while a run is in progress.
type StatusConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Persistence.FlushIntervalSec) * time.Second
}

func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Execution.TaskTimeoutSec) * time.Second
}

// RunConfig projects the configuration into the immutable run input.
func (c *Config) RunConfig() experiment.RunConfig {
	metrics := make([]string, len(c.Analysis.Metrics))
	copy(metrics, c.Analysis.Metrics)

	return experiment.RunConfig{
		Name:     c.Experiment.Name,
		Manifest: c.Experiment.Manifest,
		Ratios:   c.Experiment.Split,
		Seed:     c.Experiment.Seed,
		Variants: map[experiment.Variant]experiment.VariantConfig{
			experiment.VariantA: c.Experiment.VariantA.runConfig(),
			experiment.VariantB: c.Experiment.VariantB.runConfig(),
		},
		ParallelEnabled:    c.Execution.Parallel,
		MaxConcurrency:     c.Execution.MaxConcurrency,
		MemoryPerTaskBytes: uint64(c.Execution.MemoryPerTaskMB) * 1024 * 1024,
		QuickTest:          c.Execution.QuickTest,
		SampleCap:          c.Execution.SampleCap,
		TaskTimeout:        c.TaskTimeout(),
		Alpha:              c.Analysis.Alpha,
		TieTolerance:       c.Analysis.TieTolerance,
		Metrics:            metrics,
		CVFolds:            c.Analysis.CVFolds,
		LogFile:            c.Logging.File,
	}
}

func (v VariantConfig) runConfig() experiment.VariantConfig {
	hp := make(experiment.Hyperparams, len(v.Hyperparams))
	for k, val := range v.Hyperparams {
		hp[k] = val
	}
	return experiment.VariantConfig{Name: v.Name, Hyperparams: hp}
}
