package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidate = validator.New()

func (c *Config) Validate() error {
	var errs []error

	if err := c.Experiment.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("experiment: %w", err))
	}

	if err := c.Execution.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("execution: %w", err))
	}

	if err := c.Analysis.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analysis: %w", err))
	}

	if err := c.Collaborators.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("collaborators: %w", err))
	}

	if err := c.Persistence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("persistence: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Status.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("status: %w", err))
	}

	return errors.Join(errs...)
}

func (e *ExperimentConfig) Validate() error {
	var errs []error

	if err := structValidate.Struct(e); err != nil {
		errs = append(errs, tagErrors(err)...)
	}

	if sum := e.Split.Sum(); math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("split ratios must sum to 1, got %.4f", sum))
	}

	return errors.Join(errs...)
}

func (e *ExecutionConfig) Validate() error {
	var errs []error

	if e.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", e.MaxConcurrency))
	}
	if e.MemoryPerTaskMB < 0 {
		errs = append(errs, fmt.Errorf("memory_per_task_mb must be non-negative"))
	}
	if e.CPUCeilingPercent <= 0 || e.CPUCeilingPercent > 100 {
		errs = append(errs, fmt.Errorf("cpu_ceiling_percent must be in (0, 100]"))
	}
	if e.QuickTest && e.SampleCap < 1 {
		errs = append(errs, fmt.Errorf("sample_cap must be at least 1 when quick_test is enabled"))
	}
	if e.TaskTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("task_timeout_sec must be non-negative"))
	}

	return errors.Join(errs...)
}

func (a *AnalysisConfig) Validate() error {
	var errs []error

	if a.Alpha <= 0 || a.Alpha >= 1 {
		errs = append(errs, fmt.Errorf("alpha must be in (0, 1), got %v", a.Alpha))
	}
	if a.TieTolerance < 0 {
		errs = append(errs, fmt.Errorf("tie_tolerance must be non-negative"))
	}
	if len(a.Metrics) == 0 {
		errs = append(errs, fmt.Errorf("at least one metric is required"))
	}
	seen := make(map[string]bool, len(a.Metrics))
	for _, m := range a.Metrics {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("metric names cannot be empty"))
			continue
		}
		if seen[m] {
			errs = append(errs, fmt.Errorf("duplicate metric: %s", m))
		}
		seen[m] = true
	}
	if a.CVFolds != 0 && a.CVFolds < 2 {
		errs = append(errs, fmt.Errorf("cv_folds must be 0 (disabled) or at least 2, got %d", a.CVFolds))
	}

	return errors.Join(errs...)
}

func (c *CollaboratorsConfig) Validate() error {
	var errs []error
	if c.Trainer.Command == "" {
		errs = append(errs, fmt.Errorf("trainer.command cannot be empty"))
	}
	if c.Evaluator.Command == "" {
		errs = append(errs, fmt.Errorf("evaluator.command cannot be empty"))
	}
	return errors.Join(errs...)
}

func (p *PersistenceConfig) Validate() error {
	var errs []error
	if p.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir cannot be empty"))
	}
	if p.ResultsDir == "" {
		errs = append(errs, fmt.Errorf("results_dir cannot be empty"))
	}
	if p.ModelsDir == "" {
		errs = append(errs, fmt.Errorf("models_dir cannot be empty"))
	}
	if p.FlushIntervalSec < 1 {
		errs = append(errs, fmt.Errorf("flush_interval_sec must be at least 1"))
	}
	return errors.Join(errs...)
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", l.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", l.Format)
	}

	return nil
}

func (s *StatusConfig) Validate() error {
	var errs []error

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", s.Port))
	}
	if err := s.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be positive"))
		}
		if s.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1"))
		}
	}

	return errors.Join(errs...)
}

func (a *AuthConfig) Validate() error {
	if a.Enabled {
		if a.User == "" {
			return fmt.Errorf("user cannot be empty when auth is enabled")
		}
		if a.Password == "" {
			return fmt.Errorf("password cannot be empty when auth is enabled")
		}
	}
	return nil
}

// tagErrors flattens validator output into one error per failing field.
func tagErrors(err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Errorf("%s failed %q (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return out
}

func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
