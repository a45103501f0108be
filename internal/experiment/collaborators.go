package experiment

import (
	"context"
	"errors"
)

// ErrModelNotFound is returned by a ModelStore when no handle is persisted under a name.
var ErrModelNotFound = errors.New("model not found")

// DataLoader loads raw sample references and splits them into partitions.
type DataLoader interface {
	Load(ctx context.Context, cfg RunConfig) (samples, labels []string, err error)
	Split(samples, labels []string, ratios SplitRatios, seed int64) (DatasetSplit, error)
}

// Trainer trains one variant and returns a handle to the trained model.
type Trainer interface {
	Train(ctx context.Context, variant Variant, train, val Partition, hp Hyperparams) (ModelHandle, error)
}

// ModelStore persists trained model handles by name.
type ModelStore interface {
	Persist(handle ModelHandle, name string) error
	Load(name string) (ModelHandle, error)
}

// Evaluator scores a trained model against the test partition.
type Evaluator interface {
	Evaluate(ctx context.Context, handle ModelHandle, test Partition) (MetricsSet, error)
}

// Analyzer compares one metric's distributions between the two variants.
type Analyzer interface {
	Compare(metric string, a, b Distribution) (ComparisonResult, error)
}

// CrossValidator runs k-fold cross-validation for both variants.
type CrossValidator interface {
	KFold(ctx context.Context, samples, labels []string, cfg RunConfig, k int) (*CVResult, error)
}

// ReportGenerator renders run results. RenderFallback produces a reduced
// report with only the numeric metrics and the decision summary.
type ReportGenerator interface {
	Render(ctx context.Context, result *RunResult) (string, error)
	RenderFallback(ctx context.Context, result *RunResult) (string, error)
}

// Collaborators bundles the external services a run depends on.
// CrossValidator and Reporter may be nil.
type Collaborators struct {
	Loader         DataLoader
	Trainer        Trainer
	Models         ModelStore
	Evaluator      Evaluator
	Analyzer       Analyzer
	CrossValidator CrossValidator
	Reporter       ReportGenerator
}

// Validate checks that the mandatory collaborators are present.
func (c Collaborators) Validate() error {
	var errs []error
	if c.Loader == nil {
		errs = append(errs, errors.New("data loader is required"))
	}
	if c.Trainer == nil {
		errs = append(errs, errors.New("trainer is required"))
	}
	if c.Models == nil {
		errs = append(errs, errors.New("model store is required"))
	}
	if c.Evaluator == nil {
		errs = append(errs, errors.New("evaluator is required"))
	}
	if c.Analyzer == nil {
		errs = append(errs, errors.New("analyzer is required"))
	}
	return errors.Join(errs...)
}

// ModelName returns the name under which a variant's model is persisted.
func ModelName(experiment string, v Variant) string {
	if experiment == "" {
		experiment = "experiment"
	}
	return experiment + "-" + string(v)
}
