package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/haskel/variantlab/internal/dispatch"
	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/resource"
	"github.com/haskel/variantlab/internal/winner"
)

// run carries the state of one Run call. Only the control goroutine
// touches it.
type run struct {
	o     *Orchestrator
	mode  experiment.Mode
	opts  experiment.RunOptions
	state *PipelineState

	samples, labels []string
	split           experiment.DatasetSplit
	handles         map[experiment.Variant]experiment.ModelHandle
	result          *experiment.RunResult

	pool *dispatch.Pool
}

func (r *run) quick() bool {
	return r.result.QuickTest
}

func (r *run) execute(ctx context.Context) error {
	for i, stage := range r.state.Planned {
		if i > 0 {
			if err := r.transition(stage); err != nil {
				return r.fail(newError(KindConfig, r.state.Stage, err))
			}
		}
		if stage == experiment.StageCompleted {
			break
		}
		// reporting is best effort and handles cancellation itself
		if err := ctx.Err(); err != nil && stage != experiment.StageReportGeneration {
			return r.fail(newError(stageKind(stage), stage, err))
		}
		if err := r.runStage(ctx, stage); err != nil {
			return r.fail(err)
		}
	}
	return nil
}

func (r *run) transition(to experiment.Stage) error {
	from := r.state.Stage
	took, err := r.state.advance(to, r.o.now())
	if err != nil {
		return err
	}

	if r.o.estimator != nil {
		r.o.estimator.Observe(from, took)
	}
	if m := r.o.metrics; m != nil {
		m.stageTransitions.WithLabelValues(string(to)).Inc()
		m.stageDuration.WithLabelValues(string(from)).Observe(took.Seconds())
	}
	r.o.publish(r.state)

	r.o.logger.Info("stage completed", "stage", from, "duration", took, "next", to)
	return nil
}

func (r *run) runStage(ctx context.Context, stage experiment.Stage) *PipelineError {
	switch stage {
	case experiment.StageInitialization:
		return nil
	case experiment.StageDataLoading:
		return r.loadData(ctx)
	case experiment.StageDataPreprocessing:
		return r.splitData()
	case experiment.StageModelTraining:
		return r.train(ctx)
	case experiment.StageModelEvaluation:
		return r.evaluate(ctx)
	case experiment.StageStatisticalAnalysis:
		return r.analyze(ctx)
	case experiment.StageReportGeneration:
		r.report(ctx)
		return nil
	}
	return newError(KindConfig, stage, fmt.Errorf("no handler for stage %s", stage))
}

// fail records a fatal error and returns it for Run.
func (r *run) fail(pe *PipelineError) error {
	r.state.record(pe, false, r.o.now())
	r.o.publish(r.state)
	r.countError(pe, false)

	r.o.logger.Error("stage failed",
		"stage", pe.Stage,
		"kind", pe.Kind,
		"variant", pe.Variant,
		"error", pe.Err,
	)
	return pe
}

// recovered records an error the run continues past.
func (r *run) recovered(pe *PipelineError) {
	r.state.record(pe, true, r.o.now())
	r.o.publish(r.state)
	r.countError(pe, true)

	r.o.logger.Warn("stage error recovered",
		"stage", pe.Stage,
		"kind", pe.Kind,
		"error", pe.Err,
	)
}

func (r *run) countError(pe *PipelineError, recovered bool) {
	if r.o.metrics == nil {
		return
	}
	label := "false"
	if recovered {
		label = "true"
	}
	r.o.metrics.errors.WithLabelValues(pe.Kind.String(), label).Inc()
}

func stageKind(stage experiment.Stage) Kind {
	switch stage {
	case experiment.StageDataLoading, experiment.StageDataPreprocessing:
		return KindData
	case experiment.StageModelTraining:
		return KindTraining
	case experiment.StageModelEvaluation:
		return KindEvaluation
	case experiment.StageStatisticalAnalysis:
		return KindAnalysis
	case experiment.StageReportGeneration:
		return KindReport
	}
	return KindConfig
}

func (r *run) loadData(ctx context.Context) *PipelineError {
	const stage = experiment.StageDataLoading
	cfg := r.o.cfg

	samples, labels, err := r.o.collab.Loader.Load(ctx, cfg)
	if err != nil {
		return newError(KindData, stage, fmt.Errorf("load dataset: %w", err))
	}
	if len(samples) != len(labels) {
		return newError(KindData, stage, fmt.Errorf("loader returned %d samples and %d labels", len(samples), len(labels)))
	}

	if r.quick() {
		before := len(samples)
		samples, labels, err = resource.Downsample(samples, labels, cfg.SampleCap, cfg.Seed)
		if err != nil {
			return newError(KindData, stage, fmt.Errorf("downsample: %w", err))
		}
		r.o.logger.Info("quick test: dataset down-sampled", "from", before, "to", len(samples), "cap", cfg.SampleCap)
	}

	r.samples, r.labels = samples, labels
	r.o.logger.Info("dataset loaded", "samples", len(samples))

	if r.mode != experiment.ModeEvaluationOnly {
		return nil
	}

	// evaluation_only skips preprocessing but still needs the test partition
	// and the previously persisted models.
	if pe := r.splitAt(stage); pe != nil {
		return pe
	}
	return r.loadModels()
}

func (r *run) splitData() *PipelineError {
	return r.splitAt(experiment.StageDataPreprocessing)
}

func (r *run) splitAt(stage experiment.Stage) *PipelineError {
	cfg := r.o.cfg

	split, err := r.o.collab.Loader.Split(r.samples, r.labels, cfg.Ratios, cfg.Seed)
	if err != nil {
		return newError(KindData, stage, fmt.Errorf("split dataset: %w", err))
	}
	for name, p := range map[string]experiment.Partition{"train": split.Train, "validation": split.Validation, "test": split.Test} {
		if err := p.Validate(); err != nil {
			return newError(KindData, stage, fmt.Errorf("%s partition: %w", name, err))
		}
	}
	if split.Test.Len() == 0 {
		return newError(KindData, stage, errors.New("test partition is empty"))
	}

	r.split = split
	r.result.Split = split.Sizes()
	r.o.logger.Info("dataset split",
		"train", split.Train.Len(),
		"validation", split.Validation.Len(),
		"test", split.Test.Len(),
	)
	return nil
}

func (r *run) loadModels() *PipelineError {
	handles := make(map[experiment.Variant]experiment.ModelHandle, len(experiment.Variants))
	for _, v := range experiment.Variants {
		name := experiment.ModelName(r.o.cfg.Name, v)
		h, err := r.o.collab.Models.Load(name)
		if err != nil {
			return variantError(KindData, experiment.StageDataLoading, v, fmt.Errorf("load persisted model %q: %w", name, err))
		}
		handles[v] = h
	}

	r.handles = handles
	r.result.Models = handles
	r.o.logger.Info("persisted models loaded", "count", len(handles))
	return nil
}

func (r *run) evaluate(ctx context.Context) *PipelineError {
	const stage = experiment.StageModelEvaluation

	metrics := make(map[experiment.Variant]experiment.MetricsSet, len(experiment.Variants))
	for _, v := range experiment.Variants {
		h, ok := r.handles[v]
		if !ok {
			return variantError(KindEvaluation, stage, v, errors.New("no trained model"))
		}

		set, err := r.o.collab.Evaluator.Evaluate(ctx, h, r.split.Test)
		if err != nil {
			return variantError(KindEvaluation, stage, v, err)
		}
		for _, m := range r.o.cfg.Metrics {
			if _, ok := set.Metrics[m]; !ok {
				return variantError(KindEvaluation, stage, v, fmt.Errorf("metric %q missing from evaluation", m))
			}
		}
		set.Variant = v
		metrics[v] = set

		r.o.logger.Info("variant evaluated", "variant", v, "test_items", r.split.Test.Len())
	}

	r.result.Metrics = metrics
	return nil
}

func (r *run) analyze(ctx context.Context) *PipelineError {
	const stage = experiment.StageStatisticalAnalysis
	a, b := r.result.Metrics[experiment.VariantA], r.result.Metrics[experiment.VariantB]

	comparisons := make([]experiment.ComparisonResult, 0, len(r.o.cfg.Metrics))
	for _, m := range r.o.cfg.Metrics {
		c, err := r.o.collab.Analyzer.Compare(m, a.Metrics[m], b.Metrics[m])
		if err != nil {
			return newError(KindAnalysis, stage, err)
		}
		comparisons = append(comparisons, c)
		r.o.logger.Debug("metric compared", "metric", m, "significant", c.Significant, "p_value", c.PValue)
	}

	decision := winner.Decide(comparisons, winner.Options{
		TieTolerance: r.o.cfg.TieTolerance,
		QuickTest:    r.quick(),
	})
	r.result.Comparisons = comparisons
	r.result.Decision = &decision
	r.o.decision.Store(&decision)

	r.o.logger.Info("winner determined",
		"winner", decision.Winner,
		"confidence", decision.Confidence,
		"summary", decision.Summary,
	)

	if r.opts.CrossValidate {
		r.crossValidate(ctx)
	}
	return nil
}

// crossValidate is best effort: failures leave CrossValidation nil.
func (r *run) crossValidate(ctx context.Context) {
	const stage = experiment.StageStatisticalAnalysis
	cv := r.o.collab.CrossValidator
	k := r.o.cfg.CVFolds

	switch {
	case cv == nil:
		r.recovered(newError(KindCrossValidation, stage, errors.New("no cross-validator configured")))
		return
	case k < 2:
		r.recovered(newError(KindCrossValidation, stage, fmt.Errorf("cv_folds must be at least 2, got %d", k)))
		return
	}

	r.o.logger.Info("cross-validation started", "folds", k, "samples", len(r.samples))
	res, err := cv.KFold(ctx, r.samples, r.labels, r.o.cfg, k)
	if err != nil {
		r.recovered(newError(KindCrossValidation, stage, err))
		return
	}
	r.result.CrossValidation = res
}

// report is best effort: a failed rich report falls back to the reduced one,
// and a failed fallback is only logged.
func (r *run) report(ctx context.Context) {
	const stage = experiment.StageReportGeneration
	gen := r.o.collab.Reporter

	if !r.opts.GenerateReport || gen == nil {
		r.o.logger.Debug("report generation skipped", "requested", r.opts.GenerateReport)
		return
	}

	r.result.FinishedAt = r.o.now()

	err := ctx.Err()
	if err == nil {
		var path string
		if path, err = gen.Render(ctx, r.result); err == nil {
			r.result.ReportPath = path
			return
		}
	}
	r.recovered(newError(KindReport, stage, fmt.Errorf("render report: %w", err)))

	// The fallback is a small local write; finish it even after cancellation.
	path, err := gen.RenderFallback(context.WithoutCancel(ctx), r.result)
	if err != nil {
		r.recovered(newError(KindReport, stage, fmt.Errorf("render fallback report: %w", err)))
		return
	}
	r.result.ReportPath = path
}
