// Package orchestrator drives an A/B experiment through the pipeline stages
// and owns all mutable run state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haskel/variantlab/internal/dispatch"
	"github.com/haskel/variantlab/internal/estimate"
	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/history"
	"github.com/haskel/variantlab/internal/logger"
	"github.com/haskel/variantlab/internal/resource"
)

// ResourceProbe reports whether concurrent training is admissible.
type ResourceProbe interface {
	Snapshot(ctx context.Context) resource.Snapshot
}

// ResultSaver persists the artifact of a successful run.
type ResultSaver interface {
	Save(result *experiment.RunResult) (string, error)
}

// HistoryRecorder indexes finished runs.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options holds the optional dependencies of an Orchestrator. Nil fields
// disable the corresponding feature.
type Options struct {
	Resources ResourceProbe
	Estimator *estimate.Estimator
	Results   ResultSaver
	History   HistoryRecorder
	Metrics   *Metrics

	// NewPool creates the training worker pool. Defaults to dispatch.NewPool.
	NewPool func(size int) (*dispatch.Pool, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs experiments. Run is called from a single goroutine at a
// time; Status and Summary are safe from any goroutine.
type Orchestrator struct {
	cfg       experiment.RunConfig
	collab    experiment.Collaborators
	resources ResourceProbe
	estimator *estimate.Estimator
	results   ResultSaver
	history   HistoryRecorder
	metrics   *Metrics
	newPool   func(size int) (*dispatch.Pool, error)
	now       func() time.Time
	logger    *slog.Logger

	running  atomic.Bool
	snap     atomic.Pointer[snapshot]
	decision atomic.Pointer[experiment.WinnerDecision]
}

// New validates the run configuration and collaborators. Any problem is
// reported as a config error before a run can start.
func New(cfg experiment.RunConfig, collab experiment.Collaborators, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, newError(KindConfig, experiment.StageInitialization, err)
	}
	if err := collab.Validate(); err != nil {
		return nil, newError(KindConfig, experiment.StageInitialization, err)
	}

	o := &Orchestrator{
		cfg:       cfg,
		collab:    collab,
		resources: opts.Resources,
		estimator: opts.Estimator,
		results:   opts.Results,
		history:   opts.History,
		metrics:   opts.Metrics,
		newPool:   opts.NewPool,
		now:       opts.Now,
		logger:    logger,
	}
	if o.newPool == nil {
		o.newPool = dispatch.NewPool
	}
	if o.now == nil {
		o.now = time.Now
	}

	return o, nil
}

// Config returns the immutable run configuration.
func (o *Orchestrator) Config() experiment.RunConfig {
	return o.cfg
}

// LastDecision returns the decision of the most recent run that reached
// statistical analysis, or nil.
func (o *Orchestrator) LastDecision() *experiment.WinnerDecision {
	return o.decision.Load()
}

// Run executes every stage of mode in order. On failure it returns a
// *PipelineError naming the failing stage; partial progress stays visible
// through Status.
func (o *Orchestrator) Run(ctx context.Context, mode experiment.Mode, opts experiment.RunOptions) (*experiment.RunResult, error) {
	if !mode.IsValid() {
		return nil, newError(KindConfig, experiment.StageInitialization, fmt.Errorf("unknown mode %q", mode))
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, newError(KindConfig, experiment.StageInitialization, ErrRunInProgress)
	}
	defer o.running.Store(false)

	r := o.newRun(mode, opts)
	defer r.releasePool()

	o.logger.Info("run started",
		"run_id", r.state.RunID,
		"name", o.cfg.Name,
		"mode", mode,
		"quick_test", r.quick(),
		"stages", len(r.state.Planned),
	)

	err := r.execute(ctx)
	o.finish(ctx, r, err)
	if err != nil {
		return nil, err
	}
	return r.result, nil
}

func (o *Orchestrator) newRun(mode experiment.Mode, opts experiment.RunOptions) *run {
	now := o.now()
	state := newPipelineState(uuid.NewString(), mode, now)
	o.decision.Store(nil)
	o.publish(state)

	return &run{
		o:     o,
		mode:  mode,
		opts:  opts,
		state: state,
		result: &experiment.RunResult{
			RunID:     state.RunID,
			Name:      o.cfg.Name,
			Mode:      mode,
			StartedAt: now,
			QuickTest: mode == experiment.ModeQuick || o.cfg.QuickTest,
		},
	}
}

// finish does the bookkeeping common to every exit path.
func (o *Orchestrator) finish(ctx context.Context, r *run, runErr error) {
	now := o.now()
	if r.state.FinishedAt.IsZero() {
		r.state.FinishedAt = now
		o.publish(r.state)
	}
	r.result.FinishedAt = now
	r.result.Status = o.Status()

	status := history.StatusCompleted
	if runErr != nil {
		status = history.StatusFailed
	}
	if o.metrics != nil {
		o.metrics.runs.WithLabelValues(string(r.mode), status).Inc()
	}

	var artifact string
	if runErr == nil && o.results != nil {
		path, err := o.results.Save(r.result)
		if err != nil {
			o.logger.Error("failed to save run result", "run_id", r.state.RunID, "error", err)
		} else {
			artifact = path
			o.logger.Info("run result saved", "path", path)
		}
	}

	if o.history != nil {
		entry := history.Entry{
			RunID:      r.state.RunID,
			Name:       o.cfg.Name,
			Mode:       string(r.mode),
			Status:     status,
			Stage:      string(r.state.Stage),
			Artifact:   artifact,
			StartedAt:  r.state.StartedAt,
			FinishedAt: now,
		}
		if d := r.result.Decision; d != nil {
			entry.Winner = string(d.Winner)
			entry.Confidence = string(d.Confidence)
			entry.Summary = d.Summary
		}
		if runErr != nil {
			entry.Error = runErr.Error()
		}
		// The caller's context may already be cancelled; the index write
		// must still happen.
		if err := o.history.Record(context.WithoutCancel(ctx), entry); err != nil {
			o.logger.Error("failed to record run history", "run_id", r.state.RunID, "error", err)
		}
	}

	if runErr != nil {
		o.logger.Error("run failed",
			"run_id", r.state.RunID,
			"stage", r.state.Stage,
			"elapsed", r.result.Status.Elapsed,
			"error", runErr,
		)
		return
	}

	attrs := []any{
		"run_id", r.state.RunID,
		"elapsed", r.result.Status.Elapsed,
		"recovered_errors", len(r.state.Errors),
	}
	if d := r.result.Decision; d != nil {
		attrs = append(attrs, "winner", d.Winner, "confidence", d.Confidence)
	}
	logger.Success(o.logger, "run completed", attrs...)
}
