package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/haskel/variantlab/internal/dispatch"
	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/resource"
)

// train dispatches one task per variant and reassembles the handles in A, B
// order.
func (r *run) train(ctx context.Context) *PipelineError {
	const stage = experiment.StageModelTraining
	cfg := r.o.cfg

	tasks := make([]dispatch.Task, len(experiment.Variants))
	for i, v := range experiment.Variants {
		tasks[i] = r.trainTask(v)
	}

	strategy := r.selectStrategy(ctx, len(tasks))
	r.o.logger.Info("training started", "strategy", strategy.Name(), "tasks", len(tasks))

	results, err := strategy.Run(ctx, tasks)
	if err != nil && errors.Is(err, dispatch.ErrOperational) {
		r.recovered(newError(KindDispatch, stage, err))
		if m := r.o.metrics; m != nil {
			m.dispatchFallbacks.Inc()
		}
		r.o.logger.Warn("concurrent dispatch unavailable, retrying sequentially", "error", err)

		strategy = dispatch.NewSequential()
		results, err = strategy.Run(ctx, tasks)
	}
	r.result.Dispatch = strategy.Name()
	if m := r.o.metrics; m != nil {
		m.dispatches.WithLabelValues(strategy.Name()).Inc()
	}
	if err != nil {
		return trainingError(err)
	}

	handles := make(map[experiment.Variant]experiment.ModelHandle, len(results))
	for i, v := range experiment.Variants {
		h, ok := results[i].(experiment.ModelHandle)
		if !ok {
			return variantError(KindTraining, stage, v, fmt.Errorf("trainer returned %T", results[i]))
		}
		h.Variant = v
		handles[v] = h
	}

	if r.opts.PersistModels {
		for _, v := range experiment.Variants {
			name := experiment.ModelName(cfg.Name, v)
			if err := r.o.collab.Models.Persist(handles[v], name); err != nil {
				return variantError(KindTraining, stage, v, fmt.Errorf("persist model %q: %w", name, err))
			}
			h := handles[v]
			h.Name = name
			handles[v] = h
			r.o.logger.Info("model persisted", "variant", v, "name", name)
		}
	}

	r.handles = handles
	r.result.Models = handles
	return nil
}

// trainTask builds the closure for one variant. Each task reads only the
// shared immutable split and its own hyperparameters.
func (r *run) trainTask(v experiment.Variant) dispatch.Task {
	trainer := r.o.collab.Trainer
	train, val := r.split.Train, r.split.Validation
	hp := r.o.cfg.Variants[v].Hyperparams
	timeout := r.o.cfg.TaskTimeout
	logger := r.o.logger

	return func(ctx context.Context) (any, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		logger.Info("training variant", "variant", v, "train", train.Len(), "validation", val.Len())
		h, err := trainer.Train(ctx, v, train, val, hp)
		if err != nil {
			return nil, err
		}
		logger.Info("variant trained", "variant", v, "uri", h.URI)
		return h, nil
	}
}

// selectStrategy consults the resource probe and builds the strategy. The
// pool it creates lives until Run returns.
func (r *run) selectStrategy(ctx context.Context, taskCount int) dispatch.Strategy {
	cfg := r.o.cfg

	var snap resource.Snapshot
	if r.o.resources != nil {
		snap = r.o.resources.Snapshot(ctx)
	}

	choice := dispatch.Decide(snap, dispatch.Policy{
		ParallelEnabled:    cfg.ParallelEnabled,
		MemoryPerTaskBytes: cfg.MemoryPerTaskBytes,
		TaskCount:          taskCount,
	})
	r.o.logger.Info("dispatch decided",
		"strategy", choice,
		"substrate_available", snap.SubstrateAvailable,
		"memory_headroom_bytes", snap.MemoryHeadroomBytes,
		"reasons", snap.Reasons,
	)

	if choice == dispatch.StrategySequential {
		return dispatch.NewSequential()
	}

	pool, err := r.o.newPool(min(cfg.MaxConcurrency, taskCount))
	if err != nil {
		// Surface the missing substrate as an operational failure so the
		// regular fallback path handles it.
		return unavailable{err: err}
	}
	r.pool = pool

	strategy, err := dispatch.NewFactory(pool, cfg.MaxConcurrency).CreateByType(choice)
	if err != nil {
		return unavailable{err: err}
	}
	return strategy
}

func (r *run) releasePool() {
	if r.pool == nil {
		return
	}
	if err := r.pool.Close(); err != nil {
		r.o.logger.Warn("failed to close worker pool", "error", err)
	}
	r.pool = nil
}

// unavailable is a concurrent strategy whose substrate could not be created.
type unavailable struct {
	err error
}

func (u unavailable) Name() string {
	return dispatch.StrategyConcurrent.String()
}

func (u unavailable) Run(context.Context, []dispatch.Task) ([]any, error) {
	return nil, &dispatch.DispatchError{Operational: true, Err: u.err}
}

// trainingError maps dispatcher failures to a training error tagged with
// the first failing variant.
func trainingError(err error) *PipelineError {
	const stage = experiment.StageModelTraining

	var de *dispatch.DispatchError
	if errors.As(err, &de) {
		if i, taskErr, ok := de.FirstFailed(); ok && i < len(experiment.Variants) {
			return variantError(KindTraining, stage, experiment.Variants[i], fmt.Errorf("%w (%d of %d tasks failed)", taskErr, len(de.Failed), len(experiment.Variants)))
		}
	}

	var te *dispatch.TaskError
	if errors.As(err, &te) && te.Index < len(experiment.Variants) {
		return variantError(KindTraining, stage, experiment.Variants[te.Index], te.Err)
	}

	return newError(KindTraining, stage, err)
}
