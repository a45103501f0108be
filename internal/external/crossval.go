package external

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/stats"
)

// FoldValidator implements experiment.CrossValidator on top of any trainer
// and evaluator.
type FoldValidator struct {
	trainer   experiment.Trainer
	evaluator experiment.Evaluator
	logger    *slog.Logger
}

func NewFoldValidator(trainer experiment.Trainer, evaluator experiment.Evaluator, logger *slog.Logger) *FoldValidator {
	return &FoldValidator{trainer: trainer, evaluator: evaluator, logger: logger}
}

// KFold shuffles the pairs with cfg.Seed and holds out each of k folds in
// turn. Both variants are trained and scored on every fold.
func (f *FoldValidator) KFold(ctx context.Context, samples, labels []string, cfg experiment.RunConfig, k int) (*experiment.CVResult, error) {
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("samples and labels differ in length: %d vs %d", len(samples), len(labels))
	}
	if k < 2 {
		return nil, fmt.Errorf("k must be at least 2, got %d", k)
	}
	if len(samples) < k {
		return nil, fmt.Errorf("need at least %d samples for %d folds, got %d", k, k, len(samples))
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(k)))
	idx := rng.Perm(len(samples))

	res := &experiment.CVResult{
		Folds:   k,
		Means:   map[experiment.Variant]map[string]float64{},
		StdDevs: map[experiment.Variant]map[string]float64{},
	}
	perMetric := map[experiment.Variant]map[string][]float64{}

	for fold := range k {
		lo := fold * len(idx) / k
		hi := (fold + 1) * len(idx) / k

		test := pick(samples, labels, idx[lo:hi])
		rest := append(append([]int(nil), idx[:lo]...), idx[hi:]...)
		nVal := valSize(len(rest), cfg.Ratios)
		train := pick(samples, labels, rest[:len(rest)-nVal])
		val := pick(samples, labels, rest[len(rest)-nVal:])

		for _, v := range experiment.Variants {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			handle, err := f.trainer.Train(ctx, v, train, val, cfg.Variants[v].Hyperparams)
			if err != nil {
				return nil, fmt.Errorf("fold %d: %w", fold+1, err)
			}
			set, err := f.evaluator.Evaluate(ctx, handle, test)
			if err != nil {
				return nil, fmt.Errorf("fold %d: %w", fold+1, err)
			}

			summary := experiment.FoldSummary{Fold: fold + 1, Variant: v, Means: map[string]float64{}}
			for _, m := range cfg.Metrics {
				mean := set.Metrics[m].Mean
				summary.Means[m] = mean
				if perMetric[v] == nil {
					perMetric[v] = map[string][]float64{}
				}
				perMetric[v][m] = append(perMetric[v][m], mean)
			}
			res.PerFold = append(res.PerFold, summary)
		}

		f.logger.Info("cross-validation fold completed", "fold", fold+1, "of", k)
	}

	for v, metrics := range perMetric {
		res.Means[v] = map[string]float64{}
		res.StdDevs[v] = map[string]float64{}
		for m, values := range metrics {
			res.Means[v][m] = stats.Mean(values)
			res.StdDevs[v][m] = stats.StdDev(values)
		}
	}

	return res, nil
}

func pick(samples, labels []string, ix []int) experiment.Partition {
	p := experiment.Partition{
		Samples: make([]string, len(ix)),
		Labels:  make([]string, len(ix)),
	}
	for i, j := range ix {
		p.Samples[i] = samples[j]
		p.Labels[i] = labels[j]
	}
	return p
}

// valSize keeps the configured train:validation proportion inside a fold.
func valSize(n int, r experiment.SplitRatios) int {
	if r.Train+r.Validation <= 0 {
		return 0
	}
	v := int(float64(n) * r.Validation / (r.Train + r.Validation))
	if v >= n {
		v = n - 1
	}
	return v
}
