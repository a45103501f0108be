package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"

	"github.com/haskel/variantlab/internal/experiment"
)

const ratioTolerance = 1e-6

// Split shuffles the pairs with seed and cuts them into train, validation
// and test. Held-out sizes are rounded up, so train absorbs rounding.
func (l *ManifestLoader) Split(samples, labels []string, ratios experiment.SplitRatios, seed int64) (experiment.DatasetSplit, error) {
	split, err := SplitPairs(samples, labels, ratios, seed)
	if err != nil {
		return experiment.DatasetSplit{}, err
	}

	l.logger.Info("split dataset",
		"train", split.Train.Len(),
		"validation", split.Validation.Len(),
		"test", split.Test.Len(),
		"seed", seed,
	)

	if l.SplitDir != "" {
		path := filepath.Join(l.SplitDir, "split_files.json")
		if err := writeSplit(path, split, seed, ratios); err != nil {
			l.logger.Warn("failed to write split file", "path", path, "error", err)
		}
	}

	return split, nil
}

// SplitPairs is the pure splitting step used by ManifestLoader.
func SplitPairs(samples, labels []string, ratios experiment.SplitRatios, seed int64) (experiment.DatasetSplit, error) {
	if len(samples) != len(labels) {
		return experiment.DatasetSplit{}, fmt.Errorf("samples and labels differ in length: %d vs %d", len(samples), len(labels))
	}
	if math.Abs(ratios.Sum()-1) > ratioTolerance {
		return experiment.DatasetSplit{}, fmt.Errorf("split ratios must sum to 1.0, got %.6f", ratios.Sum())
	}
	if ratios.Train <= 0 || ratios.Test <= 0 || ratios.Validation < 0 {
		return experiment.DatasetSplit{}, fmt.Errorf("invalid split ratios %+v", ratios)
	}

	n := len(samples)
	if n < 2 {
		return experiment.DatasetSplit{}, fmt.Errorf("need at least 2 samples to split, got %d", n)
	}

	held := ceil(float64(n) * (ratios.Validation + ratios.Test))
	if held >= n {
		held = n - 1
	}
	nTest := ceil(float64(held) * ratios.Test / (ratios.Validation + ratios.Test))
	if nTest < 1 {
		nTest = 1
	}
	nVal := held - nTest

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x5851f42d4c957f2d))
	idx := rng.Perm(n)

	take := func(ix []int) experiment.Partition {
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

	nTrain := n - held
	return experiment.DatasetSplit{
		Train:      take(idx[:nTrain]),
		Validation: take(idx[nTrain : nTrain+nVal]),
		Test:       take(idx[nTrain+nVal:]),
	}, nil
}

// ceil tolerates float noise such as 414*0.3 = 124.19999.
func ceil(x float64) int {
	return int(math.Ceil(x - 1e-9))
}
