package stats

import (
	"errors"
	"fmt"

	"github.com/haskel/variantlab/internal/experiment"
)

// DefaultAlpha is the significance level used when none is configured.
const DefaultAlpha = 0.05

// WelchAnalyzer compares metric distributions with Welch's t-test.
type WelchAnalyzer struct {
	alpha float64
}

// NewWelchAnalyzer creates an analyzer with the given significance level.
func NewWelchAnalyzer(alpha float64) *WelchAnalyzer {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &WelchAnalyzer{alpha: alpha}
}

// Alpha returns the significance level.
func (a *WelchAnalyzer) Alpha() float64 {
	return a.alpha
}

// Compare runs the test on the per-item values of one metric.
func (a *WelchAnalyzer) Compare(metric string, distA, distB experiment.Distribution) (experiment.ComparisonResult, error) {
	res := experiment.ComparisonResult{
		Metric: metric,
		MeanA:  Mean(distA.Values),
		MeanB:  Mean(distB.Values),
	}

	tt, err := WelchTTest(distA.Values, distB.Values, a.alpha)
	if err != nil {
		return res, fmt.Errorf("compare %s: %w", metric, err)
	}

	d, err := EffectSize(distA.Values, distB.Values)
	if err != nil && !errors.Is(err, ErrZeroVariance) {
		return res, fmt.Errorf("effect size %s: %w", metric, err)
	}

	res.Significant = tt.Significant
	res.PValue = tt.PValue
	res.EffectSize = d
	switch {
	case res.MeanA > res.MeanB:
		res.Direction = 1
	case res.MeanB > res.MeanA:
		res.Direction = -1
	}
	res.Interpretation = interpret(metric, res, a.alpha)

	return res, nil
}

func interpret(metric string, r experiment.ComparisonResult, alpha float64) string {
	if !r.Significant {
		return fmt.Sprintf("%s: no significant difference (p=%.4f >= %.2f, A=%.4f, B=%.4f)",
			metric, r.PValue, alpha, r.MeanA, r.MeanB)
	}

	higher, lower := experiment.VariantA, experiment.VariantB
	if r.Direction < 0 {
		higher, lower = lower, higher
	}

	return fmt.Sprintf("%s: %s is significantly higher than %s (p=%.4f, %s effect, d=%.2f)",
		metric, higher, lower, r.PValue, CategorizeEffect(r.EffectSize), r.EffectSize)
}

// Describe builds a Distribution with summary statistics from raw values.
func Describe(values []float64) experiment.Distribution {
	v := make([]float64, len(values))
	copy(v, values)
	return experiment.Distribution{
		Values: v,
		Mean:   Mean(v),
		StdDev: StdDev(v),
	}
}
