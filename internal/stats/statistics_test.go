package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haskel/variantlab/internal/experiment"
)

func TestTwoTailedPValue(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		df   float64
		want float64
	}{
		{"zero statistic", 0, 10, 1},
		{"critical value df=10", 2.228, 10, 0.05},
		{"t=2 df=10", 2.0, 10, 0.0734},
		{"large df approaches normal", 1.96, 10000, 0.05},
		{"negative statistic is symmetric", -2.0, 10, 0.0734},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TwoTailedPValue(tt.t, tt.df), 0.001)
		})
	}

	assert.Equal(t, 1.0, TwoTailedPValue(1, 0))
	assert.Equal(t, 0.0, TwoTailedPValue(math.Inf(1), 5))
}

func TestWelchTTest(t *testing.T) {
	t.Run("clearly different", func(t *testing.T) {
		a := []float64{0.90, 0.91, 0.89, 0.92, 0.90, 0.88, 0.91, 0.90}
		b := []float64{0.70, 0.72, 0.69, 0.71, 0.70, 0.73, 0.68, 0.70}

		res, err := WelchTTest(a, b, 0.05)
		require.NoError(t, err)
		assert.True(t, res.Significant)
		assert.Greater(t, res.TStatistic, 0.0)
		assert.Less(t, res.PValue, 0.001)
	})

	t.Run("overlapping", func(t *testing.T) {
		a := []float64{0.80, 0.70, 0.90, 0.75, 0.85}
		b := []float64{0.78, 0.72, 0.88, 0.79, 0.83}

		res, err := WelchTTest(a, b, 0.05)
		require.NoError(t, err)
		assert.False(t, res.Significant)
	})

	t.Run("insufficient samples", func(t *testing.T) {
		_, err := WelchTTest([]float64{1}, []float64{1, 2}, 0.05)
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	})

	t.Run("zero variance equal means", func(t *testing.T) {
		res, err := WelchTTest([]float64{1, 1, 1}, []float64{1, 1}, 0.05)
		require.NoError(t, err)
		assert.False(t, res.Significant)
		assert.Equal(t, 1.0, res.PValue)
	})

	t.Run("zero variance different means", func(t *testing.T) {
		res, err := WelchTTest([]float64{2, 2, 2}, []float64{1, 1}, 0.05)
		require.NoError(t, err)
		assert.True(t, res.Significant)
	})
}

func TestEffectSize(t *testing.T) {
	d, err := EffectSize([]float64{2, 4, 6}, []float64{1, 3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-9)
	assert.Equal(t, EffectMedium, CategorizeEffect(d))

	_, err = EffectSize([]float64{1, 1}, []float64{1, 1})
	assert.ErrorIs(t, err, ErrZeroVariance)
}

func TestCategorizeEffect(t *testing.T) {
	assert.Equal(t, "negligible", CategorizeEffect(0.1).String())
	assert.Equal(t, "small", CategorizeEffect(-0.3).String())
	assert.Equal(t, "medium", CategorizeEffect(0.6).String())
	assert.Equal(t, "large", CategorizeEffect(-1.2).String())
}

func TestDescribe(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	d := Describe(values)

	assert.InDelta(t, 2.5, d.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0), d.StdDev, 1e-9)

	values[0] = 100
	assert.Equal(t, 1.0, d.Values[0], "Describe must copy its input")
}

func TestWelchAnalyzer_Compare(t *testing.T) {
	an := NewWelchAnalyzer(0)
	assert.Equal(t, DefaultAlpha, an.Alpha())

	a := Describe([]float64{0.60, 0.61, 0.59, 0.62, 0.60})
	b := Describe([]float64{0.80, 0.82, 0.79, 0.81, 0.80})

	res, err := an.Compare("dice", a, b)
	require.NoError(t, err)
	assert.Equal(t, "dice", res.Metric)
	assert.True(t, res.Significant)
	assert.Equal(t, -1, res.Direction)
	assert.Less(t, res.EffectSize, 0.0)
	assert.Contains(t, res.Interpretation, "B is significantly higher than A")

	_, err = an.Compare("iou", experiment.Distribution{Values: []float64{1}}, b)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}
