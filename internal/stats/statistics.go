// Package stats provides the statistical comparison used to judge whether
// two metric distributions differ.
//
// # Methodology
//
//   - Welch's t-test for comparing means (unequal variances allowed)
//   - Cohen's d for effect size
//   - Two-tailed p-value from the Student t distribution
//
// All functions are stateless and safe for concurrent use.
package stats

import (
	"errors"
	"math"
)

var (
	// ErrInsufficientSamples indicates not enough samples for analysis.
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrZeroVariance indicates a sample set has zero variance.
	ErrZeroVariance = errors.New("sample set has zero variance")
)

// TTestResult contains the results of a Welch's t-test.
type TTestResult struct {
	// TStatistic is positive when the first sample has the higher mean.
	TStatistic float64

	// PValue is the two-tailed probability of a difference at least this
	// large under the null hypothesis.
	PValue float64

	// DegreesOfFreedom from the Welch-Satterthwaite equation.
	DegreesOfFreedom float64

	// Significant is true when PValue < SignificanceLevel.
	Significant bool

	SignificanceLevel float64
}

// WelchTTest performs Welch's t-test on two samples.
//
// Both samples need at least two values. When both samples have zero
// variance the result is decided by the means alone: equal means give
// p = 1, different means give p = 0.
func WelchTTest(samples1, samples2 []float64, alpha float64) (*TTestResult, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := Mean(samples1)
	mean2 := Mean(samples2)

	var1 := Variance(samples1, mean1)
	var2 := Variance(samples2, mean2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		res := &TTestResult{PValue: 1, SignificanceLevel: alpha}
		if mean1 != mean2 {
			res.PValue = 0
			res.TStatistic = math.Copysign(math.Inf(1), mean1-mean2)
			res.Significant = true
		}
		return res, nil
	}

	tStat := (mean1 - mean2) / se

	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	if denom == 0 {
		return nil, ErrZeroVariance
	}
	df := num / denom

	pValue := TwoTailedPValue(tStat, df)

	return &TTestResult{
		TStatistic:        tStat,
		PValue:            pValue,
		DegreesOfFreedom:  df,
		Significant:       pValue < alpha,
		SignificanceLevel: alpha,
	}, nil
}

// EffectSize calculates Cohen's d using the pooled standard deviation.
// Positive means samples1 > samples2.
func EffectSize(samples1, samples2 []float64) (float64, error) {
	if len(samples1) < 2 || len(samples2) < 2 {
		return 0, ErrInsufficientSamples
	}

	mean1 := Mean(samples1)
	mean2 := Mean(samples2)

	n1 := float64(len(samples1))
	n2 := float64(len(samples2))

	pooledVar := ((n1-1)*Variance(samples1, mean1) + (n2-1)*Variance(samples2, mean2)) / (n1 + n2 - 2)
	pooled := math.Sqrt(pooledVar)
	if pooled == 0 {
		return 0, ErrZeroVariance
	}

	return (mean1 - mean2) / pooled, nil
}

// EffectCategory categorizes effect sizes using Cohen's conventions.
type EffectCategory int

const (
	// EffectNegligible indicates |d| < 0.2
	EffectNegligible EffectCategory = iota
	// EffectSmall indicates 0.2 <= |d| < 0.5
	EffectSmall
	// EffectMedium indicates 0.5 <= |d| < 0.8
	EffectMedium
	// EffectLarge indicates |d| >= 0.8
	EffectLarge
)

// String returns the category name.
func (e EffectCategory) String() string {
	switch e {
	case EffectNegligible:
		return "negligible"
	case EffectSmall:
		return "small"
	case EffectMedium:
		return "medium"
	case EffectLarge:
		return "large"
	default:
		return "unknown"
	}
}

// CategorizeEffect returns the category of an effect size.
func CategorizeEffect(d float64) EffectCategory {
	d = math.Abs(d)
	switch {
	case d < 0.2:
		return EffectNegligible
	case d < 0.5:
		return EffectSmall
	case d < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the unbiased sample variance around mean.
func Variance(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(values)-1)
}

// StdDev returns the sample standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values, Mean(values)))
}

// TwoTailedPValue returns P(|T| >= |t|) for a Student t distribution with df
// degrees of freedom.
func TwoTailedPValue(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return 1
	}
	if math.IsInf(t, 0) {
		return 0
	}
	x := df / (df + t*t)
	p := regIncompleteBeta(df/2, 0.5, x)
	return math.Min(1, math.Max(0, p))
}

// regIncompleteBeta evaluates the regularized incomplete beta function I_x(a, b).
func regIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lbeta := lgamma(a+b) - lgamma(a) - lgamma(b)
	front := math.Exp(lbeta + a*math.Log(x) + b*math.Log(1-x))

	// The continued fraction converges quickly only on this side.
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		tiny    = 1e-300
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}

	return h
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
