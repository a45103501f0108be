// Package winner picks the better variant from per-metric comparison results.
//
// Decide is pure: the same comparisons and options always yield the same
// decision, and nothing outside its arguments is read or written.
package winner

import (
	"fmt"
	"math"

	"github.com/haskel/variantlab/internal/experiment"
)

// Options tune the decision rules.
type Options struct {
	// TieTolerance treats a significant result as a tie when the absolute
	// difference of the metric means is below it. Zero disables the rule.
	TieTolerance float64

	// QuickTest marks decisions made on down-sampled data.
	QuickTest bool
}

// Decide computes the winner from one comparison per tracked metric.
//
// A significant comparison gives one win to the variant its direction
// favours. Non-significant comparisons are ties. More wins means a high
// confidence winner; equal wins fall back to the mean of per-metric means
// with low confidence. When even those are equal, A is chosen.
func Decide(comparisons []experiment.ComparisonResult, opts Options) experiment.WinnerDecision {
	var winsA, winsB int

	for _, c := range comparisons {
		if !c.Significant || isTie(c, opts.TieTolerance) {
			continue
		}
		switch {
		case c.Direction > 0:
			winsA++
		case c.Direction < 0:
			winsB++
		}
	}

	d := experiment.WinnerDecision{
		WinsA:   winsA,
		WinsB:   winsB,
		Metrics: len(comparisons),
	}

	switch {
	case winsA > winsB:
		d.Winner = experiment.VariantA
		d.Confidence = experiment.ConfidenceHigh
	case winsB > winsA:
		d.Winner = experiment.VariantB
		d.Confidence = experiment.ConfidenceHigh
	default:
		d.Confidence = experiment.ConfidenceLow
		d.Winner = experiment.VariantA
		if meanA, meanB := MeanOfMeans(comparisons); meanB > meanA {
			d.Winner = experiment.VariantB
		}
	}

	wins := winsA
	if d.Winner == experiment.VariantB {
		wins = winsB
	}

	d.Summary = fmt.Sprintf("%s won with %d of %d metrics (confidence: %s)",
		d.Winner, wins, d.Metrics, d.Confidence)
	d.Recommendations = recommendations(d, opts)

	return d
}

func isTie(c experiment.ComparisonResult, tolerance float64) bool {
	if c.Direction == 0 {
		return true
	}
	return tolerance > 0 && math.Abs(c.MeanA-c.MeanB) < tolerance
}

func recommendations(d experiment.WinnerDecision, opts Options) []string {
	recs := []string{
		fmt.Sprintf("Use variant %s: it performed better on the tracked metrics (%d-%d significant wins)",
			d.Winner, max(d.WinsA, d.WinsB), min(d.WinsA, d.WinsB)),
	}

	if d.Confidence == experiment.ConfidenceLow {
		recs = append(recs,
			"The difference is not statistically conclusive: validate further with a larger sample and repeated cross-validation")
	}

	if opts.QuickTest {
		recs = append(recs,
			"This result comes from a quick test on a down-sampled dataset: re-run the full pipeline before relying on it")
	}

	return recs
}

// MeanOfMeans returns the average of the per-metric means for each variant.
func MeanOfMeans(comparisons []experiment.ComparisonResult) (a, b float64) {
	if len(comparisons) == 0 {
		return 0, 0
	}
	for _, c := range comparisons {
		a += c.MeanA
		b += c.MeanB
	}
	n := float64(len(comparisons))
	return a / n, b / n
}
