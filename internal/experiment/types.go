package experiment

import (
	"fmt"
	"time"
)

// Variant identifies one of the two model configurations under comparison.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Variants lists the variants in canonical order.
var Variants = []Variant{VariantA, VariantB}

// IsValid checks if the variant is A or B.
func (v Variant) IsValid() bool {
	return v == VariantA || v == VariantB
}

// String returns string representation.
func (v Variant) String() string {
	return string(v)
}

// Mode selects which stages a run executes.
type Mode string

const (
	ModeFull           Mode = "full"
	ModeQuick          Mode = "quick"
	ModeModelsOnly     Mode = "models_only"
	ModeEvaluationOnly Mode = "evaluation_only"
)

// IsValid checks if the mode is one of the known run modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeFull, ModeQuick, ModeModelsOnly, ModeEvaluationOnly:
		return true
	}
	return false
}

// String returns string representation.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown mode %q (valid: full, quick, models_only, evaluation_only)", s)
	}
	return m, nil
}

// Partition is an ordered pairing of sample references and label references.
type Partition struct {
	Samples []string `json:"samples"`
	Labels  []string `json:"labels"`
}

// Len returns the number of samples in the partition.
func (p Partition) Len() int {
	return len(p.Samples)
}

// Validate checks that samples and labels are paired.
func (p Partition) Validate() error {
	if len(p.Samples) != len(p.Labels) {
		return fmt.Errorf("partition has %d samples but %d labels", len(p.Samples), len(p.Labels))
	}
	return nil
}

// DatasetSplit holds the three disjoint partitions produced by the data stage.
// It is read-only once produced.
type DatasetSplit struct {
	Train      Partition `json:"train"`
	Validation Partition `json:"validation"`
	Test       Partition `json:"test"`
}

// Total returns the combined number of samples across all partitions.
func (s DatasetSplit) Total() int {
	return s.Train.Len() + s.Validation.Len() + s.Test.Len()
}

// Sizes summarizes partition sizes for reporting.
func (s DatasetSplit) Sizes() SplitSizes {
	return SplitSizes{
		Train:      s.Train.Len(),
		Validation: s.Validation.Len(),
		Test:       s.Test.Len(),
	}
}

// SplitSizes is the size summary of a DatasetSplit.
type SplitSizes struct {
	Train      int `json:"train"`
	Validation int `json:"validation"`
	Test       int `json:"test"`
}

// SplitRatios are the train/validation/test proportions. They must sum to 1.
type SplitRatios struct {
	Train      float64 `yaml:"train" json:"train" validate:"gt=0,lt=1"`
	Validation float64 `yaml:"validation" json:"validation" validate:"gte=0,lt=1"`
	Test       float64 `yaml:"test" json:"test" validate:"gt=0,lt=1"`
}

// Sum returns the sum of all ratios.
func (r SplitRatios) Sum() float64 {
	return r.Train + r.Validation + r.Test
}

// Hyperparams are opaque per-variant training parameters passed through to the trainer.
type Hyperparams map[string]any

// ModelHandle is an opaque reference to a trained variant.
type ModelHandle struct {
	Variant    Variant           `json:"variant"`
	Name       string            `json:"name"`
	URI        string            `json:"uri"`
	TrainedAt  time.Time         `json:"trained_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Distribution is the full per-test-item sample of one metric plus its summary.
type Distribution struct {
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"std_dev"`
}

// MetricsSet holds the metric distributions of one variant.
type MetricsSet struct {
	Variant Variant                 `json:"variant"`
	Metrics map[string]Distribution `json:"metrics"`
}

// ComparisonResult is the outcome of comparing one metric between A and B.
type ComparisonResult struct {
	Metric      string `json:"metric"`
	Significant bool   `json:"significant"`

	// Direction is +1 when A is higher, -1 when B is higher, 0 when equal.
	Direction      int     `json:"direction"`
	PValue         float64 `json:"p_value"`
	EffectSize     float64 `json:"effect_size"`
	MeanA          float64 `json:"mean_a"`
	MeanB          float64 `json:"mean_b"`
	Interpretation string  `json:"interpretation"`
}

// Confidence is the coarse qualitative tier attached to a winner decision.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// WinnerDecision is derived deterministically from the comparison results.
type WinnerDecision struct {
	Winner          Variant    `json:"winner"`
	Confidence      Confidence `json:"confidence"`
	WinsA           int        `json:"wins_a"`
	WinsB           int        `json:"wins_b"`
	Metrics         int        `json:"metrics"`
	Summary         string     `json:"summary"`
	Recommendations []string   `json:"recommendations"`
}

// FoldSummary holds per-metric means for one fold and variant.
type FoldSummary struct {
	Fold    int                `json:"fold"`
	Variant Variant            `json:"variant"`
	Means   map[string]float64 `json:"means"`
}

// CVResult summarizes a k-fold cross-validation.
type CVResult struct {
	Folds   int                            `json:"folds"`
	PerFold []FoldSummary                  `json:"per_fold"`
	Means   map[Variant]map[string]float64 `json:"means"`
	StdDevs map[Variant]map[string]float64 `json:"std_devs"`
}
