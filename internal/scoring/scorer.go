// Package scoring fuses detector signals and the classifier verdict into one
// composite score per change record. Scoring is a pure function of its
// inputs: no clock, no I/O, no randomness, so the same signal set always
// reproduces the same score and breakdown.
package scoring

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

var validate = validator.New()

// Config holds the per-source weights applied during fusion. Weights are
// multiplied by signal confidence, so a weight is the score contribution of
// a fully-confident detection from that source.
type Config struct {
	// Weights maps each signal source to its fusion weight in [0,1].
	// Sources without a weight contribute nothing.
	Weights map[domain.SignalSource]float64 `yaml:"weights" json:"weights" validate:"required,dive,keys,oneof=pattern commit review file classifier,endkeys,min=0.0,max=1.0"`
}

// DefaultConfig returns the production weight set. The weights are chosen so
// a single deterministic detector lands in the medium band, a lone
// high-confidence classifier verdict lands in the medium band, and a commit
// trailer plus classifier agreement crosses into the high band.
func DefaultConfig() Config {
	return Config{
		Weights: map[domain.SignalSource]float64{
			domain.SourcePattern:    0.35,
			domain.SourceCommit:     0.50,
			domain.SourceReview:     0.30,
			domain.SourceFile:       0.25,
			domain.SourceClassifier: 0.60,
		},
	}
}

// Scorer computes composite scores. It is immutable after construction and
// safe for concurrent use.
type Scorer struct {
	weights map[domain.SignalSource]float64
}

// NewScorer builds a Scorer from validated configuration.
func NewScorer(config Config) (*Scorer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("weights validation failed: %w", err)
	}

	weights := make(map[domain.SignalSource]float64, len(config.Weights))
	for source, weight := range config.Weights {
		weights[source] = weight
	}

	return &Scorer{weights: weights}, nil
}

// ClassifierSignal converts a classifier verdict into a signal so it fuses
// like any detector output. Unusable results degrade to detected=false with
// a note, so a failed classification never counts as evidence for or
// against AI assistance.
func ClassifierSignal(result *domain.ClassifierResult) domain.Signal {
	if result == nil {
		return domain.DegradedSignal(domain.SourceClassifier, "no classifier result")
	}
	if !result.Usable() {
		return domain.DegradedSignal(domain.SourceClassifier,
			fmt.Sprintf("classifier result unusable: %s", result.Failure))
	}
	if !result.IsAIAssisted {
		return domain.Signal{
			Source:     domain.SourceClassifier,
			Detected:   false,
			Confidence: result.Confidence,
		}
	}

	metadata := map[string]string{}
	if result.Tool != "" {
		metadata[domain.MetaMatchedTool] = result.Tool
	}
	if result.Category != "" {
		metadata[domain.MetaMatchedPattern] = result.Category
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return domain.Signal{
		Source:     domain.SourceClassifier,
		Detected:   true,
		Confidence: result.Confidence,
		Metadata:   metadata,
	}
}

// Score fuses the detector signals and the classifier verdict for one
// record. The breakdown covers every known source in canonical order, with
// zero-value contributions included, so consumers can always explain why a
// score is what it is. Multiple signals from one source collapse to the
// strongest: a detection beats an absence, and higher confidence beats
// lower.
func (s *Scorer) Score(recordID string, signals []domain.Signal, classifier *domain.ClassifierResult) domain.CompositeScore {
	merged := make(map[domain.SignalSource]domain.Signal, len(domain.SignalSources))

	consider := func(sig domain.Signal) {
		current, ok := merged[sig.Source]
		if !ok || stronger(sig, current) {
			merged[sig.Source] = sig
		}
	}
	for _, sig := range signals {
		consider(sig)
	}
	if classifier != nil {
		consider(ClassifierSignal(classifier))
	}

	breakdown := make([]domain.Contribution, 0, len(domain.SignalSources))
	var sum float64
	for _, source := range domain.SignalSources {
		contribution := domain.Contribution{Source: source, Weight: s.weights[source]}
		if sig, ok := merged[source]; ok {
			contribution.Confidence = clamp01(sig.Confidence)
			if sig.Detected {
				contribution.Value = contribution.Weight * contribution.Confidence
			}
		}
		sum += contribution.Value
		breakdown = append(breakdown, contribution)
	}

	score := clamp01(sum)
	return domain.CompositeScore{
		ChangeRecordID: recordID,
		Score:          score,
		Breakdown:      breakdown,
		Label:          domain.LabelForScore(score),
	}
}

// stronger reports whether a should replace b when both come from the same
// source.
func stronger(a, b domain.Signal) bool {
	if a.Detected != b.Detected {
		return a.Detected
	}
	return a.Confidence > b.Confidence
}

// clamp01 bounds v to [0,1]. NaN collapses to 0 so a malformed confidence
// can never poison the composite score.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
