package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/logging"
	"github.com/yanchuk/tformance-sub010/internal/ports"
	"github.com/yanchuk/tformance-sub010/internal/scoring"
)

// PipelineDeps carries the pipeline's collaborators.
type PipelineDeps struct {
	// Runner fans records out to the detectors.
	Runner ports.SignalRunner

	// Scorer fuses signals into the composite score.
	Scorer *scoring.Scorer

	// Classifier is optional: nil runs the deterministic detectors only
	// and scores with a degraded classifier signal.
	Classifier ports.Classifier

	// Renderer builds requests and fingerprints the prompt contract.
	Renderer ports.PromptRenderer

	// Results persists classifications and composite scores.
	Results ports.ResultStore

	// Metrics is optional; nil disables metric emission.
	Metrics ports.MetricsCollector
}

// Pipeline processes change records one at a time: detector signals, a
// direct classification when needed, fusion, and persistence. Bulk flows
// run the batch orchestrator first and then score against its stored
// results.
type Pipeline struct {
	runner     ports.SignalRunner
	scorer     *scoring.Scorer
	classifier ports.Classifier
	renderer   ports.PromptRenderer
	results    ports.ResultStore
	metrics    ports.MetricsCollector
	config     Config
	tracer     trace.Tracer

	renderEscalated ports.RenderOptions
}

// NewPipeline validates the configuration and dependencies and returns a
// pipeline ready to process records.
func NewPipeline(deps PipelineDeps, config Config) (*Pipeline, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("signal runner cannot be nil")
	}
	if deps.Scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("prompt renderer cannot be nil")
	}
	if deps.Results == nil {
		return nil, fmt.Errorf("result store cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Pipeline{
		runner:          deps.Runner,
		scorer:          deps.Scorer,
		classifier:      deps.Classifier,
		renderer:        deps.Renderer,
		results:         deps.Results,
		metrics:         metrics,
		config:          config,
		tracer:          otel.Tracer("detection-pipeline"),
		renderEscalated: ports.RenderOptions{MaxPayloadRunes: config.Classifier.EscalatedPayloadRunes},
	}, nil
}

// ProcessRecord runs detection, classification, and fusion for one record
// and persists the composite score. A record already classified under the
// current prompt version reuses its stored result without a provider call.
// Classification failures degrade the classifier signal instead of failing
// the record: the deterministic detectors still produce a score.
func (p *Pipeline) ProcessRecord(ctx context.Context, record domain.ChangeRecord) (domain.CompositeScore, error) {
	return p.process(ctx, record, true)
}

// ScoreStored fuses detector signals with whatever classification is
// already stored, never calling the provider. Bulk flows use it after the
// batch orchestrator has resolved classifications.
func (p *Pipeline) ScoreStored(ctx context.Context, record domain.ChangeRecord) (domain.CompositeScore, error) {
	return p.process(ctx, record, false)
}

func (p *Pipeline) process(ctx context.Context, record domain.ChangeRecord, allowCall bool) (domain.CompositeScore, error) {
	if record.ID == "" {
		return domain.CompositeScore{}, domain.ErrMissingRecordID
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "Pipeline.ProcessRecord",
		trace.WithAttributes(attribute.String("record.id", record.ID)))
	defer span.End()
	ctx = logging.WithRecord(ctx, record.ID)

	signals := p.runner.Run(ctx, record)
	for _, signal := range signals {
		p.metrics.RecordCounter("detector_signals_total", 1, map[string]string{
			"source":   string(signal.Source),
			"detected": strconv.FormatBool(signal.Detected),
		})
	}

	result, err := p.classify(ctx, record, allowCall)
	if err != nil {
		return domain.CompositeScore{}, err
	}

	score := p.scorer.Score(record.ID, signals, result)
	if err := p.results.SaveCompositeScore(ctx, score); err != nil {
		return domain.CompositeScore{}, fmt.Errorf("persist score for %s: %w", record.ID, err)
	}

	span.SetAttributes(
		attribute.Float64("score.value", score.Score),
		attribute.String("score.label", string(score.Label)),
	)
	p.metrics.RecordHistogram("composite_score", score.Score, map[string]string{"label": string(score.Label)})
	p.metrics.RecordLatency("process_record", time.Since(start), map[string]string{"stage": "pipeline"})
	logging.C(ctx).Info().
		Float64("score", score.Score).
		Str("label", string(score.Label)).
		Msg("record scored")
	return score, nil
}

// classify resolves the classifier verdict for a record: the stored
// current-version result when one exists, a fresh direct call otherwise.
// A nil result means no classifier is configured. Call failures come back
// as an unusable result carrying the failure kind so the scorer degrades
// the classifier signal.
func (p *Pipeline) classify(ctx context.Context, record domain.ChangeRecord, allowCall bool) (*domain.ClassifierResult, error) {
	version := p.renderer.Version()

	stored, found, err := p.results.GetClassifierResult(ctx, record.ID, version)
	if err != nil {
		return nil, fmt.Errorf("check stored result for %s: %w", record.ID, err)
	}
	if found {
		return &stored, nil
	}
	if !allowCall || p.classifier == nil {
		return nil, nil
	}

	req, err := p.renderer.Render(record, ports.RenderOptions{})
	if err != nil {
		return nil, fmt.Errorf("render request for %s: %w", record.ID, err)
	}

	result, err := p.classifier.SubmitDirect(ctx, req, ports.TierStandard)
	p.recordCall(ports.TierStandard, err)
	if err == nil {
		if err := p.results.SaveClassifierResult(ctx, result); err != nil {
			return nil, fmt.Errorf("persist result for %s: %w", record.ID, err)
		}
		return &result, nil
	}

	kind := failureKindOf(err)
	if kind.Escalates() {
		// Schema and token failures get one shot on the larger tier with
		// the larger payload budget before the signal degrades.
		p.metrics.RecordCounter("batch_fallback_total", 1, map[string]string{"reason": string(kind)})
		escReq, rerr := p.renderer.Render(record, p.renderEscalated)
		if rerr == nil {
			escalated, eerr := p.classifier.SubmitDirect(ctx, escReq, ports.TierEscalated)
			p.recordCall(ports.TierEscalated, eerr)
			if eerr == nil {
				if err := p.results.SaveClassifierResult(ctx, escalated); err != nil {
					return nil, fmt.Errorf("persist result for %s: %w", record.ID, err)
				}
				return &escalated, nil
			}
			kind = failureKindOf(eerr)
		}
	}

	logging.C(ctx).Warn().
		Str("failure", string(kind)).
		Msg("classification failed, scoring with degraded signal")
	return &domain.ClassifierResult{
		RecordID:      record.ID,
		Failure:       kind,
		Provider:      p.config.Classifier.Provider,
		PromptVersion: version,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (p *Pipeline) recordCall(tier ports.CallTier, err error) {
	labels := map[string]string{
		"provider": p.config.Classifier.Provider,
		"tier":     string(tier),
		"failure":  "",
	}
	if err != nil {
		labels["failure"] = string(failureKindOf(err))
	}
	p.metrics.RecordCounter("classifier_calls_total", 1, labels)
}
