package detectors

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// Runner evaluates a set of detectors against one record concurrently.
// Detectors are independent and side-effect-free, so they fan out without
// locking; signals come back in detector registration order regardless of
// scheduling.
type Runner struct {
	detectors []ports.Detector
	tracer    trace.Tracer
}

// NewRunner builds a Runner over the given detectors, validating each one.
func NewRunner(detectors ...ports.Detector) (*Runner, error) {
	if len(detectors) == 0 {
		return nil, fmt.Errorf("at least one detector is required")
	}
	for i, detector := range detectors {
		if detector == nil {
			return nil, fmt.Errorf("detector %d is nil", i)
		}
		if err := detector.Validate(); err != nil {
			return nil, fmt.Errorf("detector %s: %w", detector.Name(), err)
		}
	}

	return &Runner{
		detectors: detectors,
		tracer:    otel.Tracer("detectors-runner"),
	}, nil
}

// NewDefaultRunner builds a Runner over all four production detectors with
// their default allowlists.
func NewDefaultRunner() (*Runner, error) {
	pattern, err := NewPatternDetector(DefaultPatternConfig())
	if err != nil {
		return nil, err
	}
	commit, err := NewCommitDetector(DefaultCommitConfig())
	if err != nil {
		return nil, err
	}
	review, err := NewReviewDetector(DefaultReviewConfig())
	if err != nil {
		return nil, err
	}
	file, err := NewFileDetector(DefaultFileConfig())
	if err != nil {
		return nil, err
	}
	return NewRunner(pattern, commit, review, file)
}

// Run evaluates every detector against the record and returns one signal per
// detector, in registration order. Detectors never fail, so Run always
// returns a full signal set.
func (r *Runner) Run(ctx context.Context, record domain.ChangeRecord) []domain.Signal {
	_, span := r.tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("record.id", record.ID),
			attribute.Int("detectors.count", len(r.detectors)),
		),
	)
	defer span.End()

	signals := make([]domain.Signal, len(r.detectors))
	g := new(errgroup.Group)
	for i, detector := range r.detectors {
		g.Go(func() error {
			signals[i] = detector.Detect(record)
			return nil
		})
	}
	_ = g.Wait()

	detected := 0
	for _, sig := range signals {
		if sig.Detected {
			detected++
		}
	}
	span.SetAttributes(attribute.Int("signals.detected", detected))

	return signals
}
