// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// Detector is one independent heuristic over a single change record.
// Implementations must be side-effect-free and must never fail on malformed
// input: they degrade to a detected=false signal carrying a metadata note.
// Detectors share no mutable state, so they are safe to run concurrently
// across detectors and across records.
type Detector interface {
	// Name returns a unique identifier for this detector.
	// The name is used for logging, configuration, and reports.
	Name() string

	// Source returns the signal source this detector emits.
	Source() domain.SignalSource

	// Detect inspects the record and returns exactly one signal.
	// It never panics and never returns an error; malformed input
	// produces a degraded signal instead.
	Detect(record domain.ChangeRecord) domain.Signal

	// Validate checks that the detector is properly configured.
	// It is called during pipeline construction.
	Validate() error
}

// SignalRunner fans one change record out to a fixed set of detectors and
// returns their signals in registration order.
type SignalRunner interface {
	Run(ctx context.Context, record domain.ChangeRecord) []domain.Signal
}
