package domain

// SignalSource identifies which detector produced a signal.
type SignalSource string

// Known signal sources. The classifier source is reserved for the external
// model's opinion; the remaining sources belong to the heuristic detectors.
const (
	SourcePattern    SignalSource = "pattern"
	SourceCommit     SignalSource = "commit"
	SourceReview     SignalSource = "review"
	SourceFile       SignalSource = "file"
	SourceClassifier SignalSource = "classifier"
)

// SignalSources lists every known source in canonical order.
// Score breakdowns and reports iterate in this order so output is stable.
var SignalSources = []SignalSource{
	SourcePattern,
	SourceCommit,
	SourceReview,
	SourceFile,
	SourceClassifier,
}

// Valid reports whether the source is one of the known signal sources.
func (s SignalSource) Valid() bool {
	switch s {
	case SourcePattern, SourceCommit, SourceReview, SourceFile, SourceClassifier:
		return true
	default:
		return false
	}
}

// Metadata keys used by detectors to explain their decision.
const (
	// MetaMatchedTool names the AI tool a detector matched.
	MetaMatchedTool = "matched_tool"

	// MetaMatchedPattern records the allowlist entry that matched.
	MetaMatchedPattern = "matched_pattern"

	// MetaExcerpt carries a short excerpt of the matched text or path.
	MetaExcerpt = "excerpt"

	// MetaNote carries a free-form note, typically why a detector
	// degraded to detected=false on malformed input.
	MetaNote = "note"
)

// Signal is one detector's independent opinion about AI assistance in a
// change record. Signals are value objects: never mutated after creation and
// never referencing each other.
type Signal struct {
	// Source names the detector that produced this signal.
	Source SignalSource `json:"source"`

	// Detected reports whether the detector found evidence of AI assistance.
	Detected bool `json:"detected"`

	// Confidence is the detector's certainty in [0,1]. Deterministic
	// detectors default to 1.0.
	Confidence float64 `json:"confidence"`

	// Metadata explains the decision: matched tool, matched pattern,
	// excerpt, or a degradation note.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DetectedSignal builds a positive signal with full confidence.
func DetectedSignal(source SignalSource, metadata map[string]string) Signal {
	return Signal{Source: source, Detected: true, Confidence: 1.0, Metadata: metadata}
}

// AbsentSignal builds a negative signal for a detector that found nothing.
func AbsentSignal(source SignalSource) Signal {
	return Signal{Source: source, Detected: false, Confidence: 1.0}
}

// DegradedSignal builds a negative signal for malformed or missing input.
// Detectors never fail; they degrade and leave a note for auditability.
func DegradedSignal(source SignalSource, note string) Signal {
	return Signal{
		Source:     source,
		Detected:   false,
		Confidence: 1.0,
		Metadata:   map[string]string{MetaNote: note},
	}
}
