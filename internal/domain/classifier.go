package domain

import "time"

// ClassificationRequest is the rendered payload for one classifier call.
// System holds the static instruction prefix, identical for every record so
// providers can cache it; Payload holds the per-record data that varies.
type ClassificationRequest struct {
	// RecordID ties the request back to its change record.
	RecordID string `json:"record_id"`

	// System is the static instruction section: identity, detection rules,
	// taxonomy rules, output contract, and few-shot examples.
	System string `json:"system"`

	// Payload is the per-record section appended after the static prefix.
	Payload string `json:"payload"`

	// PromptVersion fingerprints the static sections that produced this
	// request. Results are stamped with it for idempotent re-runs.
	PromptVersion string `json:"prompt_version"`
}

// ClassifierResult is the normalized output of the external classifier for
// one change record. Exactly one is produced per record per pipeline run;
// it is immutable once created.
type ClassifierResult struct {
	// RecordID identifies the change record this result belongs to.
	RecordID string `json:"record_id"`

	// IsAIAssisted is the classifier's verdict.
	IsAIAssisted bool `json:"is_ai_assisted"`

	// Confidence is the classifier's reported certainty in [0,1].
	Confidence float64 `json:"confidence"`

	// Tool names the AI tool the classifier attributed, if any.
	Tool string `json:"tool,omitempty"`

	// Category is the classifier's technology category, if any.
	Category string `json:"category,omitempty"`

	// RawResponse preserves the provider's response verbatim for audit.
	RawResponse string `json:"raw_response,omitempty"`

	// Failure records the taxonomy value when classification failed
	// terminally. A zero value means the result is a valid opinion.
	Failure FailureKind `json:"failure,omitempty"`

	// Provider and Model record which backend produced this result,
	// distinguishing batch results from escalated fallback results.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// PromptVersion stamps the prompt contract this result was produced
	// under. A contract bump invalidates stored results and forces
	// reprocessing.
	PromptVersion string `json:"prompt_version"`

	// CreatedAt records when the result was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the result carries a valid classifier opinion that
// the scorer may fuse. Failed results contribute nothing to the score.
func (r ClassifierResult) Usable() bool {
	return r.Failure == FailureNone
}
