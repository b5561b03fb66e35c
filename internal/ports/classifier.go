package ports

import (
	"context"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// CallTier selects the model configuration for a direct classification call.
// The escalated tier uses a larger model and token budget; the orchestrator
// reserves it for the fallback path after schema or token-limit failures.
type CallTier string

const (
	// TierStandard is the default direct-call configuration.
	TierStandard CallTier = "standard"

	// TierEscalated is the larger-model, larger-budget configuration.
	TierEscalated CallTier = "escalated"
)

// RenderOptions tune how a classification request is rendered.
type RenderOptions struct {
	// MaxPayloadRunes caps the per-record payload section. Zero applies
	// the renderer's default budget. The escalated tier renders with a
	// larger budget so truncation-prone records survive the fallback.
	MaxPayloadRunes int
}

// PromptRenderer builds classification requests and validates responses
// against the structured-output contract.
type PromptRenderer interface {
	// Render builds the request for one change record. The static
	// instruction prefix is byte-identical across records so providers
	// can cache it; only the payload varies.
	Render(record domain.ChangeRecord, opts RenderOptions) (domain.ClassificationRequest, error)

	// ValidateResponse parses and validates a raw provider response.
	// A conforming response yields a result; anything else is an error,
	// never a coerced default.
	ValidateResponse(recordID, raw string) (domain.ClassifierResult, error)

	// Version fingerprints the static sections. Results are stamped with
	// it so a contract bump forces reprocessing.
	Version() string
}

// BatchHandle is the opaque reference to one provider-side batch.
type BatchHandle struct {
	// ProviderBatchID is the provider's identifier for the batch.
	ProviderBatchID string `json:"provider_batch_id"`

	// Provider names the backend holding the batch.
	Provider string `json:"provider"`

	// RequestCount is the number of requests submitted in the batch.
	RequestCount int `json:"request_count"`
}

// BatchCounts summarizes per-item processing states reported by the provider.
type BatchCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

// BatchStatus is a point-in-time snapshot of a provider-side batch.
type BatchStatus struct {
	// Handle identifies the batch being reported on.
	Handle BatchHandle `json:"handle"`

	// State is the provider's processing state, normalized to lowercase.
	State string `json:"state"`

	// Done reports whether results are ready to fetch.
	Done bool `json:"done"`

	// Counts breaks down item states for monitoring.
	Counts BatchCounts `json:"counts"`
}

// BatchItemResult is the per-record outcome of a fetched batch: exactly one
// of Result or Err is set.
type BatchItemResult struct {
	// RecordID identifies the change record.
	RecordID string

	// Result is the validated classification, nil when the item failed.
	Result *domain.ClassifierResult

	// Err describes the failure, nil when the item succeeded.
	Err *ClassificationError
}

// Classifier is the external classifier adapter: a single normalized result
// type over two submission modes. Direct mode performs one synchronous call;
// batch mode enqueues many requests behind an opaque handle. Every
// non-conforming response surfaces as a ClassificationError so the
// orchestrator can apply routing policy; the adapter never silently coerces
// an invalid response into a default result.
type Classifier interface {
	// SubmitDirect performs one synchronous classification call.
	// Failures are returned as *ClassificationError.
	SubmitDirect(ctx context.Context, req domain.ClassificationRequest, tier CallTier) (domain.ClassifierResult, error)

	// SubmitBatch enqueues the requests as one provider-side batch and
	// returns its handle without waiting for processing.
	SubmitBatch(ctx context.Context, reqs []domain.ClassificationRequest) (BatchHandle, error)

	// PollBatch reports the batch's current processing status.
	PollBatch(ctx context.Context, handle BatchHandle) (BatchStatus, error)

	// FetchBatchResults retrieves per-item outcomes for a finished batch.
	// Item-level failures are carried inside the results, not as the
	// returned error.
	FetchBatchResults(ctx context.Context, handle BatchHandle) ([]BatchItemResult, error)

	// CancelBatch asks the provider to stop a batch, used when the poll
	// ceiling is exceeded. Already-completed item results are unaffected.
	CancelBatch(ctx context.Context, handle BatchHandle) error
}
