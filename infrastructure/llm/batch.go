package llm

import (
	"context"
	"fmt"
)

// Normalized batch processing states reported by GetBatch.
// Providers map their own status vocabulary onto these values.
const (
	BatchStateInProgress = "in_progress"
	BatchStateCanceling  = "canceling"
	BatchStateEnded      = "ended"
)

// BatchItem is one request inside a provider-side batch.
type BatchItem struct {
	// CustomID correlates the item with its result entry.
	// Providers echo it back verbatim.
	CustomID string

	// Prompt is the user-turn content for this item.
	Prompt string

	// Opts carries the same per-request options DoRequest accepts
	// (model, max_tokens, temperature, system).
	Opts map[string]any
}

// BatchCounts breaks down the processing states of a batch's items.
type BatchCounts struct {
	Processing int
	Succeeded  int
	Errored    int
	Canceled   int
	Expired    int
}

// BatchSnapshot is a point-in-time view of one provider-side batch.
type BatchSnapshot struct {
	// BatchID is the provider's identifier for the batch.
	BatchID string

	// State is the normalized processing state.
	State string

	// Done reports whether processing has ended and results can be fetched.
	Done bool

	// Counts breaks down item states.
	Counts BatchCounts
}

// BatchResult is the per-item outcome streamed back from a finished batch.
// Exactly one of Response or Err carries the outcome.
type BatchResult struct {
	// CustomID is the identifier the item was submitted under.
	CustomID string

	// Response is the raw text returned for a succeeded item.
	Response string

	// TokensIn and TokensOut are the usage reported for a succeeded item.
	TokensIn  int
	TokensOut int

	// Err describes an item-level failure. Provider errors are wrapped
	// as *ProviderError so callers can classify them.
	Err error
}

// BatchOperations is the asynchronous half of a batch-capable provider.
// Submission returns immediately with a batch ID; processing happens on the
// provider's side and results are fetched once the batch has ended.
type BatchOperations interface {
	// SubmitBatch enqueues the items as one batch and returns its ID.
	// The opts parameter supplies request defaults applied to items that
	// do not override them.
	SubmitBatch(ctx context.Context, items []BatchItem, opts map[string]any) (string, error)

	// GetBatch reports the batch's current processing snapshot.
	GetBatch(ctx context.Context, batchID string) (BatchSnapshot, error)

	// FetchBatchResults retrieves per-item outcomes for an ended batch.
	FetchBatchResults(ctx context.Context, batchID string) ([]BatchResult, error)

	// CancelBatch asks the provider to stop processing the batch.
	// Items that already completed keep their results.
	CancelBatch(ctx context.Context, batchID string) error
}

// BatchCoreLLM is a provider that serves both synchronous requests and
// asynchronous batches.
type BatchCoreLLM interface {
	CoreLLM
	BatchOperations
}

// NewBatchOperations creates the batch surface for a provider.
// Middleware does not apply here: batch calls are control-plane operations
// driven by the orchestrator's own polling and retry policy.
// Providers without batch support return an error.
func NewBatchOperations(providerType string, config ClientConfig) (BatchOperations, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	ops, ok := core.(BatchOperations)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support batch operations", providerType)
	}

	return ops, nil
}
