// Package classifier adapts the LLM provider layer to the classification
// port: one normalized result type over two submission modes. Direct mode
// performs a synchronous call through the middleware-wrapped client; batch
// mode drives the provider's native batch surface. Every failure is
// normalized into the classification taxonomy so the orchestrator can route
// on kind alone.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/yanchuk/tformance-sub010/infrastructure/llm"
	"github.com/yanchuk/tformance-sub010/infrastructure/prompt"
	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var _ ports.Classifier = (*Adapter)(nil)

// Config defines the configuration parameters for the Adapter.
type Config struct {
	// Provider names the backend, stamped on results and errors.
	Provider string `yaml:"provider" json:"provider" validate:"required"`

	// MaxTokens is the output budget for standard-tier calls and batch
	// items.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=1"`

	// EscalatedMaxTokens is the output budget for the escalated tier.
	// Records that failed on truncation get the larger budget.
	EscalatedMaxTokens int `yaml:"escalated_max_tokens" json:"escalated_max_tokens" validate:"required,min=1"`

	// Temperature controls sampling randomness. Classification wants
	// deterministic output, so the default is zero.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=2.0"`

	// ContextWindowTokens is the provider's total token ceiling used to
	// preflight prompts before spending a request. Zero disables the
	// preflight.
	ContextWindowTokens int `yaml:"context_window_tokens" json:"context_window_tokens" validate:"min=0"`
}

// DefaultConfig returns a Config tuned for the Anthropic standard tier.
func DefaultConfig() Config {
	return Config{
		Provider:            "anthropic",
		MaxTokens:           llm.DefaultMaxTokens,
		EscalatedMaxTokens:  4 * llm.DefaultMaxTokens,
		Temperature:         0,
		ContextWindowTokens: 200000,
	}
}

// Adapter implements ports.Classifier over the provider layer. It holds one
// middleware-wrapped core per tier plus the provider's batch surface, and is
// safe for concurrent use.
type Adapter struct {
	config    Config
	standard  llm.CoreLLM
	escalated llm.CoreLLM
	batch     llm.BatchOperations
	renderer  ports.PromptRenderer
	estimator *llm.ProviderSpecificTokenEstimator
}

// NewAdapter creates an Adapter with the given tier cores and batch surface.
// The batch surface may be nil for direct-only deployments such as the
// evaluation harness; SubmitBatch then returns an error.
func NewAdapter(standard, escalated llm.CoreLLM, batch llm.BatchOperations, renderer ports.PromptRenderer, config Config) (*Adapter, error) {
	if standard == nil {
		return nil, fmt.Errorf("standard-tier core cannot be nil")
	}
	if escalated == nil {
		return nil, fmt.Errorf("escalated-tier core cannot be nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("prompt renderer cannot be nil")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &Adapter{
		config:    config,
		standard:  standard,
		escalated: escalated,
		batch:     batch,
		renderer:  renderer,
		estimator: llm.NewProviderSpecificTokenEstimator(),
	}, nil
}

// SubmitDirect performs one synchronous classification call on the selected
// tier. Failures are returned as *ports.ClassificationError carrying the
// taxonomy kind the orchestrator routes on.
func (a *Adapter) SubmitDirect(ctx context.Context, req domain.ClassificationRequest, tier ports.CallTier) (domain.ClassifierResult, error) {
	core, budget, err := a.tier(tier)
	if err != nil {
		return domain.ClassifierResult{}, err
	}

	if a.config.ContextWindowTokens > 0 {
		estimated := a.estimator.EstimateTokensForProvider(a.config.Provider, req.System+req.Payload)
		if estimated+budget > a.config.ContextWindowTokens {
			return domain.ClassifierResult{}, ports.NewClassificationError(
				domain.FailureTokenLimit, req.RecordID, a.config.Provider,
				fmt.Errorf("estimated %d prompt tokens plus %d output budget exceeds %d context window",
					estimated, budget, a.config.ContextWindowTokens))
		}
	}

	response, _, _, err := core.DoRequest(ctx, req.Payload, a.requestOpts(budget, req.System))
	if err != nil {
		return domain.ClassifierResult{}, a.classifyCallError(req.RecordID, err)
	}

	result, err := a.renderer.ValidateResponse(req.RecordID, response)
	if err != nil {
		return domain.ClassifierResult{}, a.classifyValidationError(req.RecordID, err)
	}

	result.Provider = a.config.Provider
	result.Model = core.GetModel()
	return result, nil
}

// SubmitBatch enqueues the requests as one provider-side batch and returns
// its handle without waiting for processing. The shared instruction prefix
// travels in the batch defaults; per-item payloads are the only variance.
func (a *Adapter) SubmitBatch(ctx context.Context, reqs []domain.ClassificationRequest) (ports.BatchHandle, error) {
	if a.batch == nil {
		return ports.BatchHandle{}, fmt.Errorf("batch operations not configured for provider %q", a.config.Provider)
	}
	if len(reqs) == 0 {
		return ports.BatchHandle{}, fmt.Errorf("batch must contain at least one request")
	}

	items := make([]llm.BatchItem, len(reqs))
	for i, req := range reqs {
		if req.RecordID == "" {
			return ports.BatchHandle{}, fmt.Errorf("request %d is missing a record id", i)
		}
		items[i] = llm.BatchItem{
			CustomID: req.RecordID,
			Prompt:   req.Payload,
		}
	}

	batchID, err := a.batch.SubmitBatch(ctx, items, a.requestOpts(a.config.MaxTokens, reqs[0].System))
	if err != nil {
		return ports.BatchHandle{}, a.classifyCallError("", err)
	}

	return ports.BatchHandle{
		ProviderBatchID: batchID,
		Provider:        a.config.Provider,
		RequestCount:    len(reqs),
	}, nil
}

// PollBatch reports the batch's current processing status.
func (a *Adapter) PollBatch(ctx context.Context, handle ports.BatchHandle) (ports.BatchStatus, error) {
	if a.batch == nil {
		return ports.BatchStatus{}, fmt.Errorf("batch operations not configured for provider %q", a.config.Provider)
	}

	snapshot, err := a.batch.GetBatch(ctx, handle.ProviderBatchID)
	if err != nil {
		return ports.BatchStatus{}, a.classifyCallError("", err)
	}

	return ports.BatchStatus{
		Handle: handle,
		State:  snapshot.State,
		Done:   snapshot.Done,
		Counts: ports.BatchCounts{
			Processing: snapshot.Counts.Processing,
			Succeeded:  snapshot.Counts.Succeeded,
			Errored:    snapshot.Counts.Errored,
			Canceled:   snapshot.Counts.Canceled,
			Expired:    snapshot.Counts.Expired,
		},
	}, nil
}

// FetchBatchResults retrieves per-item outcomes for a finished batch.
// Item-level failures are carried inside the results; the returned error is
// reserved for failures of the fetch itself.
func (a *Adapter) FetchBatchResults(ctx context.Context, handle ports.BatchHandle) ([]ports.BatchItemResult, error) {
	if a.batch == nil {
		return nil, fmt.Errorf("batch operations not configured for provider %q", a.config.Provider)
	}

	raws, err := a.batch.FetchBatchResults(ctx, handle.ProviderBatchID)
	if err != nil {
		return nil, a.classifyCallError("", err)
	}

	items := make([]ports.BatchItemResult, 0, len(raws))
	for _, raw := range raws {
		if raw.Err != nil {
			items = append(items, ports.BatchItemResult{
				RecordID: raw.CustomID,
				Err:      a.classifyCallError(raw.CustomID, raw.Err),
			})
			continue
		}

		result, err := a.renderer.ValidateResponse(raw.CustomID, raw.Response)
		if err != nil {
			items = append(items, ports.BatchItemResult{
				RecordID: raw.CustomID,
				Err:      a.classifyValidationError(raw.CustomID, err),
			})
			continue
		}

		result.Provider = a.config.Provider
		result.Model = a.standard.GetModel()
		items = append(items, ports.BatchItemResult{RecordID: raw.CustomID, Result: &result})
	}

	return items, nil
}

// CancelBatch asks the provider to stop a batch. Already-completed item
// results are unaffected and remain fetchable.
func (a *Adapter) CancelBatch(ctx context.Context, handle ports.BatchHandle) error {
	if a.batch == nil {
		return fmt.Errorf("batch operations not configured for provider %q", a.config.Provider)
	}

	if err := a.batch.CancelBatch(ctx, handle.ProviderBatchID); err != nil {
		return a.classifyCallError("", err)
	}
	return nil
}

// tier resolves the core and output budget for a call tier.
func (a *Adapter) tier(tier ports.CallTier) (llm.CoreLLM, int, error) {
	switch tier {
	case ports.TierStandard:
		return a.standard, a.config.MaxTokens, nil
	case ports.TierEscalated:
		return a.escalated, a.config.EscalatedMaxTokens, nil
	default:
		return nil, 0, fmt.Errorf("unknown call tier %q", tier)
	}
}

// requestOpts builds the per-request option map. The json_response hint is
// honored by providers with a native JSON mode and ignored by the rest.
func (a *Adapter) requestOpts(maxTokens int, system string) map[string]any {
	opts := map[string]any{
		"max_tokens":    maxTokens,
		"temperature":   a.config.Temperature,
		"json_response": true,
	}
	if system != "" {
		opts["system"] = system
	}
	return opts
}

// classifyCallError maps a provider-layer error onto the failure taxonomy.
// Token-limit errors escalate, retryable provider errors and transport
// errors are transient, everything else is fatal.
func (a *Adapter) classifyCallError(recordID string, err error) *ports.ClassificationError {
	provider := a.config.Provider
	kind := domain.FailureTransientProvider

	var provErr *llm.ProviderError
	switch {
	case errors.As(err, &provErr):
		if provErr.Provider != "" {
			provider = provErr.Provider
		}
		switch {
		case provErr.Type == llm.ErrorTypeTokenLimit:
			kind = domain.FailureTokenLimit
		case provErr.IsRetryable():
			kind = domain.FailureTransientProvider
		default:
			kind = domain.FailureFatalProvider
		}
	case errors.Is(err, llm.ErrCircuitOpen),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = domain.FailureTransientProvider
	}

	return ports.NewClassificationError(kind, recordID, provider, err)
}

// classifyValidationError maps a response-contract failure onto the
// taxonomy. Truncated JSON means the model ran out of output tokens;
// everything else violated the schema.
func (a *Adapter) classifyValidationError(recordID string, err error) *ports.ClassificationError {
	kind := domain.FailureSchemaValidation
	if errors.Is(err, prompt.ErrTruncatedJSON) {
		kind = domain.FailureTokenLimit
	}
	return ports.NewClassificationError(kind, recordID, a.config.Provider, err)
}
