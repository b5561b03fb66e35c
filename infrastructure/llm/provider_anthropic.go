package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic provider constants
const (
	// AnthropicDefaultModel is the default Anthropic model used for batch
	// classification work.
	AnthropicDefaultModel = "claude-3-5-haiku-20241022"

	// AnthropicEscalationModel is the larger model used when a record is
	// retried on the escalated direct path.
	AnthropicEscalationModel = "claude-3-5-sonnet-20241022"
)

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements the BatchCoreLLM interface for Anthropic's
// Claude API. It serves synchronous requests through the Messages API and
// asynchronous work through the Message Batches API, normalizing both into
// the common request and error vocabulary.
type anthropicProvider struct {
	BaseProvider
	client          anthropic.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// requestConfig holds parsed request configuration
type requestConfig struct {
	maxTokens   int
	model       string
	temperature *float64
	system      string
}

// newAnthropicProvider creates a new Anthropic provider instance.
// This factory function configures the provider for Anthropic's API
// and validates that required configuration is present.
func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key cannot be empty")
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &anthropicProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          client,
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends a request to Anthropic's Claude API and returns the response.
// This method handles Anthropic-specific request formatting, authentication,
// and response parsing while tracking token usage.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	config := p.parseRequestOptions(opts)
	params := p.buildMessageParams(prompt, config)

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, p.wrapError(err)
	}

	if message.StopReason == anthropic.StopReasonMaxTokens {
		return "", 0, 0, p.errorClassifier.ClassifyTruncation(config.model)
	}

	return p.extractMessage(message)
}

// SubmitBatch enqueues the items as one Message Batch and returns the
// provider's batch ID. Item options override the shared defaults.
func (p *anthropicProvider) SubmitBatch(ctx context.Context, items []BatchItem, opts map[string]any) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("anthropic batch requires at least one item")
	}

	requests := make([]anthropic.MessageBatchNewParamsRequest, 0, len(items))
	for _, item := range items {
		if item.CustomID == "" {
			return "", fmt.Errorf("anthropic batch item missing custom_id")
		}

		config := p.parseRequestOptions(mergeOptions(opts, item.Opts))
		requests = append(requests, anthropic.MessageBatchNewParamsRequest{
			CustomID: item.CustomID,
			Params:   p.buildBatchRequestParams(item.Prompt, config),
		})
	}

	batch, err := p.client.Messages.Batches.New(ctx, anthropic.MessageBatchNewParams{
		Requests: requests,
	})
	if err != nil {
		return "", p.wrapError(err)
	}

	return batch.ID, nil
}

// GetBatch reports the current processing snapshot for a Message Batch.
func (p *anthropicProvider) GetBatch(ctx context.Context, batchID string) (BatchSnapshot, error) {
	batch, err := p.client.Messages.Batches.Get(ctx, batchID)
	if err != nil {
		return BatchSnapshot{}, p.wrapError(err)
	}

	snapshot := BatchSnapshot{
		BatchID: batch.ID,
		Counts: BatchCounts{
			Processing: int(batch.RequestCounts.Processing),
			Succeeded:  int(batch.RequestCounts.Succeeded),
			Errored:    int(batch.RequestCounts.Errored),
			Canceled:   int(batch.RequestCounts.Canceled),
			Expired:    int(batch.RequestCounts.Expired),
		},
	}

	switch batch.ProcessingStatus {
	case anthropic.MessageBatchProcessingStatusInProgress:
		snapshot.State = BatchStateInProgress
	case anthropic.MessageBatchProcessingStatusCanceling:
		snapshot.State = BatchStateCanceling
	case anthropic.MessageBatchProcessingStatusEnded:
		snapshot.State = BatchStateEnded
		snapshot.Done = true
	default:
		snapshot.State = string(batch.ProcessingStatus)
	}

	return snapshot, nil
}

// FetchBatchResults streams per-item outcomes for an ended Message Batch.
// Item-level failures are carried inside the results as classified
// provider errors; only transport problems surface as the returned error.
func (p *anthropicProvider) FetchBatchResults(ctx context.Context, batchID string) ([]BatchResult, error) {
	stream := p.client.Messages.Batches.ResultsStreaming(ctx, batchID)
	defer stream.Close()

	var results []BatchResult
	for stream.Next() {
		entry := stream.Current()
		result := BatchResult{CustomID: entry.CustomID}

		switch res := entry.Result.AsAny().(type) {
		case anthropic.MessageBatchSucceededResult:
			text, tokensIn, tokensOut, err := p.extractMessage(&res.Message)
			if err != nil {
				result.Err = err
			} else if res.Message.StopReason == anthropic.StopReasonMaxTokens {
				result.Err = p.errorClassifier.ClassifyTruncation(string(res.Message.Model))
			} else {
				result.Response = text
				result.TokensIn = tokensIn
				result.TokensOut = tokensOut
			}
		case anthropic.MessageBatchErroredResult:
			result.Err = p.classifyBatchItemError(res.Error.Error.Type, res.Error.Error.Message)
		case anthropic.MessageBatchCanceledResult:
			result.Err = NewProviderError("anthropic", ErrorTypeTimeout, 0, "batch item canceled", nil)
		case anthropic.MessageBatchExpiredResult:
			result.Err = NewProviderError("anthropic", ErrorTypeTimeout, 0, "batch item expired", nil)
		default:
			result.Err = NewProviderError("anthropic", ErrorTypeUnknown, 0, "unrecognized batch result", nil)
		}

		results = append(results, result)
	}

	if err := stream.Err(); err != nil {
		return nil, p.wrapError(err)
	}

	return results, nil
}

// CancelBatch asks Anthropic to stop processing the batch. Items that
// already completed keep their results and remain fetchable.
func (p *anthropicProvider) CancelBatch(ctx context.Context, batchID string) error {
	if _, err := p.client.Messages.Batches.Cancel(ctx, batchID); err != nil {
		return p.wrapError(err)
	}
	return nil
}

// parseRequestOptions extracts and validates request options with defaults
func (p *anthropicProvider) parseRequestOptions(opts map[string]any) requestConfig {
	config := requestConfig{
		maxTokens: ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		model:     ExtractOptionalString(opts, "model", p.GetModel(), IsNonEmptyString),
		system:    ExtractOptionalString(opts, "system", "", nil), // Empty string is valid for system
	}

	if temp := ExtractOptionalFloat64(opts, "temperature", -1, IsValidTemperature); temp != -1 {
		config.temperature = &temp
	}

	return config
}

// buildMessageParams creates the API request parameters
func (p *anthropicProvider) buildMessageParams(prompt string, config requestConfig) anthropic.MessageNewParams {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(config.model),
		MaxTokens: int64(config.maxTokens),
		Messages:  messages,
	}

	if config.temperature != nil {
		params.Temperature = anthropic.Float(*config.temperature)
	}

	if config.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: config.system}}
	}

	return params
}

// buildBatchRequestParams creates per-item parameters for a batch request.
// The shapes mirror buildMessageParams; batches use a parallel params type.
func (p *anthropicProvider) buildBatchRequestParams(prompt string, config requestConfig) anthropic.MessageBatchNewParamsRequestParams {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	params := anthropic.MessageBatchNewParamsRequestParams{
		Model:     anthropic.Model(config.model),
		MaxTokens: int64(config.maxTokens),
		Messages:  messages,
	}

	if config.temperature != nil {
		params.Temperature = anthropic.Float(*config.temperature)
	}

	if config.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: config.system}}
	}

	return params
}

// extractMessage pulls the text blocks and usage out of a completed message.
func (p *anthropicProvider) extractMessage(message *anthropic.Message) (string, int, int, error) {
	var responseText strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			responseText.WriteString(content.Text)
		}
	}

	responseStr := responseText.String()
	if responseStr == "" {
		return "", 0, 0, NewProviderError("anthropic", ErrorTypeUnknown, 0, "empty response from API", ErrEmptyResponse)
	}

	tokensIn := p.tokenCounter.GetTokenCount(int(message.Usage.InputTokens), "")
	tokensOut := p.tokenCounter.GetTokenCount(int(message.Usage.OutputTokens), responseStr)

	return responseStr, tokensIn, tokensOut, nil
}

// wrapError converts Anthropic SDK errors into classified provider errors.
func (p *anthropicProvider) wrapError(err error) error {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return p.errorClassifier.ClassifyHTTPError(anthropicErr.StatusCode, err.Error(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}

// classifyBatchItemError maps a batch item's error object onto the common
// provider error types. Batch items carry API error shapes, not HTTP codes.
func (p *anthropicProvider) classifyBatchItemError(errType, message string) *ProviderError {
	var kind ErrorType
	switch errType {
	case "rate_limit_error":
		kind = ErrorTypeRateLimit
	case "authentication_error", "permission_error":
		kind = ErrorTypeAuthentication
	case "invalid_request_error":
		if IsTokenLimitMessage(message) {
			kind = ErrorTypeTokenLimit
		} else {
			kind = ErrorTypeBadRequest
		}
	case "api_error", "overloaded_error":
		kind = ErrorTypeServerError
	case "timeout_error":
		kind = ErrorTypeTimeout
	default:
		kind = ErrorTypeUnknown
	}

	return NewProviderError("anthropic", kind, 0, message, nil)
}

// mergeOptions overlays per-item options on top of shared defaults.
func mergeOptions(defaults, overrides map[string]any) map[string]any {
	if len(overrides) == 0 {
		return defaults
	}
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
