package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanchuk/tformance-sub010/infrastructure/llm"
	"github.com/yanchuk/tformance-sub010/infrastructure/prompt"
	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

const validResponse = `{"is_ai_assisted": true, "confidence": 0.9, "tool": "Claude", "category": "assistant"}`

func newTestRenderer(t *testing.T) *prompt.Renderer {
	t.Helper()
	r, err := prompt.NewRenderer(prompt.DefaultConfig())
	require.NoError(t, err)
	return r
}

func newTestAdapter(t *testing.T, standard, escalated llm.CoreLLM, batch llm.BatchOperations) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(standard, escalated, batch, newTestRenderer(t), DefaultConfig())
	require.NoError(t, err)
	return adapter
}

func testRequest(recordID string) domain.ClassificationRequest {
	return domain.ClassificationRequest{
		RecordID: recordID,
		System:   "You are a software-engineering analyst.",
		Payload:  "## Change record\n\nID: " + recordID,
	}
}

// mockBatchOps is a configurable llm.BatchOperations for adapter tests.
type mockBatchOps struct {
	submitID       string
	submitErr      error
	submittedItems []llm.BatchItem
	submittedOpts  map[string]any

	snapshot llm.BatchSnapshot
	getErr   error

	results  []llm.BatchResult
	fetchErr error

	canceled  []string
	cancelErr error
}

func (m *mockBatchOps) SubmitBatch(ctx context.Context, items []llm.BatchItem, opts map[string]any) (string, error) {
	m.submittedItems = items
	m.submittedOpts = opts
	if m.submitErr != nil {
		return "", m.submitErr
	}
	return m.submitID, nil
}

func (m *mockBatchOps) GetBatch(ctx context.Context, batchID string) (llm.BatchSnapshot, error) {
	if m.getErr != nil {
		return llm.BatchSnapshot{}, m.getErr
	}
	return m.snapshot, nil
}

func (m *mockBatchOps) FetchBatchResults(ctx context.Context, batchID string) ([]llm.BatchResult, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.results, nil
}

func (m *mockBatchOps) CancelBatch(ctx context.Context, batchID string) error {
	m.canceled = append(m.canceled, batchID)
	return m.cancelErr
}

func TestNewAdapter(t *testing.T) {
	renderer := newTestRenderer(t)

	tests := []struct {
		name        string
		standard    llm.CoreLLM
		escalated   llm.CoreLLM
		renderer    ports.PromptRenderer
		config      Config
		expectError string
	}{
		{
			name:      "valid with nil batch surface",
			standard:  llm.NewMockCoreLLM(),
			escalated: llm.NewMockCoreLLM(),
			renderer:  renderer,
			config:    DefaultConfig(),
		},
		{
			name:        "nil standard core",
			escalated:   llm.NewMockCoreLLM(),
			renderer:    renderer,
			config:      DefaultConfig(),
			expectError: "standard-tier core cannot be nil",
		},
		{
			name:        "nil escalated core",
			standard:    llm.NewMockCoreLLM(),
			renderer:    renderer,
			config:      DefaultConfig(),
			expectError: "escalated-tier core cannot be nil",
		},
		{
			name:        "nil renderer",
			standard:    llm.NewMockCoreLLM(),
			escalated:   llm.NewMockCoreLLM(),
			config:      DefaultConfig(),
			expectError: "prompt renderer cannot be nil",
		},
		{
			name:        "zero max tokens rejected",
			standard:    llm.NewMockCoreLLM(),
			escalated:   llm.NewMockCoreLLM(),
			renderer:    renderer,
			config:      Config{Provider: "anthropic", EscalatedMaxTokens: 2048},
			expectError: "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(tt.standard, tt.escalated, nil, tt.renderer, tt.config)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, adapter)
		})
	}
}

func TestAdapter_SubmitDirect(t *testing.T) {
	mock := llm.NewMockCoreLLM()
	mock.Response = validResponse
	adapter := newTestAdapter(t, mock, llm.NewMockCoreLLM(), nil)

	result, err := adapter.SubmitDirect(context.Background(), testRequest("rec-1"), ports.TierStandard)
	require.NoError(t, err)

	assert.Equal(t, "rec-1", result.RecordID)
	assert.True(t, result.IsAIAssisted)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, "Claude", result.Tool)
	assert.Equal(t, "anthropic", result.Provider)
	assert.Equal(t, "test-model", result.Model)
	assert.True(t, result.Usable())

	// The payload is the user turn; the static prefix rides as the system option.
	assert.Equal(t, testRequest("rec-1").Payload, mock.LastPrompt)
	assert.Equal(t, "You are a software-engineering analyst.", mock.LastOpts["system"])
	assert.Equal(t, DefaultConfig().MaxTokens, mock.LastOpts["max_tokens"])
	assert.Equal(t, true, mock.LastOpts["json_response"])
}

func TestAdapter_SubmitDirect_EscalatedTier(t *testing.T) {
	standard := llm.NewMockCoreLLM()
	escalated := llm.NewMockCoreLLM()
	escalated.Response = validResponse
	escalated.Model = "bigger-model"
	adapter := newTestAdapter(t, standard, escalated, nil)

	result, err := adapter.SubmitDirect(context.Background(), testRequest("rec-2"), ports.TierEscalated)
	require.NoError(t, err)

	assert.Equal(t, 0, standard.GetCallCount(), "standard tier must not be touched")
	assert.Equal(t, 1, escalated.GetCallCount())
	assert.Equal(t, DefaultConfig().EscalatedMaxTokens, escalated.LastOpts["max_tokens"])
	assert.Equal(t, "bigger-model", result.Model)
}

func TestAdapter_SubmitDirect_UnknownTier(t *testing.T) {
	adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), nil)

	_, err := adapter.SubmitDirect(context.Background(), testRequest("rec-3"), ports.CallTier("turbo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown call tier")
}

func TestAdapter_SubmitDirect_FailureTaxonomy(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		callErr      error
		wantKind     domain.FailureKind
		wantSentinel error
	}{
		{
			name:         "prose response violates schema",
			response:     "This change looks entirely human-written to me.",
			wantKind:     domain.FailureSchemaValidation,
			wantSentinel: prompt.ErrNoJSON,
		},
		{
			name:         "truncated JSON maps to token limit",
			response:     `{"is_ai_assisted": true, "confi`,
			wantKind:     domain.FailureTokenLimit,
			wantSentinel: prompt.ErrTruncatedJSON,
		},
		{
			name:     "out of range confidence violates schema",
			response: `{"is_ai_assisted": true, "confidence": 1.7, "tool": "", "category": ""}`,
			wantKind: domain.FailureSchemaValidation,
		},
		{
			name:     "rate limit is transient",
			callErr:  llm.NewProviderError("anthropic", llm.ErrorTypeRateLimit, 429, "slow down", nil),
			wantKind: domain.FailureTransientProvider,
		},
		{
			name:     "server error is transient",
			callErr:  llm.NewProviderError("anthropic", llm.ErrorTypeServerError, 500, "overloaded", nil),
			wantKind: domain.FailureTransientProvider,
		},
		{
			name:     "authentication is fatal",
			callErr:  llm.NewProviderError("anthropic", llm.ErrorTypeAuthentication, 401, "bad key", nil),
			wantKind: domain.FailureFatalProvider,
		},
		{
			name:     "bad request is fatal",
			callErr:  llm.NewProviderError("anthropic", llm.ErrorTypeBadRequest, 400, "rejected", nil),
			wantKind: domain.FailureFatalProvider,
		},
		{
			name:     "provider token limit escalates",
			callErr:  llm.NewProviderError("anthropic", llm.ErrorTypeTokenLimit, 400, "prompt is too long", nil),
			wantKind: domain.FailureTokenLimit,
		},
		{
			name:     "open circuit is transient",
			callErr:  llm.ErrCircuitOpen,
			wantKind: domain.FailureTransientProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockCoreLLM()
			mock.Response = tt.response
			mock.Error = tt.callErr
			adapter := newTestAdapter(t, mock, llm.NewMockCoreLLM(), nil)

			_, err := adapter.SubmitDirect(context.Background(), testRequest("rec-4"), ports.TierStandard)
			require.Error(t, err)

			cerr, ok := ports.AsClassificationError(err)
			require.True(t, ok, "expected a classification error, got %T", err)
			assert.Equal(t, tt.wantKind, cerr.Kind)
			assert.Equal(t, "rec-4", cerr.RecordID)

			if tt.wantSentinel != nil {
				assert.ErrorIs(t, err, tt.wantSentinel)
			}
		})
	}
}

func TestAdapter_SubmitDirect_PreflightTokenLimit(t *testing.T) {
	mock := llm.NewMockCoreLLM()
	config := DefaultConfig()
	config.ContextWindowTokens = 100

	adapter, err := NewAdapter(mock, llm.NewMockCoreLLM(), nil, newTestRenderer(t), config)
	require.NoError(t, err)

	req := testRequest("rec-5")
	req.Payload = strings.Repeat("change record data ", 400)

	_, err = adapter.SubmitDirect(context.Background(), req, ports.TierStandard)
	require.Error(t, err)

	cerr, ok := ports.AsClassificationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.FailureTokenLimit, cerr.Kind)
	assert.Equal(t, 0, mock.GetCallCount(), "preflight must reject before spending a request")
}

func TestAdapter_SubmitBatch(t *testing.T) {
	batch := &mockBatchOps{submitID: "msgbatch_42"}
	adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), batch)

	reqs := []domain.ClassificationRequest{testRequest("rec-1"), testRequest("rec-2")}
	handle, err := adapter.SubmitBatch(context.Background(), reqs)
	require.NoError(t, err)

	assert.Equal(t, "msgbatch_42", handle.ProviderBatchID)
	assert.Equal(t, "anthropic", handle.Provider)
	assert.Equal(t, 2, handle.RequestCount)

	require.Len(t, batch.submittedItems, 2)
	assert.Equal(t, "rec-1", batch.submittedItems[0].CustomID)
	assert.Equal(t, "rec-2", batch.submittedItems[1].CustomID)
	assert.Equal(t, reqs[0].Payload, batch.submittedItems[0].Prompt)

	// The shared instruction prefix travels once, in the batch defaults.
	assert.Equal(t, reqs[0].System, batch.submittedOpts["system"])
	assert.Equal(t, DefaultConfig().MaxTokens, batch.submittedOpts["max_tokens"])
}

func TestAdapter_SubmitBatch_Validation(t *testing.T) {
	t.Run("nil batch surface", func(t *testing.T) {
		adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), nil)
		_, err := adapter.SubmitBatch(context.Background(), []domain.ClassificationRequest{testRequest("rec-1")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("empty request list", func(t *testing.T) {
		adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), &mockBatchOps{})
		_, err := adapter.SubmitBatch(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one request")
	})

	t.Run("missing record id", func(t *testing.T) {
		adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), &mockBatchOps{})
		_, err := adapter.SubmitBatch(context.Background(), []domain.ClassificationRequest{{Payload: "p"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record id")
	})

	t.Run("submit failure is classified", func(t *testing.T) {
		batch := &mockBatchOps{
			submitErr: llm.NewProviderError("anthropic", llm.ErrorTypeServerError, 529, "overloaded", nil),
		}
		adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), batch)

		_, err := adapter.SubmitBatch(context.Background(), []domain.ClassificationRequest{testRequest("rec-1")})
		require.Error(t, err)

		cerr, ok := ports.AsClassificationError(err)
		require.True(t, ok)
		assert.Equal(t, domain.FailureTransientProvider, cerr.Kind)
	})
}

func TestAdapter_PollBatch(t *testing.T) {
	batch := &mockBatchOps{
		snapshot: llm.BatchSnapshot{
			BatchID: "msgbatch_42",
			State:   llm.BatchStateEnded,
			Done:    true,
			Counts:  llm.BatchCounts{Processing: 0, Succeeded: 8, Errored: 1, Canceled: 0, Expired: 1},
		},
	}
	adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), batch)

	handle := ports.BatchHandle{ProviderBatchID: "msgbatch_42", Provider: "anthropic", RequestCount: 10}
	status, err := adapter.PollBatch(context.Background(), handle)
	require.NoError(t, err)

	assert.Equal(t, handle, status.Handle)
	assert.Equal(t, llm.BatchStateEnded, status.State)
	assert.True(t, status.Done)
	assert.Equal(t, 8, status.Counts.Succeeded)
	assert.Equal(t, 1, status.Counts.Errored)
	assert.Equal(t, 1, status.Counts.Expired)
}

func TestAdapter_FetchBatchResults(t *testing.T) {
	batch := &mockBatchOps{
		results: []llm.BatchResult{
			{CustomID: "rec-1", Response: validResponse, TokensIn: 12, TokensOut: 9},
			{CustomID: "rec-2", Err: llm.NewProviderError("anthropic", llm.ErrorTypeTokenLimit, 400, "prompt is too long", nil)},
			{CustomID: "rec-3", Response: "no json in here"},
			{CustomID: "rec-4", Err: llm.NewProviderError("anthropic", llm.ErrorTypeRateLimit, 429, "slow down", nil)},
		},
	}
	adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), batch)

	handle := ports.BatchHandle{ProviderBatchID: "msgbatch_42", Provider: "anthropic", RequestCount: 4}
	items, err := adapter.FetchBatchResults(context.Background(), handle)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "rec-1", items[0].RecordID)
	require.NotNil(t, items[0].Result)
	assert.True(t, items[0].Result.IsAIAssisted)
	assert.Equal(t, "anthropic", items[0].Result.Provider)
	assert.Equal(t, "test-model", items[0].Result.Model)

	require.NotNil(t, items[1].Err)
	assert.Equal(t, domain.FailureTokenLimit, items[1].Err.Kind)

	require.NotNil(t, items[2].Err)
	assert.Equal(t, domain.FailureSchemaValidation, items[2].Err.Kind)

	require.NotNil(t, items[3].Err)
	assert.Equal(t, domain.FailureTransientProvider, items[3].Err.Kind)
}

func TestAdapter_CancelBatch(t *testing.T) {
	batch := &mockBatchOps{}
	adapter := newTestAdapter(t, llm.NewMockCoreLLM(), llm.NewMockCoreLLM(), batch)

	handle := ports.BatchHandle{ProviderBatchID: "msgbatch_42", Provider: "anthropic"}
	require.NoError(t, adapter.CancelBatch(context.Background(), handle))
	assert.Equal(t, []string{"msgbatch_42"}, batch.canceled)

	batch.cancelErr = errors.New("gone")
	err := adapter.CancelBatch(context.Background(), handle)
	require.Error(t, err)
}
