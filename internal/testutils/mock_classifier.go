// Package testutils provides deterministic test doubles for the detection
// pipeline: a scriptable classifier, a canned prompt renderer, in-memory
// stores, a recording metrics collector, and change record builders.
// Everything here is safe for concurrent use so orchestrator tests can
// exercise the parallel paths they ship with.
package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// ScriptedOutcome is one pre-configured classifier response for a record.
// Exactly one of Result or Err should be set, mirroring BatchItemResult.
type ScriptedOutcome struct {
	// Result is the classification to return, nil when the call fails.
	Result *domain.ClassifierResult

	// Err is the failure to return, nil when the call succeeds.
	Err *ports.ClassificationError
}

// SuccessOutcome builds a scripted success with a deterministic verdict.
func SuccessOutcome(recordID, promptVersion string) ScriptedOutcome {
	result := SampleResult(recordID, promptVersion)
	return ScriptedOutcome{Result: &result}
}

// FailureOutcome builds a scripted failure of the given kind.
func FailureOutcome(kind domain.FailureKind, recordID string) ScriptedOutcome {
	return ScriptedOutcome{
		Err: ports.NewClassificationError(kind, recordID, "mock",
			fmt.Errorf("scripted %s failure", kind)),
	}
}

// SampleResult returns a deterministic successful classification for the
// record, attributed to the mock provider.
func SampleResult(recordID, promptVersion string) domain.ClassifierResult {
	return domain.ClassifierResult{
		RecordID:      recordID,
		IsAIAssisted:  true,
		Confidence:    0.9,
		Tool:          "Claude",
		Category:      "assistant",
		RawResponse:   `{"is_ai_assisted":true,"confidence":0.9}`,
		Provider:      "mock",
		Model:         "mock-model",
		PromptVersion: promptVersion,
		CreatedAt:     time.Now().UTC(),
	}
}

// MockClassifier is a scriptable ports.Classifier. Direct calls consume a
// per-record outcome script; batch calls return per-item outcomes from a
// separate script. Unscripted records succeed with SampleResult. Every call
// is counted so tests can assert on call volume, which is how the no-repeat
// guarantees of the orchestrator are pinned down.
type MockClassifier struct {
	mu sync.Mutex

	// direct maps record IDs to their remaining direct-call outcomes.
	// Each call consumes one entry; the last entry repeats once the
	// script is exhausted.
	direct map[string][]ScriptedOutcome

	// batchItems maps record IDs to the outcome FetchBatchResults reports.
	batchItems map[string]ScriptedOutcome

	// pollStates is the sequence of statuses PollBatch walks through.
	// The last state repeats. Empty means immediately done.
	pollStates []ports.BatchStatus

	submitBatchErr error
	pollErr        error
	fetchErr       error
	cancelErr      error

	directCalls map[string]int
	tierCalls   map[ports.CallTier]int
	batchCalls  int
	pollCalls   int
	fetchCalls  int
	cancelCalls int
	batches     [][]domain.ClassificationRequest
}

// NewMockClassifier creates a classifier whose every call succeeds until
// scripted otherwise.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		direct:      make(map[string][]ScriptedOutcome),
		batchItems:  make(map[string]ScriptedOutcome),
		directCalls: make(map[string]int),
		tierCalls:   make(map[ports.CallTier]int),
	}
}

// ScriptDirect queues outcomes for direct calls on one record. Calls consume
// the queue in order; the final outcome repeats for any further calls.
func (m *MockClassifier) ScriptDirect(recordID string, outcomes ...ScriptedOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct[recordID] = append(m.direct[recordID], outcomes...)
}

// ScriptBatchItem sets the per-item outcome FetchBatchResults reports for
// one record.
func (m *MockClassifier) ScriptBatchItem(recordID string, outcome ScriptedOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchItems[recordID] = outcome
}

// ScriptPollStates sets the status sequence PollBatch walks through.
func (m *MockClassifier) ScriptPollStates(states ...ports.BatchStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollStates = states
}

// FailSubmitBatch makes every SubmitBatch call return err.
func (m *MockClassifier) FailSubmitBatch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitBatchErr = err
}

// FailPoll makes every PollBatch call return err.
func (m *MockClassifier) FailPoll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollErr = err
}

// FailFetch makes every FetchBatchResults call return err.
func (m *MockClassifier) FailFetch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// FailCancel makes every CancelBatch call return err.
func (m *MockClassifier) FailCancel(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelErr = err
}

// SubmitDirect returns the next scripted outcome for the record, or a
// SampleResult when nothing is scripted.
func (m *MockClassifier) SubmitDirect(ctx context.Context, req domain.ClassificationRequest, tier ports.CallTier) (domain.ClassifierResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ClassifierResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.directCalls[req.RecordID]++
	m.tierCalls[tier]++

	outcome, ok := m.nextDirectOutcome(req.RecordID)
	if !ok {
		return SampleResult(req.RecordID, req.PromptVersion), nil
	}
	if outcome.Err != nil {
		return domain.ClassifierResult{}, outcome.Err
	}
	return *outcome.Result, nil
}

// nextDirectOutcome pops the record's script, leaving the last entry in
// place so it repeats. Callers must hold the mutex.
func (m *MockClassifier) nextDirectOutcome(recordID string) (ScriptedOutcome, bool) {
	queue := m.direct[recordID]
	if len(queue) == 0 {
		return ScriptedOutcome{}, false
	}
	outcome := queue[0]
	if len(queue) > 1 {
		m.direct[recordID] = queue[1:]
	}
	return outcome, true
}

// SubmitBatch records the submitted requests and returns a synthetic handle.
func (m *MockClassifier) SubmitBatch(ctx context.Context, reqs []domain.ClassificationRequest) (ports.BatchHandle, error) {
	if err := ctx.Err(); err != nil {
		return ports.BatchHandle{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.batchCalls++
	if m.submitBatchErr != nil {
		return ports.BatchHandle{}, m.submitBatchErr
	}

	batch := make([]domain.ClassificationRequest, len(reqs))
	copy(batch, reqs)
	m.batches = append(m.batches, batch)

	return ports.BatchHandle{
		ProviderBatchID: fmt.Sprintf("mockbatch_%03d", m.batchCalls),
		Provider:        "mock",
		RequestCount:    len(reqs),
	}, nil
}

// PollBatch walks the scripted status sequence; with no script the batch is
// immediately done.
func (m *MockClassifier) PollBatch(ctx context.Context, handle ports.BatchHandle) (ports.BatchStatus, error) {
	if err := ctx.Err(); err != nil {
		return ports.BatchStatus{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pollCalls++
	if m.pollErr != nil {
		return ports.BatchStatus{}, m.pollErr
	}

	if len(m.pollStates) == 0 {
		return ports.BatchStatus{
			Handle: handle,
			State:  "ended",
			Done:   true,
			Counts: ports.BatchCounts{Succeeded: handle.RequestCount},
		}, nil
	}

	next := m.pollStates[0]
	if len(m.pollStates) > 1 {
		m.pollStates = m.pollStates[1:]
	}
	next.Handle = handle
	return next, nil
}

// FetchBatchResults reports one item per request of the most recent batch,
// using scripted item outcomes and defaulting to success.
func (m *MockClassifier) FetchBatchResults(ctx context.Context, handle ports.BatchHandle) ([]ports.BatchItemResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.batches) == 0 {
		return nil, ports.ErrBatchNotFound
	}

	last := m.batches[len(m.batches)-1]
	items := make([]ports.BatchItemResult, 0, len(last))
	for _, req := range last {
		item := ports.BatchItemResult{RecordID: req.RecordID}
		if outcome, ok := m.batchItems[req.RecordID]; ok {
			item.Result = outcome.Result
			item.Err = outcome.Err
		} else {
			result := SampleResult(req.RecordID, req.PromptVersion)
			item.Result = &result
		}
		items = append(items, item)
	}
	return items, nil
}

// CancelBatch records the cancellation request.
func (m *MockClassifier) CancelBatch(ctx context.Context, handle ports.BatchHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelCalls++
	return m.cancelErr
}

// DirectCalls returns how many direct calls were made for the record.
func (m *MockClassifier) DirectCalls(recordID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.directCalls[recordID]
}

// TotalDirectCalls returns the direct call count across all records.
func (m *MockClassifier) TotalDirectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.directCalls {
		total += n
	}
	return total
}

// TierCalls returns how many direct calls used the given tier.
func (m *MockClassifier) TierCalls(tier ports.CallTier) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tierCalls[tier]
}

// BatchSubmits returns how many batches were submitted.
func (m *MockClassifier) BatchSubmits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// PollCount returns how many times PollBatch was called.
func (m *MockClassifier) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCalls
}

// CancelCount returns how many times CancelBatch was called.
func (m *MockClassifier) CancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelCalls
}

// LastBatch returns a copy of the most recently submitted batch requests.
func (m *MockClassifier) LastBatch() []domain.ClassificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.batches) == 0 {
		return nil
	}
	last := m.batches[len(m.batches)-1]
	out := make([]domain.ClassificationRequest, len(last))
	copy(out, last)
	return out
}

// Verify interface compliance at compile time.
var _ ports.Classifier = (*MockClassifier)(nil)
