package testutils

import (
	"fmt"
	"sync"
	"time"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// MockRenderer is a canned ports.PromptRenderer. Rendered requests carry a
// fixed system section and a payload derived from the record ID, so tests
// can match requests back to records without parsing prompt text.
type MockRenderer struct {
	mu sync.Mutex

	version    string
	renderErrs map[string]error
	calls      map[string]int
	lastOpts   map[string]ports.RenderOptions
}

// NewMockRenderer creates a renderer reporting the given prompt version.
func NewMockRenderer(version string) *MockRenderer {
	return &MockRenderer{
		version:    version,
		renderErrs: make(map[string]error),
		calls:      make(map[string]int),
		lastOpts:   make(map[string]ports.RenderOptions),
	}
}

// FailRender makes Render fail for one record.
func (m *MockRenderer) FailRender(recordID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderErrs[recordID] = err
}

// Render builds a deterministic request for the record.
func (m *MockRenderer) Render(record domain.ChangeRecord, opts ports.RenderOptions) (domain.ClassificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[record.ID]++
	m.lastOpts[record.ID] = opts
	if err := m.renderErrs[record.ID]; err != nil {
		return domain.ClassificationRequest{}, err
	}

	return domain.ClassificationRequest{
		RecordID:      record.ID,
		System:        "classify change records for AI assistance",
		Payload:       fmt.Sprintf("record %s: %s", record.ID, record.Title),
		PromptVersion: m.version,
	}, nil
}

// ValidateResponse accepts any raw response and returns a deterministic
// successful result carrying it.
func (m *MockRenderer) ValidateResponse(recordID, raw string) (domain.ClassifierResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.ClassifierResult{
		RecordID:      recordID,
		IsAIAssisted:  true,
		Confidence:    0.9,
		RawResponse:   raw,
		PromptVersion: m.version,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Version returns the configured prompt version.
func (m *MockRenderer) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// SetVersion changes the reported prompt version, simulating a contract bump.
func (m *MockRenderer) SetVersion(version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
}

// RenderCalls returns how many times the record was rendered.
func (m *MockRenderer) RenderCalls(recordID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[recordID]
}

// LastOptions returns the options used by the record's most recent render.
func (m *MockRenderer) LastOptions(recordID string) ports.RenderOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts[recordID]
}

// Verify interface compliance at compile time.
var _ ports.PromptRenderer = (*MockRenderer)(nil)
