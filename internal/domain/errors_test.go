package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKindRouting(t *testing.T) {
	tests := []struct {
		name          string
		kind          FailureKind
		wantRetryable bool
		wantEscalates bool
		wantTerminal  bool
	}{
		{
			name:          "schema validation routes to fallback",
			kind:          FailureSchemaValidation,
			wantEscalates: true,
		},
		{
			name:          "token limit routes to fallback",
			kind:          FailureTokenLimit,
			wantEscalates: true,
		},
		{
			name:          "transient provider error retries same mode",
			kind:          FailureTransientProvider,
			wantRetryable: true,
		},
		{
			name:          "batch timeout retries same mode",
			kind:          FailureBatchTimeout,
			wantRetryable: true,
		},
		{
			name:         "fatal provider error is terminal",
			kind:         FailureFatalProvider,
			wantTerminal: true,
		},
		{
			name: "success routes nowhere",
			kind: FailureNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRetryable, tt.kind.Retryable(), "Retryable mismatch")
			assert.Equal(t, tt.wantEscalates, tt.kind.Escalates(), "Escalates mismatch")
			assert.Equal(t, tt.wantTerminal, tt.kind.Terminal(), "Terminal mismatch")
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("ChangeRecord")
		err.AddError("missing id")

		assert.Equal(t, "validation error for ChangeRecord: missing id", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("GoldenCase")
		err.AddError("unknown category")
		err.AddError("score range inverted")

		assert.Contains(t, err.Error(), "validation errors for GoldenCase")
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Signal")
		assert.False(t, err.HasErrors(), "Should have no errors")
	})
}
