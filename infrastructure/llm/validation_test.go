package llm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractOptionalInt_NumericCoercion(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		want int
	}{
		{
			name: "native int",
			opts: map[string]any{"max_tokens": 2048},
			want: 2048,
		},
		{
			name: "int64 from decoded config",
			opts: map[string]any{"max_tokens": int64(4096)},
			want: 4096,
		},
		{
			name: "float64 from decoded JSON",
			opts: map[string]any{"max_tokens": float64(1024)},
			want: 1024,
		},
		{
			name: "missing key uses default",
			opts: map[string]any{},
			want: DefaultMaxTokens,
		},
		{
			name: "non-numeric value uses default",
			opts: map[string]any{"max_tokens": "lots"},
			want: DefaultMaxTokens,
		},
		{
			name: "NaN uses default",
			opts: map[string]any{"max_tokens": math.NaN()},
			want: DefaultMaxTokens,
		},
		{
			name: "validator rejection uses default",
			opts: map[string]any{"max_tokens": -5},
			want: DefaultMaxTokens,
		},
		{
			name: "nil options use default",
			opts: nil,
			want: DefaultMaxTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractOptionalInt(tt.opts, "max_tokens", DefaultMaxTokens, IsPositiveInt)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeInt_RangeGuards(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{name: "int passes through", value: 42, want: 42, wantOK: true},
		{name: "int64 within range", value: int64(1 << 20), want: 1 << 20, wantOK: true},
		{name: "float64 whole number", value: float64(128000), want: 128000, wantOK: true},
		{name: "float32 whole number", value: float32(512), want: 512, wantOK: true},
		{name: "float64 overflow rejected", value: math.MaxFloat64, wantOK: false},
		{name: "NaN rejected", value: math.NaN(), wantOK: false},
		{name: "string rejected", value: "7", wantOK: false},
		{name: "nil rejected", value: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeInt(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
