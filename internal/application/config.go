// Package application orchestrates the detection pipeline: configuration,
// per-record processing, and the batch classification lifecycle.
package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

var validate = validator.New()

// Config is the top-level pipeline configuration. Every field has a working
// default; a config file only needs the values it overrides.
type Config struct {
	// Detectors extends the built-in detector allowlists.
	Detectors DetectorsConfig `yaml:"detectors"`

	// Classifier configures the external classification backend.
	Classifier ClassifierConfig `yaml:"classifier" validate:"required"`

	// Batch configures the batch submission lifecycle.
	Batch BatchConfig `yaml:"batch" validate:"required"`

	// Scoring configures signal fusion.
	Scoring ScoringConfig `yaml:"scoring" validate:"required"`

	// Storage configures result persistence.
	Storage StorageConfig `yaml:"storage"`
}

// DetectorsConfig extends the built-in detector allowlists. The defaults
// ship with known tools, identities, and reviewers; deployments add their
// own here rather than replacing the curated lists.
type DetectorsConfig struct {
	// ExtraPhrases adds generic phrases to the pattern detector.
	ExtraPhrases []string `yaml:"extra_phrases" validate:"omitempty,dive,required"`

	// ExtraReviewers adds known AI reviewer logins to the review detector.
	ExtraReviewers []ReviewerConfig `yaml:"extra_reviewers" validate:"omitempty,dive"`
}

// ReviewerConfig is one additional AI reviewer login.
type ReviewerConfig struct {
	// Tool is the display name reported in signal metadata.
	Tool string `yaml:"tool" validate:"required"`

	// Author is the exact review author login to match.
	Author string `yaml:"author" validate:"required"`
}

// ClassifierConfig configures the external classifier adapter and its two
// call tiers.
type ClassifierConfig struct {
	// Provider names the classification backend.
	Provider string `yaml:"provider" validate:"required,oneof=anthropic openai google"`

	// Model is the standard-tier model. Empty keeps the provider default.
	Model string `yaml:"model"`

	// EscalatedModel is the larger fallback-tier model. Empty keeps the
	// provider default.
	EscalatedModel string `yaml:"escalated_model"`

	// MaxTokens is the standard-tier response budget.
	MaxTokens int `yaml:"max_tokens" validate:"required,min=1,max=1000000"`

	// EscalatedMaxTokens is the fallback-tier response budget.
	EscalatedMaxTokens int `yaml:"escalated_max_tokens" validate:"required,min=1,max=1000000"`

	// Temperature is the sampling temperature. Classification wants 0.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`

	// ContextWindowTokens bounds the preflight token estimate.
	ContextWindowTokens int `yaml:"context_window_tokens" validate:"required,min=1"`

	// MaxPayloadRunes caps the rendered payload on the standard tier.
	// Zero applies the renderer default.
	MaxPayloadRunes int `yaml:"max_payload_runes" validate:"min=0"`

	// EscalatedPayloadRunes caps the rendered payload on the fallback
	// tier, sized so truncation-prone records survive escalation.
	EscalatedPayloadRunes int `yaml:"escalated_payload_runes" validate:"min=0"`

	// RateLimitRPS caps sustained direct-call throughput against the
	// provider with a token bucket. Zero disables the limiter.
	RateLimitRPS float64 `yaml:"rate_limit_rps" validate:"min=0"`

	// RateLimitBurst allows short spikes above RateLimitRPS.
	RateLimitBurst int `yaml:"rate_limit_burst" validate:"min=0"`

	// MaxRetries bounds provider-level retries within one direct call.
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=10"`

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker. Zero disables the breaker.
	BreakerFailures int `yaml:"breaker_failures" validate:"min=0"`

	// BreakerCooldownSeconds is how long an open circuit waits before
	// probing the provider again.
	BreakerCooldownSeconds int `yaml:"breaker_cooldown_seconds" validate:"min=0,max=3600"`

	// RequestTimeoutSeconds bounds a single provider call. Zero disables
	// the per-request timeout.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" validate:"min=0,max=3600"`
}

// BreakerCooldown returns the open-circuit cooldown as a duration.
func (c ClassifierConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}

// RequestTimeout returns the per-call ceiling as a duration.
func (c ClassifierConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// BatchConfig configures the batch orchestrator.
type BatchConfig struct {
	// Enabled switches bulk processing to provider-side batches.
	Enabled bool `yaml:"enabled"`

	// PollIntervalSeconds is the delay between batch status polls.
	PollIntervalSeconds int `yaml:"poll_interval_seconds" validate:"required,min=1,max=3600"`

	// PollTimeoutMinutes is the ceiling on one job's polling phase. A job
	// that exceeds it is canceled and its unresolved records marked with a
	// timeout failure.
	PollTimeoutMinutes int `yaml:"poll_timeout_minutes" validate:"required,min=1,max=1440"`

	// MaxJobRetries bounds how many times a timed-out job is re-queued
	// before it fails for good.
	MaxJobRetries int `yaml:"max_job_retries" validate:"min=0,max=10"`

	// MaxItemAttempts bounds per-record attempts across batch submission
	// and direct retries.
	MaxItemAttempts int `yaml:"max_item_attempts" validate:"required,min=1,max=10"`

	// InitialBackoffMS is the base delay before the first direct retry.
	InitialBackoffMS int `yaml:"initial_backoff_ms" validate:"min=0,max=60000"`

	// MaxBackoffMS caps the exponential backoff between direct retries.
	MaxBackoffMS int `yaml:"max_backoff_ms" validate:"min=0,max=600000"`

	// MaxGroupSize caps how many records one batch job carries.
	MaxGroupSize int `yaml:"max_group_size" validate:"required,min=1,max=10000"`

	// FallbackParallelism bounds concurrent direct-mode fallback calls.
	FallbackParallelism int `yaml:"fallback_parallelism" validate:"required,min=1,max=64"`
}

// PollInterval returns the poll delay as a duration.
func (c BatchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the polling ceiling as a duration.
func (c BatchConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMinutes) * time.Minute
}

// InitialBackoff returns the base retry delay as a duration.
func (c BatchConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff returns the retry delay cap as a duration.
func (c BatchConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMS) * time.Millisecond
}

// ScoringConfig configures signal fusion.
type ScoringConfig struct {
	// Weights maps signal sources to fusion weights. Keys merge over the
	// defaults, so a file can override one source without restating the
	// rest; setting a source to 0 disables its contribution.
	Weights map[string]float64 `yaml:"weights" validate:"required,dive,keys,oneof=pattern commit review file classifier,endkeys,min=0.0,max=1.0"`
}

// SignalWeights converts the YAML weight map to domain signal sources.
func (c ScoringConfig) SignalWeights() map[domain.SignalSource]float64 {
	weights := make(map[domain.SignalSource]float64, len(c.Weights))
	for source, weight := range c.Weights {
		weights[domain.SignalSource(source)] = weight
	}
	return weights
}

// StorageConfig configures result persistence.
type StorageConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path" validate:"required"`
}

// DefaultConfig returns the configuration the pipeline runs with when no
// file overrides it.
func DefaultConfig() Config {
	return Config{
		Classifier: ClassifierConfig{
			Provider:               "anthropic",
			MaxTokens:              1024,
			EscalatedMaxTokens:     4096,
			Temperature:            0,
			ContextWindowTokens:    200000,
			MaxPayloadRunes:        0,
			EscalatedPayloadRunes:  48000,
			RateLimitRPS:           2,
			RateLimitBurst:         4,
			MaxRetries:             2,
			BreakerFailures:        5,
			BreakerCooldownSeconds: 30,
			RequestTimeoutSeconds:  120,
		},
		Batch: BatchConfig{
			Enabled:             true,
			PollIntervalSeconds: 30,
			PollTimeoutMinutes:  30,
			MaxJobRetries:       1,
			MaxItemAttempts:     3,
			InitialBackoffMS:    2000,
			MaxBackoffMS:        60000,
			MaxGroupSize:        100,
			FallbackParallelism: 4,
		},
		Scoring: ScoringConfig{
			Weights: map[string]float64{
				"pattern":    0.35,
				"commit":     0.50,
				"review":     0.30,
				"file":       0.25,
				"classifier": 0.60,
			},
		},
		Storage: StorageConfig{Path: "aidetect.db"},
	}
}

// LoadConfig reads, parses, and validates a YAML config file. Fields absent
// from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read file: %w", err)
	}

	return parseConfig(data)
}

// LoadConfigFromReader parses and validates YAML config from any reader.
func LoadConfigFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read data: %w", err)
	}

	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("struct validation failed: %w", err)
	}

	return config, nil
}
