package llm

import (
	"strings"
)

// WordBasedTokenEstimator estimates tokens based on word count.
// This estimator provides fast, simple estimation using configurable
// tokens-per-word ratios. Best for general-purpose estimation where
// speed is more important than precision.
type WordBasedTokenEstimator struct{ TokensPerWord float64 }

// NewWordBasedTokenEstimator creates a word-based token estimator.
// The tokensPerWord parameter should be tuned based on the target language
// and LLM provider. Typical values: 0.75 for English, 0.6-0.9 for other languages.
func NewWordBasedTokenEstimator(tokensPerWord float64) *WordBasedTokenEstimator {
	if tokensPerWord <= 0 {
		tokensPerWord = 0.75 // Default: ~0.75 tokens per word
	}
	return &WordBasedTokenEstimator{
		TokensPerWord: tokensPerWord,
	}
}

// EstimateTokens calculates token count based on word count.
// This method splits text on whitespace and applies the configured
// tokens-per-word ratio for fast estimation.
func (e *WordBasedTokenEstimator) EstimateTokens(text string) int {
	words := strings.Fields(text)
	return int(float64(len(words)) * e.TokensPerWord)
}

// CharacterBasedTokenEstimator estimates tokens based on character count.
// This estimator provides simple character-to-token ratio estimation.
// More accurate for languages with consistent character density,
// less accurate for code or heavily punctuated text.
type CharacterBasedTokenEstimator struct{ charsPerToken float64 }

// NewCharacterBasedTokenEstimator creates a character-based token estimator.
// The charactersPerToken parameter should be tuned for the target provider.
// Typical values: 4.0 for GPT models, 3.5-4.5 for other providers.
func NewCharacterBasedTokenEstimator(charactersPerToken float64) *CharacterBasedTokenEstimator {
	if charactersPerToken <= 0 {
		charactersPerToken = 4.0 // Default: ~4 characters per token
	}
	return &CharacterBasedTokenEstimator{
		charsPerToken: charactersPerToken,
	}
}

// EstimateTokens calculates token count based on character count.
// This method divides total character count by the configured
// characters-per-token ratio for simple estimation.
func (e *CharacterBasedTokenEstimator) EstimateTokens(text string) int {
	return int(float64(len(text)) / e.charsPerToken)
}

// ProviderSpecificTokenEstimator delegates to provider-aware estimation strategies.
// This estimator maintains separate estimators for different providers
// to account for provider-specific tokenization differences. The classifier
// adapter uses it to preflight prompts against per-provider token ceilings
// before spending a request.
type ProviderSpecificTokenEstimator struct {
	providerEstimators map[string]TokenEstimator
	defaultEstimator   TokenEstimator
}

// NewProviderSpecificTokenEstimator creates a provider-aware estimator.
// This estimator can be configured with different estimation strategies
// for each provider to account for tokenization differences.
func NewProviderSpecificTokenEstimator() *ProviderSpecificTokenEstimator {
	return &ProviderSpecificTokenEstimator{
		providerEstimators: make(map[string]TokenEstimator),
		defaultEstimator:   &SimpleTokenEstimator{},
	}
}

// SetProviderEstimator configures a specific estimator for a provider.
// This allows customization of token estimation for providers with
// unique tokenization characteristics.
func (e *ProviderSpecificTokenEstimator) SetProviderEstimator(provider string, estimator TokenEstimator) {
	e.providerEstimators[provider] = estimator
}

// SetDefaultEstimator configures the fallback estimator.
// This estimator is used when no provider-specific estimator is configured.
func (e *ProviderSpecificTokenEstimator) SetDefaultEstimator(estimator TokenEstimator) {
	e.defaultEstimator = estimator
}

// EstimateTokensForProvider estimates tokens using provider-specific logic.
// This method routes to the appropriate estimator based on the provider,
// falling back to the default estimator if no specific one is configured.
func (e *ProviderSpecificTokenEstimator) EstimateTokensForProvider(provider string, text string) int {
	if estimator, exists := e.providerEstimators[provider]; exists {
		return estimator.EstimateTokens(text)
	}
	return e.defaultEstimator.EstimateTokens(text)
}

// EstimateTokens provides default token estimation.
// This method uses the default estimator when no provider context is available.
func (e *ProviderSpecificTokenEstimator) EstimateTokens(text string) int {
	return e.defaultEstimator.EstimateTokens(text)
}

// CachingTokenEstimator wraps another estimator with performance-optimized caching.
// This estimator caches estimation results to avoid repeated calculations
// for the same text. Best for applications with repeated estimation requests
// or expensive underlying estimators.
type CachingTokenEstimator struct {
	underlying TokenEstimator
	cache      map[string]int
	maxSize    int
}

// NewCachingTokenEstimator creates a caching wrapper for any TokenEstimator.
// The maxSize parameter controls memory usage vs. performance tradeoff.
// Larger cache sizes provide better hit rates but use more memory.
func NewCachingTokenEstimator(underlying TokenEstimator, maxSize int) *CachingTokenEstimator {
	if maxSize <= 0 {
		maxSize = 1000 // Default cache size
	}
	return &CachingTokenEstimator{
		underlying: underlying,
		cache:      make(map[string]int),
		maxSize:    maxSize,
	}
}

// EstimateTokens provides cached token estimation with fallthrough to underlying estimator.
// This method checks the cache first for O(1) lookup, calculates using the underlying
// estimator on cache misses, and caches results for future use.
func (e *CachingTokenEstimator) EstimateTokens(text string) int {
	if tokens, exists := e.cache[text]; exists {
		return tokens
	}

	tokens := e.underlying.EstimateTokens(text)

	// Add to cache if space available (simple cache eviction)
	if len(e.cache) < e.maxSize {
		e.cache[text] = tokens
	}

	return tokens
}

// ClearCache removes all cached estimation results.
// This method is useful for memory management or when estimation
// parameters change and cached results become invalid.
func (e *CachingTokenEstimator) ClearCache() {
	for k := range e.cache {
		delete(e.cache, k)
	}
}

// CacheSize returns the current number of cached estimation results.
// This method is useful for monitoring cache utilization and performance.
func (e *CachingTokenEstimator) CacheSize() int { return len(e.cache) }
