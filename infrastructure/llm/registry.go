package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// Registry provides multi-provider management for LLM clients.
// It enables centralized configuration, lazy initialization, and routing of
// "provider/model" specs onto cached clients. The classification pipeline
// uses it to resolve the standard and escalated tiers onto concrete clients
// without hardcoding providers.
type Registry struct {
	// providers maps provider names to their configuration
	providers map[string]ProviderConfig
	// clients maps "provider/model" keys to their respective LLMClient implementations.
	// Each client handles its own rate limiting and circuit breaking.
	clients map[string]ports.LLMClient
	// defaultProvider specifies the fallback provider when a spec omits one.
	defaultProvider string
	// defaultMiddleware specifies middleware applied to all providers unless overridden
	defaultMiddleware []Middleware
	// defaultTimeout sets the default request timeout for all providers
	defaultTimeout time.Duration
	// mu provides thread-safe access to the registry.
	mu sync.RWMutex
}

// ProviderConfig holds provider-specific configuration.
// This struct allows fine-grained control over individual provider settings,
// overriding registry defaults for specific providers.
type ProviderConfig struct {
	// Type specifies the provider implementation type (openai, anthropic, google)
	Type string
	// EnvVar specifies the environment variable name for the API key
	EnvVar string
	// DefaultModel specifies the default model to use if not specified
	DefaultModel string
	// SupportedModels lists all models supported by this provider
	// If empty, no validation is performed (allows any model)
	SupportedModels []string
	// BaseURL overrides the default API endpoint for the provider
	BaseURL string
	// Middleware specifies provider-specific middleware
	Middleware []Middleware
}

// RegistryConfig holds configuration for the provider registry.
// This struct defines default settings that are applied to all providers
// unless overridden by provider-specific configuration.
type RegistryConfig struct {
	// Providers defines the available providers and their configurations
	Providers map[string]ProviderConfig
	// DefaultProvider specifies which provider to use when no provider is specified.
	DefaultProvider string
	// DefaultTimeout sets the default request timeout for all providers.
	DefaultTimeout time.Duration
	// DefaultMiddleware specifies default middleware applied to all providers.
	DefaultMiddleware []Middleware
}

// DefaultProviders provides standard provider configurations for common LLM services.
// Applications can use this as a starting point and override specific settings.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
		SupportedModels: []string{
			"gpt-4o", "gpt-4o-mini",
			"gpt-4-turbo", "gpt-4",
			"gpt-3.5-turbo",
			"o1", "o1-mini",
		},
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
		SupportedModels: []string{
			"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022",
			"claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307",
		},
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: GoogleDefaultModel,
		SupportedModels: []string{
			"gemini-2.0-flash-exp",
			"gemini-1.5-pro", "gemini-1.5-flash",
		},
	},
}

// NewRegistry creates a new provider registry with the given configuration.
// The registry manages multiple LLM providers with shared default settings
// and creates clients lazily as specs are resolved.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}

	// Validate that default provider exists in configuration
	if _, exists := config.Providers[config.DefaultProvider]; !exists {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]ports.LLMClient),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}, nil
}

// GetDefaultClient returns a client for the default provider.
// This method provides explicit access to the default provider client,
// making intent clear and avoiding the ambiguity of empty string parameters.
func (r *Registry) GetDefaultClient() (ports.LLMClient, error) {
	providerConfig, exists := r.providers[r.defaultProvider]
	if !exists {
		return nil, fmt.Errorf("default provider %q not found in configuration", r.defaultProvider)
	}

	return r.GetClient(r.defaultProvider + "/" + providerConfig.DefaultModel)
}

// GetClient retrieves a client by provider name or model string.
// Supports multiple formats:
//   - "provider": Returns client for specified provider with default model
//   - "provider/model": Returns client for specified provider and model
//
// Empty strings are not allowed - use GetDefaultClient() for default provider.
// The method creates clients lazily on first request and caches them for reuse.
// Each unique provider/model combination gets its own client instance.
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty; use GetDefaultClient() for default provider")
	}

	provider, model := r.parseSpec(spec)

	key := r.buildCacheKey(provider, model)

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}

	r.clients[key] = client
	return client, nil
}

// GetBatchOperations resolves a spec onto the provider's batch surface.
// Batch operations are not cached: they hold no middleware state and the
// orchestrator typically resolves them once at startup.
func (r *Registry) GetBatchOperations(spec string) (BatchOperations, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty")
	}

	providerConfig, config, err := r.resolveSpec(spec)
	if err != nil {
		return nil, err
	}

	return NewBatchOperations(providerConfig.Type, config)
}

// GetCore resolves a spec onto a middleware-wrapped CoreLLM. Unlike
// GetClient, cores are not cached: each call assembles its own chain, so
// two call tiers on the same provider keep independent limiter and breaker
// state. The extra middleware is appended after the registry and provider
// defaults.
func (r *Registry) GetCore(spec string, middleware ...Middleware) (CoreLLM, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty")
	}

	providerConfig, config, err := r.resolveSpec(spec)
	if err != nil {
		return nil, err
	}

	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)
	config.Middleware = append(config.Middleware, middleware...)

	return NewCore(providerConfig.Type, config)
}

// resolveSpec validates a spec against the provider table and builds the
// client configuration, including the API key from the environment.
func (r *Registry) resolveSpec(spec string) (ProviderConfig, ClientConfig, error) {
	provider, model := r.parseSpec(spec)
	return r.resolveProviderModel(provider, model)
}

func (r *Registry) resolveProviderModel(provider, model string) (ProviderConfig, ClientConfig, error) {
	providerConfig, exists := r.providers[provider]
	if !exists {
		return ProviderConfig{}, ClientConfig{}, fmt.Errorf("unknown provider %q", provider)
	}

	if len(providerConfig.SupportedModels) > 0 && !r.isModelSupported(model, providerConfig.SupportedModels) {
		return ProviderConfig{}, ClientConfig{}, fmt.Errorf("model %q is not supported by provider %q. Supported models: %v",
			model, provider, providerConfig.SupportedModels)
	}

	apiKey := os.Getenv(providerConfig.EnvVar)
	if apiKey == "" {
		return ProviderConfig{}, ClientConfig{}, fmt.Errorf("%s environment variable not set for provider %q", providerConfig.EnvVar, provider)
	}

	return providerConfig, ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: providerConfig.BaseURL,
		Timeout: r.defaultTimeout,
	}, nil
}

// parseSpec extracts provider name and model from a specification string.
// Supports formats:
//   - "provider" -> (provider, defaultModel)
//   - "provider/model" -> (provider, model)
//
// Empty strings are not supported - caller should validate input.
func (r *Registry) parseSpec(spec string) (provider, model string) {
	parts := strings.SplitN(spec, "/", 2)
	provider = parts[0]

	if len(parts) > 1 {
		model = parts[1]
	} else if providerConfig, ok := r.providers[provider]; ok {
		model = providerConfig.DefaultModel
	}

	return
}

// buildCacheKey creates a consistent cache key from provider and model.
// This ensures proper caching and retrieval of clients.
func (r *Registry) buildCacheKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

// createClient creates a new client instance for the given provider and model.
// It handles environment variable loading, configuration merging, model validation, and client initialization.
func (r *Registry) createClient(provider, model string) (ports.LLMClient, error) {
	providerConfig, config, err := r.resolveProviderModel(provider, model)
	if err != nil {
		return nil, err
	}

	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)

	return NewClient(providerConfig.Type, config)
}

// GetRegisteredProviders returns a list of all provider names with cached clients.
// This is useful for validation and debugging.
func (r *Registry) GetRegisteredProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerSet := make(map[string]bool)
	for key := range r.clients {
		provider, _ := r.parseSpec(key)
		if provider != "" {
			providerSet[provider] = true
		}
	}

	providers := make([]string, 0, len(providerSet))
	for provider := range providerSet {
		providers = append(providers, provider)
	}
	return providers
}

// isModelSupported checks if a model is in the supported models list.
func (r *Registry) isModelSupported(model string, supportedModels []string) bool {
	for _, supportedModel := range supportedModels {
		if model == supportedModel {
			return true
		}
	}
	return false
}
