package llm

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// DirectCallOptions configures the middleware chain for direct-mode
// classification calls. Zero values disable the corresponding middleware,
// so a deployment can switch any layer off from configuration.
type DirectCallOptions struct {
	// ServiceName names the tracer; empty disables tracing.
	ServiceName string

	// Metrics receives call latency and token usage; nil disables it.
	Metrics ports.MetricsCollector

	// MaxRetries bounds retry attempts beyond the first call.
	MaxRetries int

	// RetryBaseDelay and RetryMaxDelay shape the retry backoff.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// RateLimitRPS is the sustained request rate against the provider.
	RateLimitRPS float64

	// RateLimitBurst allows short spikes above the sustained rate.
	// Values below 1 are raised to 1 so a configured limiter can
	// always admit a request.
	RateLimitBurst int

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit.
	BreakerFailures int

	// BreakerCooldown is how long the circuit stays open before probing.
	BreakerCooldown time.Duration

	// RequestTimeout bounds one provider call.
	RequestTimeout time.Duration
}

// DirectCallMiddleware composes the production middleware chain for
// direct-mode calls. Outermost first: tracing and metrics observe the whole
// call including retries; retry wraps the limiter and breaker so every
// attempt acquires a rate token and an open circuit stops retrying
// immediately; the per-request timeout is innermost so it bounds a single
// provider call rather than the retry loop.
func DirectCallMiddleware(opts DirectCallOptions) []Middleware {
	chain := make([]Middleware, 0, 6)
	if opts.ServiceName != "" {
		chain = append(chain, TracingMiddleware(opts.ServiceName))
	}
	if opts.Metrics != nil {
		chain = append(chain, MetricsMiddleware(opts.Metrics))
	}
	if opts.MaxRetries > 0 {
		chain = append(chain, RetryMiddleware(opts.MaxRetries, opts.RetryBaseDelay, opts.RetryMaxDelay))
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		chain = append(chain, RateLimitMiddleware(rate.Limit(opts.RateLimitRPS), burst))
	}
	if opts.BreakerFailures > 0 {
		chain = append(chain, CircuitBreakerMiddleware(opts.BreakerFailures, opts.BreakerCooldown))
	}
	if opts.RequestTimeout > 0 {
		chain = append(chain, TimeoutMiddleware(opts.RequestTimeout))
	}
	return chain
}
