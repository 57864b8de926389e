package limiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/snow-ghost/era/core"
	"github.com/sony/gobreaker"
)

// Config bundles the protection settings read from the config file.
type Config struct {
	Breaker CircuitBreakerConfig `yaml:"breaker"`
	Rate    RateConfig           `yaml:"rate"`
	Retry   RetryConfig          `yaml:"retry"`
}

// DefaultConfig returns the defaults of every mechanism.
func DefaultConfig() Config {
	return Config{
		Breaker: *DefaultCircuitBreakerConfig(""),
		Rate:    DefaultRateConfig(),
		Retry:   *DefaultRetryConfig(),
	}
}

// ProtectionManager integrates rate limiting, retries, and circuit breakers
// around the optimizer's external collaborators.
type ProtectionManager struct {
	rateLimiter    *RateLimiter
	retryManager   *RetryManager
	circuitBreaker *CircuitBreakerManager
}

// NewProtectionManager creates a new protection manager
func NewProtectionManager(config Config, onChange StateChangeFunc) *ProtectionManager {
	retry := config.Retry
	return &ProtectionManager{
		rateLimiter:    NewRateLimiter(config.Rate),
		retryManager:   NewRetryManager(&retry),
		circuitBreaker: NewCircuitBreakerManager(&config.Breaker, onChange),
	}
}

// Breakers exposes the breaker manager
func (pm *ProtectionManager) Breakers() *CircuitBreakerManager {
	return pm.circuitBreaker
}

// GuardSource retries transient telemetry errors and trips a breaker named
// name when reads keep failing.
func (pm *ProtectionManager) GuardSource(name string, src core.TelemetrySource) core.TelemetrySource {
	return &guardedSource{pm: pm, name: name, src: src}
}

type guardedSource struct {
	pm   *ProtectionManager
	name string
	src  core.TelemetrySource
}

func (g *guardedSource) CurrentUsage(ctx context.Context) (core.SystemResources, error) {
	result, err := g.pm.circuitBreaker.Execute(ctx, g.name, func() (interface{}, error) {
		var snapshot core.SystemResources
		err := g.pm.retryManager.Execute(ctx, func(ctx context.Context) error {
			var err error
			snapshot, err = g.src.CurrentUsage(ctx)
			return err
		})
		return snapshot, err
	})
	if err != nil {
		return core.SystemResources{}, err
	}
	return result.(core.SystemResources), nil
}

// GuardSink throttles actuations for resource and trips a breaker named
// "actuator.<resource>" when they keep failing. A throttled call returns
// ErrActuationThrottled and does not count against the breaker.
func (pm *ProtectionManager) GuardSink(resource core.Resource, sink core.ThresholdSink) core.ThresholdSink {
	if sink == nil {
		return nil
	}
	return &guardedSink{pm: pm, resource: resource, name: "actuator." + string(resource), sink: sink}
}

type guardedSink struct {
	pm       *ProtectionManager
	resource core.Resource
	name     string
	sink     core.ThresholdSink
}

func (g *guardedSink) Apply(ctx context.Context, threshold float64) error {
	if err := g.pm.rateLimiter.Check(string(g.resource)); err != nil {
		return fmt.Errorf("%s: %w", g.resource, err)
	}
	_, err := g.pm.circuitBreaker.Execute(ctx, g.name, func() (interface{}, error) {
		return nil, g.sink.Apply(ctx, threshold)
	})
	return err
}

// GuardSinks wraps every non-nil sink in s.
func (pm *ProtectionManager) GuardSinks(s core.Sinks) core.Sinks {
	return core.Sinks{
		CPU:    pm.GuardSink(core.ResourceCPU, s.CPU),
		Memory: pm.GuardSink(core.ResourceMemory, s.Memory),
		Power:  pm.GuardSink(core.ResourcePower, s.Power),
	}
}

// IsRejected reports whether err means the call was refused before reaching
// the collaborator (open breaker, throttled).
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, ErrActuationThrottled)
}

// GetStats returns statistics for every breaker and actuation limiter
func (pm *ProtectionManager) GetStats() map[string]interface{} {
	breakers := make(map[string]interface{})
	for _, name := range pm.circuitBreaker.Names() {
		breakers[name] = pm.circuitBreaker.GetStats(name)
	}

	rates := make(map[string]interface{})
	for _, r := range core.Resources {
		rates[string(r)] = pm.rateLimiter.GetStats(string(r))
	}

	return map[string]interface{}{
		"circuit_breakers": breakers,
		"rate_limiters":    rates,
		"retry_config": map[string]interface{}{
			"max_retries":    pm.retryManager.config.MaxRetries,
			"base_delay":     pm.retryManager.config.BaseDelay.String(),
			"max_delay":      pm.retryManager.config.MaxDelay.String(),
			"backoff_factor": pm.retryManager.config.BackoffFactor,
			"jitter":         pm.retryManager.config.Jitter,
		},
	}
}
