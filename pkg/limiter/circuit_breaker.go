package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name        string                             `yaml:"-"`
	MaxRequests uint32                             `yaml:"max_requests"`
	Interval    time.Duration                      `yaml:"interval"`
	Timeout     time.Duration                      `yaml:"timeout"`
	MinRequests uint32                             `yaml:"min_requests"`
	FailureRate float64                            `yaml:"failure_rate"`
	ReadyToTrip func(counts gobreaker.Counts) bool `yaml:"-"`
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration.
// A nil ReadyToTrip trips on MinRequests/FailureRate.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		MinRequests: 5,
		FailureRate: 0.6,
	}
}

func (c *CircuitBreakerConfig) tripOnFailureRate(counts gobreaker.Counts) bool {
	return counts.Requests >= c.MinRequests && float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRate
}

// StateChangeFunc observes breaker transitions.
type StateChangeFunc func(name string, from, to gobreaker.State)

// CircuitBreakerManager manages circuit breakers keyed by collaborator name
// ("telemetry", "actuator.cpu", ...).
type CircuitBreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	configs  map[string]*CircuitBreakerConfig
	template CircuitBreakerConfig
	onChange StateChangeFunc
	mu       sync.RWMutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager. template
// may be nil for defaults; onChange may be nil.
func NewCircuitBreakerManager(template *CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreakerManager {
	t := *DefaultCircuitBreakerConfig("")
	if template != nil {
		t = *template
	}
	return &CircuitBreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		configs:  make(map[string]*CircuitBreakerConfig),
		template: t,
		onChange: onChange,
	}
}

// GetBreaker returns or creates the circuit breaker for name
func (cbm *CircuitBreakerManager) GetBreaker(name string) *gobreaker.CircuitBreaker {
	cbm.mu.RLock()
	breaker, exists := cbm.breakers[name]
	cbm.mu.RUnlock()
	if exists {
		return breaker
	}

	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker
	}

	cbConfig := cbm.template
	cbConfig.Name = name
	if cbConfig.ReadyToTrip == nil {
		cbConfig.ReadyToTrip = cbConfig.tripOnFailureRate
	}

	breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cbConfig.Name,
		MaxRequests: cbConfig.MaxRequests,
		Interval:    cbConfig.Interval,
		Timeout:     cbConfig.Timeout,
		ReadyToTrip: cbConfig.ReadyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if cbm.onChange != nil {
				cbm.onChange(name, from, to)
			}
		},
	})

	cbm.breakers[name] = breaker
	cbm.configs[name] = &cbConfig

	return breaker
}

// Execute executes a function through the named circuit breaker. While the
// breaker is open fn is not called and the error wraps gobreaker.ErrOpenState.
func (cbm *CircuitBreakerManager) Execute(ctx context.Context, name string, fn func() (interface{}, error)) (interface{}, error) {
	breaker := cbm.GetBreaker(name)

	result, err := breaker.Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker %s: %w", name, err)
	}

	return result, nil
}

// GetState returns the current state of a circuit breaker
func (cbm *CircuitBreakerManager) GetState(name string) gobreaker.State {
	return cbm.GetBreaker(name).State()
}

// GetStats returns circuit breaker statistics
func (cbm *CircuitBreakerManager) GetStats(name string) map[string]interface{} {
	breaker := cbm.GetBreaker(name)
	counts := breaker.Counts()

	return map[string]interface{}{
		"name":                 name,
		"state":                breaker.State().String(),
		"requests":             counts.Requests,
		"total_success":        counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_success":  counts.ConsecutiveSuccesses,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

// Names lists every breaker created so far
func (cbm *CircuitBreakerManager) Names() []string {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()

	names := make([]string, 0, len(cbm.breakers))
	for name := range cbm.breakers {
		names = append(names, name)
	}
	return names
}

// Reset drops the named breaker; the next call creates a closed one
func (cbm *CircuitBreakerManager) Reset(name string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	delete(cbm.breakers, name)
	delete(cbm.configs, name)
}

// IsOpen checks if the named circuit breaker is open
func (cbm *CircuitBreakerManager) IsOpen(name string) bool {
	return cbm.GetState(name) == gobreaker.StateOpen
}

// IsClosed checks if the named circuit breaker is closed
func (cbm *CircuitBreakerManager) IsClosed(name string) bool {
	return cbm.GetState(name) == gobreaker.StateClosed
}
