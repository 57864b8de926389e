package limiter

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrActuationThrottled is returned when an actuation arrives faster than
// its resource allows.
var ErrActuationThrottled = errors.New("actuation throttled")

// RateConfig bounds how often one key may act.
type RateConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	Burst       int           `yaml:"burst"`
}

// DefaultRateConfig allows one actuation per 500ms with a burst of two.
func DefaultRateConfig() RateConfig {
	return RateConfig{MinInterval: 500 * time.Millisecond, Burst: 2}
}

// RateLimiter manages token buckets keyed by resource
type RateLimiter struct {
	config   RateConfig
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateConfig) *RateLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &RateLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetLimiter returns or creates the limiter for key
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limit := rate.Inf
	if rl.config.MinInterval > 0 {
		limit = rate.Every(rl.config.MinInterval)
	}
	limiter := rate.NewLimiter(limit, rl.config.Burst)
	rl.limiters[key] = limiter

	return limiter
}

// Allow checks if key may act now without waiting
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// Check is Allow expressed as an error
func (rl *RateLimiter) Check(key string) error {
	if !rl.Allow(key) {
		return ErrActuationThrottled
	}
	return nil
}

// GetStats returns rate limiter statistics for key
func (rl *RateLimiter) GetStats(key string) map[string]interface{} {
	limiter := rl.GetLimiter(key)

	return map[string]interface{}{
		"key":    key,
		"limit":  float64(limiter.Limit()),
		"burst":  limiter.Burst(),
		"tokens": limiter.Tokens(),
	}
}

// Reset drops the limiter for key
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.limiters, key)
}
