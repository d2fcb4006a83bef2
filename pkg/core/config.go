package core

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default endpoints for the production environment. The REST and quote hosts
// are distinct by design.
const (
	DefaultBaseURL       = "https://pro.edgex.exchange"
	DefaultPublicWSURL   = "wss://quote.edgex.exchange/api/v1/public/ws"
	DefaultPrivateWSURL  = "wss://quote.edgex.exchange/api/v1/private/ws"
	DefaultPingInterval  = 30 * time.Second
	DefaultStoreCapacity = 100
)

// RetryPolicy controls linear-backoff retry for REST calls. The wait before
// attempt n (1-indexed) is min(BaseWait*n, MaxWait).
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries" validate:"min=0"`
	BaseWait   time.Duration `json:"base_wait" validate:"min=0"`
	MaxWait    time.Duration `json:"max_wait" validate:"min=0"`
}

// Wait returns the backoff duration before the given 1-indexed attempt.
func (p RetryPolicy) Wait(attempt int) time.Duration {
	wait := p.BaseWait * time.Duration(attempt)
	if wait > p.MaxWait {
		return p.MaxWait
	}
	return wait
}

// DefaultRetryPolicy mirrors the exchange's documented client behavior:
// three retries with one-second linear backoff capped at five seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseWait:   1 * time.Second,
		MaxWait:    5 * time.Second,
	}
}

// Config contains all configuration options for a client instance.
// It includes endpoints, networking, rate limiting, caching, circuit breaker,
// and event retention settings.
type Config struct {
	BaseURL      string `json:"base_url" validate:"required,url"`
	PublicWSURL  string `json:"public_ws_url" validate:"required"`
	PrivateWSURL string `json:"private_ws_url" validate:"required"`

	// Timeout is the maximum duration for a single HTTP attempt.
	Timeout time.Duration `json:"timeout" validate:"min=1ms"`
	Retry   RetryPolicy   `json:"retry"`

	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	CacheEnabled bool          `json:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl" validate:"min=0"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`

	// PingInterval is the cadence of application-level keepalive pings on
	// websocket sessions.
	PingInterval time.Duration `json:"ping_interval" validate:"min=1s"`

	// PersistEvents enables retention of inbound events in the bounded
	// per-category stores.
	PersistEvents bool `json:"persist_events"`
	// StoreCapacity is the maximum number of events retained per category.
	StoreCapacity int `json:"store_capacity" validate:"min=1"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with production endpoints and
// sensible defaults: 10s timeout, 3 retries with 1s linear backoff capped at
// 5s, 30s ping interval, 100-event stores with persistence off.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		PublicWSURL:  DefaultPublicWSURL,
		PrivateWSURL: DefaultPrivateWSURL,

		Timeout: 10 * time.Second,
		Retry:   DefaultRetryPolicy(),

		RateLimitRequests: 600,
		RateLimitPeriod:   time.Minute,

		CacheEnabled: false,
		CacheTTL:     1 * time.Second,

		CircuitBreakerEnabled:          false,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		PingInterval:  DefaultPingInterval,
		PersistEvents: false,
		StoreCapacity: DefaultStoreCapacity,

		LogLevel: "info",
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return errors.New("CircuitBreakerFailThreshold must be positive when enabled")
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return errors.New("CircuitBreakerSuccessThreshold must be positive when enabled")
		}
		if c.CircuitBreakerTimeout <= 0 {
			return errors.New("CircuitBreakerTimeout must be positive when enabled")
		}
	}
	return nil
}

// WithBaseURL overrides the REST endpoint and returns the config for chaining.
func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

// WithTimeout sets the per-attempt timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRetry sets the retry policy and returns the config for chaining.
func (c *Config) WithRetry(policy RetryPolicy) *Config {
	c.Retry = policy
	return c
}

// WithRateLimit sets the rate limiting parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithCache enables or disables public response caching with the specified
// TTL and returns the config for chaining.
func (c *Config) WithCache(enabled bool, ttl time.Duration) *Config {
	c.CacheEnabled = enabled
	c.CacheTTL = ttl
	return c
}

// WithPersistence enables event retention with the given per-category
// capacity and returns the config for chaining.
func (c *Config) WithPersistence(capacity int) *Config {
	c.PersistEvents = true
	if capacity > 0 {
		c.StoreCapacity = capacity
	}
	return c
}

// WithPingInterval sets the websocket keepalive cadence and returns the
// config for chaining.
func (c *Config) WithPingInterval(interval time.Duration) *Config {
	c.PingInterval = interval
	return c
}
