// Package rest executes signed REST calls against the exchange with linear
// backoff retry.
package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"edgex/internal/circuitbreaker"
	"edgex/internal/ratelimit"
	"edgex/pkg/core"
	"edgex/pkg/sign"
)

// Transport issues HTTP calls with per-attempt signing and linear backoff.
// Each call is stateless; a Transport is safe for concurrent use.
type Transport struct {
	client  *resty.Client
	engine  *sign.Engine
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	policy  core.RetryPolicy
	logger  zerolog.Logger

	// sleep is swapped out in tests to observe the backoff sequence.
	sleep func(time.Duration)
}

// New creates a Transport from the client configuration. The engine may be
// nil for public-only use; authenticated requests then fail with
// ErrNoCredentials.
func New(config *core.Config, engine *sign.Engine) *Transport {
	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(config.Timeout)
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})

	t := &Transport{
		client: client,
		engine: engine,
		policy: config.Retry,
		logger: zerolog.Nop(),
		sleep:  time.Sleep,
	}

	if config.RateLimitRequests > 0 {
		t.limiter = ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)
	}
	if config.CircuitBreakerEnabled {
		t.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}

	return t
}

// SetLogger configures the logger for the transport.
func (t *Transport) SetLogger(logger zerolog.Logger) {
	t.logger = logger
}

// Close releases the underlying HTTP client.
func (t *Transport) Close() error {
	return t.client.Close()
}

// Send executes the request with up to MaxRetries+1 attempts. Authenticated
// requests are re-signed on every attempt, so retried requests carry fresh
// timestamps. Transport-level failures are retried after a linear backoff of
// min(BaseWait*n, MaxWait); any received HTTP response, whatever its status,
// is returned to the caller without retry.
func (t *Transport) Send(ctx context.Context, req *core.Request) (*Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return nil, core.NewError(core.ErrorTypeUsage, fmt.Sprintf("unsupported http method: %s", req.Method))
	}

	class := ratelimit.ClassPublic
	if req.RequireAuth {
		class = ratelimit.ClassPrivate
	}

	var lastErr error
	for attempt := 0; attempt <= t.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := t.policy.Wait(attempt)
			t.logger.Warn().
				Err(lastErr).
				Dur("wait", wait).
				Int("attempt", attempt).
				Int("max_retries", t.policy.MaxRetries).
				Msg("request failed, retrying")
			t.sleep(wait)
		}

		if err := ctx.Err(); err != nil {
			return nil, core.WrapError(core.ErrorTypeTransport, "request cancelled", err)
		}

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx, class); err != nil {
				return nil, core.WrapError(core.ErrorTypeRateLimit, "rate limit wait", err)
			}
		}

		if t.breaker != nil && !t.breaker.Allow() {
			return nil, core.WrapError(core.ErrorTypeTransport, "request blocked", core.ErrCircuitBreakerOpen)
		}

		resp, err := t.attempt(ctx, req)
		if err != nil {
			if !core.IsTransportError(err) {
				return nil, err
			}
			if t.breaker != nil {
				t.breaker.Record(false)
			}
			lastErr = err
			continue
		}

		if t.breaker != nil {
			t.breaker.Record(true)
		}
		return resp, nil
	}

	return nil, core.WrapError(core.ErrorTypeTransport,
		fmt.Sprintf("request failed after %d attempts", t.policy.MaxRetries+1),
		fmt.Errorf("%w: %w", core.ErrRetriesExhausted, lastErr))
}

// attempt performs a single signed HTTP exchange.
func (t *Transport) attempt(ctx context.Context, req *core.Request) (*Response, error) {
	r := t.client.R().SetContext(ctx)

	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}

	if req.RequireAuth {
		if t.engine == nil {
			return nil, core.WrapError(core.ErrorTypeAuth, "authenticated request", core.ErrNoCredentials)
		}
		headers, err := t.engine.Headers(req.Method, req.Path, req.Query)
		if err != nil {
			return nil, err
		}
		r.SetHeaders(headers.Map())
	}

	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Msg("http request")

	var resp *resty.Response
	var err error
	switch req.Method {
	case http.MethodGet:
		resp, err = r.Get(req.Path)
	case http.MethodPost:
		resp, err = r.Post(req.Path)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrorTypeTransport, "http request", err)
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode()).
		Int("size", len(resp.Bytes())).
		Msg("http response")

	headers := make(map[string]string)
	for k, v := range resp.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
		Headers:    headers,
	}, nil
}
