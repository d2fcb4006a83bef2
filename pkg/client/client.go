// Package client is the top-level entry point. It ties the signing engine,
// the retrying REST transport, and the websocket sessions together behind
// one facade.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"edgex/internal/keyring"
	"edgex/internal/rest"
	"edgex/pkg/core"
	"edgex/pkg/sign"
	"edgex/pkg/stream"
)

// Client is a stateful edgeX API client. It is safe for concurrent use.
type Client struct {
	config *core.Config
	logger zerolog.Logger

	signer sign.Signer
	ring   *keyring.KeyRing
	creds  *core.Credentials
	engine *sign.Engine

	transport *rest.Transport
	cache     *Cache

	registry     *stream.Registry
	publicStore  *stream.Store
	privateStore *stream.Store
	router       *stream.Router

	authMode stream.AuthMode

	mu             sync.Mutex
	publicSession  *stream.Session
	privateSession *stream.Session
	closed         bool
}

// Option customizes a Client during construction.
type Option func(*Client)

// WithLogger sets the logger for the client and everything it owns.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSigner provides the curve implementation used to sign requests.
func WithSigner(signer sign.Signer) Option {
	return func(c *Client) { c.signer = signer }
}

// WithCredentials sets the signing credentials directly.
func WithCredentials(creds *core.Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithKeyRing sources credentials from a key ring. Ignored when
// WithCredentials is also given.
func WithKeyRing(ring *keyring.KeyRing) Option {
	return func(c *Client) { c.ring = ring }
}

// WithAuthMode selects how the private session delivers its signature
// during the websocket handshake. The default is header delivery.
func WithAuthMode(mode stream.AuthMode) Option {
	return func(c *Client) { c.authMode = mode }
}

// New creates a Client from the given configuration. A nil config uses
// DefaultConfig. Credentials without a signer are rejected, as the curve
// implementation is an external collaborator.
func New(config *core.Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	c := &Client{
		config:   config,
		logger:   zerolog.Nop(),
		authMode: stream.AuthModeHeaders,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.creds == nil && c.ring != nil {
		key := c.ring.Current()
		if key == nil {
			return nil, core.WrapError(core.ErrorTypeUsage, "key ring has no usable key", core.ErrNoCredentials)
		}
		creds, err := key.Credentials()
		if err != nil {
			return nil, fmt.Errorf("key ring credentials: %w", err)
		}
		c.creds = creds
	}

	if c.creds != nil {
		if c.signer == nil {
			return nil, core.NewError(core.ErrorTypeUsage, "credentials require a signer")
		}
		c.engine = sign.NewEngine(c.creds, c.signer)
		c.engine.SetLogger(c.logger)
	}

	c.transport = rest.New(config, c.engine)
	c.transport.SetLogger(c.logger)

	if config.CacheEnabled {
		c.cache = NewCache(config.CacheTTL)
	}

	c.registry = stream.NewRegistry()
	c.publicStore = stream.NewStore(config.StoreCapacity, config.PersistEvents)
	c.privateStore = stream.NewStore(config.StoreCapacity, config.PersistEvents)
	c.router = stream.NewRouter(c.registry, c.publicStore, c.privateStore)
	c.router.SetLogger(c.logger)

	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *core.Config {
	return c.config
}

// AccountID returns the account bound to the signing credentials, or an
// empty string for an unauthenticated client.
func (c *Client) AccountID() string {
	if c.engine == nil {
		return ""
	}
	return c.engine.AccountID()
}

// OnEvent registers a callback for one account event kind delivered over
// the private session. Re-registering replaces the previous callback.
func (c *Client) OnEvent(kind core.EventKind, fn stream.Handler) {
	c.registry.Register(kind.String(), fn)
}

// OnQuote registers a callback receiving every quote frame in full.
func (c *Client) OnQuote(fn stream.Handler) {
	c.registry.Register(core.QuoteChannel, fn)
}

// OnChannel registers a callback for one public payload category.
func (c *Client) OnChannel(category core.Category, fn stream.Handler) {
	c.registry.Register(category.String(), fn)
}

// PrivateEvents returns retained events for one kind, newest first.
// Empty unless persistence is enabled.
func (c *Client) PrivateEvents(kind core.EventKind) []json.RawMessage {
	return c.privateStore.Events(kind.String())
}

// PublicEvents returns retained payloads for one category, newest first.
// Empty unless persistence is enabled.
func (c *Client) PublicEvents(category core.Category) []json.RawMessage {
	return c.publicStore.Events(category.String())
}

// ConnectPublic opens the public quote session and subscribes to the given
// channels. It blocks until the session is active. A session that failed or
// was closed may be replaced by connecting again.
func (c *Client) ConnectPublic(ctx context.Context, subscriptions ...stream.Subscription) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return core.ErrClientClosed
	}
	if existing := c.publicSession; existing != nil && !existing.State().Terminal() {
		c.mu.Unlock()
		return core.NewError(core.ErrorTypeUsage, "public session already connected")
	}

	session := stream.NewPublicSession(stream.SessionConfig{
		URL:           c.config.PublicWSURL,
		PingInterval:  c.config.PingInterval,
		Subscriptions: subscriptions,
	}, c.router)
	session.SetLogger(c.logger)
	c.publicSession = session
	c.mu.Unlock()

	if err := session.Connect(ctx); err != nil {
		c.mu.Lock()
		if c.publicSession == session {
			c.publicSession = nil
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// ConnectPrivate opens the authenticated account event session. It blocks
// until the session is active.
func (c *Client) ConnectPrivate(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return core.ErrClientClosed
	}
	if c.engine == nil {
		c.mu.Unlock()
		return core.WrapError(core.ErrorTypeAuth, "private session requires credentials", core.ErrNoCredentials)
	}
	if existing := c.privateSession; existing != nil && !existing.State().Terminal() {
		c.mu.Unlock()
		return core.NewError(core.ErrorTypeUsage, "private session already connected")
	}

	session := stream.NewPrivateSession(stream.SessionConfig{
		URL:          c.config.PrivateWSURL,
		PingInterval: c.config.PingInterval,
		AuthMode:     c.authMode,
	}, c.router, c.engine)
	session.SetLogger(c.logger)
	c.privateSession = session
	c.mu.Unlock()

	if err := session.Connect(ctx); err != nil {
		c.mu.Lock()
		if c.privateSession == session {
			c.privateSession = nil
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Subscribe requests one more public channel on the running public session.
func (c *Client) Subscribe(channel, symbol string) error {
	c.mu.Lock()
	session := c.publicSession
	c.mu.Unlock()

	if session == nil {
		return core.ErrNotConnected
	}
	return session.Subscribe(channel, symbol)
}

// call executes one REST request and unwraps the response envelope. Public
// GET responses are served from and written to the cache when enabled.
func (c *Client) call(ctx context.Context, req *core.Request) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, core.ErrClientClosed
	}
	c.mu.Unlock()

	cacheable := c.cache != nil && req.Method == http.MethodGet && !req.RequireAuth
	key := ""
	if cacheable {
		key = cacheKey(req.Path, req.Query)
		if cached := c.cache.Get(key); cached != nil {
			c.logger.Debug().Str("key", key).Msg("cache hit")
			return cached, nil
		}
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		errType := statusErrorType(resp.StatusCode)
		if errType == core.ErrorTypeAuth && req.RequireAuth && c.ring != nil {
			c.ring.OnAuthError()
		}
		return nil, core.NewError(errType,
			fmt.Sprintf("http %d: %s", resp.StatusCode, string(resp.Body)))
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, core.WrapError(core.ErrorTypeProtocol, "decode envelope", err)
	}
	if !envelope.IsSuccess() {
		return nil, core.NewError(core.ErrorTypeServer,
			fmt.Sprintf("api error %s: %s", envelope.Code, envelope.Msg))
	}

	if req.RequireAuth && c.ring != nil {
		c.ring.MarkUsed()
	}

	if cacheable {
		c.cache.Set(key, envelope.Data, 0)
	}
	return envelope.Data, nil
}

func statusErrorType(statusCode int) core.ErrorType {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return core.ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		return core.ErrorTypeRateLimit
	case statusCode >= 500:
		return core.ErrorTypeServer
	case statusCode >= 400:
		return core.ErrorTypeUsage
	default:
		return core.ErrorTypeUnknown
	}
}

// ClearCache drops all cached public responses.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Close shuts down both sessions and the transport. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	public := c.publicSession
	private := c.privateSession
	c.mu.Unlock()

	if public != nil {
		_ = public.Close()
	}
	if private != nil {
		_ = private.Close()
	}
	if c.cache != nil {
		c.cache.Clear()
	}
	return c.transport.Close()
}
