// Package stream implements the websocket side of the client: session
// lifecycle, keepalive, frame classification, callback dispatch, and bounded
// event retention.
package stream

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"edgex/internal/ws"
	"edgex/pkg/core"
	"edgex/pkg/sign"
)

// AuthMode selects how the signature reaches the private endpoint during the
// handshake.
type AuthMode int

const (
	// AuthModeHeaders carries the signature as plain handshake headers.
	AuthModeHeaders AuthMode = iota
	// AuthModeProtocol carries the signature as a base64 token offered as a
	// websocket sub-protocol, for contexts that cannot set custom headers.
	AuthModeProtocol
)

// String returns the string representation of the auth mode.
func (m AuthMode) String() string {
	return [...]string{"headers", "protocol"}[m]
}

// Subscription names one public channel to request on connect.
type Subscription struct {
	Channel string
	Symbol  string
}

// SessionConfig holds configuration for one websocket session.
type SessionConfig struct {
	// URL is the websocket endpoint to connect to.
	URL string
	// PingInterval is the cadence of outbound keepalive pings.
	PingInterval time.Duration
	// AuthMode selects the signature delivery for private sessions.
	AuthMode AuthMode
	// Subscriptions are requested once the session reaches the active state.
	Subscriptions []Subscription
}

// Session owns one websocket connection and the two activities that share
// it: the receive loop and the keepalive ticker. Outbound writes are
// serialized behind a mutex. Sessions do not reconnect; on an unrecoverable
// error they transition to the failed state and report through the error
// handler.
type Session struct {
	config SessionConfig
	router *Router
	engine *sign.Engine
	state  *ws.State
	logger zerolog.Logger

	mu     sync.Mutex
	conn   *gws.Conn
	sendFn func([]byte) error

	connectedCh chan struct{}
	connectOnce sync.Once
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	onError func(error)
}

// NewPublicSession creates a session for the public market-data endpoint.
func NewPublicSession(config SessionConfig, router *Router) *Session {
	return newSession(config, router, nil)
}

// NewPrivateSession creates a session for the private account endpoint.
// The engine signs the handshake; delivery follows config.AuthMode.
func NewPrivateSession(config SessionConfig, router *Router, engine *sign.Engine) *Session {
	return newSession(config, router, engine)
}

func newSession(config SessionConfig, router *Router, engine *sign.Engine) *Session {
	if config.PingInterval == 0 {
		config.PingInterval = core.DefaultPingInterval
	}
	return &Session{
		config:      config,
		router:      router,
		engine:      engine,
		state:       &ws.State{},
		logger:      zerolog.Nop(),
		connectedCh: make(chan struct{}),
		stopCh:      make(chan struct{}),
	}
}

// SetLogger configures the logger for the session.
func (s *Session) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetErrorHandler installs the callback invoked when the session fails.
func (s *Session) SetErrorHandler(handler func(error)) {
	s.onError = handler
}

// State returns the current session state.
func (s *Session) State() ws.ConnState {
	return s.state.Load()
}

// IsActive reports whether the session is serving traffic.
func (s *Session) IsActive() bool {
	return s.state.Load() == ws.StateActive
}

type sessionHandler struct {
	session *Session
}

func (h *sessionHandler) OnOpen(socket *gws.Conn) {
	s := h.session
	s.state.CompareAndSwap(ws.StateConnecting, ws.StateConnected)
	s.connectOnce.Do(func() { close(s.connectedCh) })
	s.logger.Info().Str("url", s.config.URL).Msg("websocket connected")
}

func (h *sessionHandler) OnClose(socket *gws.Conn, err error) {
	h.session.fail(err)
}

func (h *sessionHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(nil)
}

func (h *sessionHandler) OnPong(socket *gws.Conn, payload []byte) {}

func (h *sessionHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	// The frame buffer is recycled once this handler returns, but stores
	// retain payload slices beyond it.
	data := make([]byte, len(message.Bytes()))
	copy(data, message.Bytes())
	h.session.handleMessage(data)
}

// handleMessage processes one inbound frame. Malformed payloads are logged
// and skipped; application pings are answered with a pong echoing the time
// field and take no further action; everything else goes to the router.
// Frames are handled sequentially, so a slow callback delays the next frame.
func (s *Session) handleMessage(data []byte) {
	frame, err := ParseFrame(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("skipping malformed frame")
		return
	}

	if frame.FrameType() == FramePing {
		pong := pongFrame{Type: "pong", Time: frame.Time}
		if err := s.writeJSON(pong); err != nil {
			s.logger.Warn().Err(err).Msg("pong send failed")
		}
		return
	}

	s.router.Dispatch(frame)
}

// Connect establishes the connection, delivers authentication for private
// sessions, requests the configured subscriptions, and starts the keepalive
// ticker. It blocks until the session is active, the context expires, or the
// handshake fails.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(ws.StateDisconnected, ws.StateConnecting) {
		current := s.state.Load()
		if current == ws.StateClosed {
			return core.ErrSessionClosed
		}
		return core.NewError(core.ErrorTypeUsage, fmt.Sprintf("invalid state for connect: %s", current))
	}

	option := &gws.ClientOption{
		Addr:          s.config.URL,
		RequestHeader: http.Header{},
	}

	if s.engine != nil {
		if err := s.applyAuth(option); err != nil {
			s.state.Store(ws.StateFailed)
			return err
		}
	}

	socket, resp, err := gws.NewClient(&sessionHandler{session: s}, option)
	if err != nil {
		s.state.Store(ws.StateFailed)
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return core.WrapError(core.ErrorTypeAuth, "websocket handshake rejected", err)
		}
		return core.WrapError(core.ErrorTypeTransport, "connect websocket", err)
	}

	s.mu.Lock()
	s.conn = socket
	s.sendFn = func(data []byte) error {
		return socket.WriteMessage(gws.OpcodeText, data)
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		socket.ReadLoop()
	}()

	select {
	case <-s.connectedCh:
	case <-ctx.Done():
		_ = socket.NetConn().Close()
		s.state.Store(ws.StateFailed)
		return ctx.Err()
	case <-s.stopCh:
		_ = socket.NetConn().Close()
		return core.ErrSessionClosed
	}

	s.state.CompareAndSwap(ws.StateConnected, ws.StateSubscribing)
	for _, sub := range s.config.Subscriptions {
		if err := s.writeJSON(subscribeFrame{Type: "subscribe", Channel: sub.Channel, Symbol: sub.Symbol}); err != nil {
			s.fail(err)
			return core.WrapError(core.ErrorTypeTransport, "subscribe "+sub.Channel, err)
		}
	}
	s.state.CompareAndSwap(ws.StateSubscribing, ws.StateActive)

	s.wg.Add(1)
	go s.keepalive()

	s.logger.Info().
		Str("url", s.config.URL).
		Int("subscriptions", len(s.config.Subscriptions)).
		Msg("session active")
	return nil
}

// applyAuth attaches signed authentication to the handshake request.
func (s *Session) applyAuth(option *gws.ClientOption) error {
	endpoint, err := url.Parse(s.config.URL)
	if err != nil {
		return core.WrapError(core.ErrorTypeUsage, "parse websocket url", err)
	}

	headers, err := s.engine.Headers(http.MethodGet, endpoint.Path, nil)
	if err != nil {
		return err
	}

	switch s.config.AuthMode {
	case AuthModeHeaders:
		for k, v := range headers.Map() {
			option.RequestHeader.Set(k, v)
		}
	case AuthModeProtocol:
		token, err := AuthToken(headers)
		if err != nil {
			return err
		}
		option.RequestHeader.Set("Sec-WebSocket-Protocol", token)
	}
	return nil
}

// AuthToken encodes signed headers as a URL-safe, padding-free base64 JSON
// blob suitable for a websocket sub-protocol field.
func AuthToken(headers sign.SignedHeaders) (string, error) {
	blob, err := sonic.Marshal(headers.Map())
	if err != nil {
		return "", core.WrapError(core.ErrorTypeAuth, "encode auth token", err)
	}
	return base64.RawURLEncoding.EncodeToString(blob), nil
}

// Subscribe requests one additional public channel on a live session.
func (s *Session) Subscribe(channel, symbol string) error {
	if s.state.Load() != ws.StateActive {
		return core.ErrNotConnected
	}
	return s.writeJSON(subscribeFrame{Type: "subscribe", Channel: channel, Symbol: symbol})
}

// keepalive sends an application-level ping every PingInterval until the
// session stops.
func (s *Session) keepalive() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := pingFrame{Type: "ping", Time: strconv.FormatInt(time.Now().UnixMilli(), 10)}
			if err := s.writeJSON(ping); err != nil {
				s.logger.Warn().Err(err).Msg("keepalive send failed")
			}
		case <-s.stopCh:
			return
		}
	}
}

// writeJSON marshals v and writes it on the shared outbound path. The mutex
// serializes the receive loop's pong replies with the keepalive ticker.
func (s *Session) writeJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendFn == nil || s.state.Load().Terminal() {
		return core.ErrNotConnected
	}
	return s.sendFn(data)
}

// fail moves the session to the failed state, stops both activities, and
// releases the socket. Calls after the session is already terminal are
// no-ops, so owner-initiated shutdown wins over the close notification it
// provokes.
func (s *Session) fail(err error) {
	swapped := false
	for _, from := range []ws.ConnState{ws.StateConnecting, ws.StateConnected, ws.StateSubscribing, ws.StateActive} {
		if s.state.CompareAndSwap(from, ws.StateFailed) {
			swapped = true
			break
		}
	}
	if !swapped {
		return
	}

	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.NetConn().Close()
	}
	s.mu.Unlock()

	s.logger.Error().Err(err).Str("url", s.config.URL).Msg("session failed")
	if s.onError != nil {
		s.onError(err)
	}
}

// Close shuts the session down. It is idempotent, cancels both activities,
// and waits for them to finish before releasing the socket reference.
func (s *Session) Close() error {
	swapped := false
	for _, from := range []ws.ConnState{ws.StateDisconnected, ws.StateConnecting, ws.StateConnected, ws.StateSubscribing, ws.StateActive} {
		if s.state.CompareAndSwap(from, ws.StateClosed) {
			swapped = true
			break
		}
	}
	if !swapped {
		return nil
	}

	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.NetConn().Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Str("url", s.config.URL).Msg("session closed")
	return nil
}
