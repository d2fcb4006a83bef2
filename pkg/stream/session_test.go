package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgex/internal/ws"
	"edgex/pkg/core"
	"edgex/pkg/sign"
)

type stubSigner struct{}

func (stubSigner) Sign(msgHash, privateKey *big.Int) (*big.Int, *big.Int, error) {
	return big.NewInt(3), big.NewInt(4), nil
}

func (stubSigner) PublicKey(privateKey *big.Int) (*big.Int, *big.Int, error) {
	return big.NewInt(5), big.NewInt(6), nil
}

// wiredSession returns a session whose outbound path is captured in a slice
// instead of a live socket.
func wiredSession(t *testing.T, persist bool) (*Session, *Registry, *Store, *[][]byte) {
	t.Helper()

	registry := NewRegistry()
	public := NewStore(10, persist)
	private := NewStore(10, persist)
	router := NewRouter(registry, public, private)

	session := NewPublicSession(SessionConfig{URL: "wss://example.test/ws"}, router)

	var sent [][]byte
	session.sendFn = func(data []byte) error {
		sent = append(sent, data)
		return nil
	}
	session.state.Store(ws.StateActive)

	return session, registry, public, &sent
}

func TestSession_PingReply(t *testing.T) {
	session, registry, _, sent := wiredSession(t, true)

	var routed bool
	registry.Register("kline", func(json.RawMessage) { routed = true })

	session.handleMessage([]byte(`{"type":"ping","time":"123"}`))

	require.Len(t, *sent, 1, "exactly one pong per ping")
	assert.JSONEq(t, `{"type":"pong","time":"123"}`, string((*sent)[0]))
	assert.False(t, routed, "pings trigger no router dispatch")
}

func TestSession_PingReply_NumericTime(t *testing.T) {
	session, _, _, sent := wiredSession(t, true)

	session.handleMessage([]byte(`{"type":"ping","time":1700000000123}`))

	require.Len(t, *sent, 1)
	assert.JSONEq(t, `{"type":"pong","time":1700000000123}`, string((*sent)[0]), "the time field is echoed in its wire form")
}

func TestSession_MalformedFrameNonFatal(t *testing.T) {
	session, registry, _, sent := wiredSession(t, true)

	session.handleMessage([]byte(`{"type":`))
	assert.Empty(t, *sent)

	// The session keeps serving after a malformed frame.
	var got json.RawMessage
	registry.Register("depth", func(payload json.RawMessage) { got = payload })
	session.handleMessage([]byte(`{"type":"payload","channel":"btc.depth","content":{"data":{"lvl":1}}}`))
	assert.JSONEq(t, `{"lvl":1}`, string(got))
}

func TestSession_DispatchesToRouter(t *testing.T) {
	session, registry, public, _ := wiredSession(t, true)

	var got json.RawMessage
	registry.Register("trades", func(payload json.RawMessage) { got = payload })

	session.handleMessage([]byte(`{"type":"payload","channel":"spot.trades","content":{"data":[{"p":"1"}]}}`))

	assert.JSONEq(t, `[{"p":"1"}]`, string(got))
	assert.Equal(t, 1, public.Len("trades"))
}

func TestSession_WriteAfterCloseFails(t *testing.T) {
	session, _, _, _ := wiredSession(t, true)
	session.state.Store(ws.StateClosed)

	err := session.writeJSON(pingFrame{Type: "ping", Time: "1"})
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestSession_CloseIdempotent(t *testing.T) {
	router := NewRouter(NewRegistry(), NewStore(1, false), NewStore(1, false))
	session := NewPublicSession(SessionConfig{URL: "wss://example.test/ws"}, router)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.Equal(t, ws.StateClosed, session.State())
}

func TestSession_ConnectAfterClose(t *testing.T) {
	router := NewRouter(NewRegistry(), NewStore(1, false), NewStore(1, false))
	session := NewPublicSession(SessionConfig{URL: "wss://example.test/ws"}, router)
	require.NoError(t, session.Close())

	err := session.Connect(context.Background())
	assert.ErrorIs(t, err, core.ErrSessionClosed)
}

func TestSession_SubscribeRequiresActive(t *testing.T) {
	router := NewRouter(NewRegistry(), NewStore(1, false), NewStore(1, false))
	session := NewPublicSession(SessionConfig{URL: "wss://example.test/ws"}, router)

	err := session.Subscribe("ticker.kline.BTCUSDT", "BTCUSDT")
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestSession_FailReportsAndIsTerminal(t *testing.T) {
	session, _, _, _ := wiredSession(t, false)

	var reported error
	session.SetErrorHandler(func(err error) { reported = err })

	cause := errors.New("connection reset")
	session.fail(cause)

	assert.Equal(t, ws.StateFailed, session.State())
	assert.Equal(t, cause, reported)

	// A second failure (e.g. the close notification) is a no-op.
	session.fail(errors.New("other"))
	assert.Equal(t, cause, reported)
}

func TestSession_CloseWinsOverFail(t *testing.T) {
	session, _, _, _ := wiredSession(t, false)

	var reported error
	session.SetErrorHandler(func(err error) { reported = err })

	require.NoError(t, session.Close())
	session.fail(errors.New("socket closed"))

	assert.Equal(t, ws.StateClosed, session.State(), "owner shutdown is not a failure")
	assert.Nil(t, reported)
}

func TestSession_DefaultPingInterval(t *testing.T) {
	router := NewRouter(NewRegistry(), NewStore(1, false), NewStore(1, false))
	session := NewPublicSession(SessionConfig{URL: "wss://example.test/ws"}, router)
	assert.Equal(t, core.DefaultPingInterval, session.config.PingInterval)
}

func TestAuthToken_RoundTrip(t *testing.T) {
	creds, err := core.ParseCredentials("0x7", "900")
	require.NoError(t, err)
	engine := sign.NewEngine(creds, stubSigner{})

	headers, err := engine.Headers("GET", "/api/v1/private/ws", nil)
	require.NoError(t, err)

	token, err := AuthToken(headers)
	require.NoError(t, err)
	assert.NotContains(t, token, "=", "token is padding-free")

	blob, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, sonic.Unmarshal(blob, &decoded))
	assert.Equal(t, headers.Signature, decoded[sign.HeaderSignature])
	assert.Equal(t, headers.Timestamp, decoded[sign.HeaderTimestamp])
}

func TestAuthMode_String(t *testing.T) {
	assert.Equal(t, "headers", AuthModeHeaders.String())
	assert.Equal(t, "protocol", AuthModeProtocol.String())
}
