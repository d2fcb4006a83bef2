package rest

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgex/pkg/core"
	"edgex/pkg/sign"
)

type steppingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type testSigner struct{}

func (testSigner) Sign(msgHash, privateKey *big.Int) (*big.Int, *big.Int, error) {
	return new(big.Int).Set(msgHash), new(big.Int).Set(privateKey), nil
}

func (testSigner) PublicKey(privateKey *big.Int) (*big.Int, *big.Int, error) {
	return big.NewInt(1), big.NewInt(2), nil
}

func testConfig(baseURL string) *core.Config {
	cfg := core.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.RateLimitRequests = 1000
	cfg.RateLimitPeriod = time.Second
	return cfg
}

func testTransport(t *testing.T, baseURL string) *Transport {
	t.Helper()
	creds, err := core.ParseCredentials("0xabc", "100")
	require.NoError(t, err)

	engine := sign.NewEngine(creds, testSigner{}).WithClock(&steppingClock{t: time.UnixMilli(1700000000000)})
	return New(testConfig(baseURL), engine)
}

func TestTransport_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SETTLE_FUNDING_FEE", r.URL.Query().Get("filterTypeList"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"SUCCESS","data":{"ok":true}}`))
	}))
	defer server.Close()

	transport := testTransport(t, server.URL)
	defer transport.Close()

	req := core.NewRequest(http.MethodGet, "/api/v1/private/account/getPositionTransactionPage").
		SetQuery("filterTypeList", "SETTLE_FUNDING_FEE")

	resp, err := transport.Send(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	env, err := resp.Envelope()
	require.NoError(t, err)
	assert.True(t, env.IsSuccess())
}

func TestTransport_Send_SignsEachRequest(t *testing.T) {
	var signatures []string
	var timestamps []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signatures = append(signatures, r.Header.Get(sign.HeaderSignature))
		timestamps = append(timestamps, r.Header.Get(sign.HeaderTimestamp))
		w.Write([]byte(`{"code":"SUCCESS"}`))
	}))
	defer server.Close()

	transport := testTransport(t, server.URL)
	defer transport.Close()

	req := core.NewRequest(http.MethodGet, "/api/v1/private/account/getAccountAsset").SetRequireAuth(true)
	_, err := transport.Send(context.Background(), req)
	require.NoError(t, err)
	_, err = transport.Send(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, signatures, 2)
	assert.Len(t, signatures[0], 192)
	assert.NotEqual(t, timestamps[0], timestamps[1], "each attempt carries a fresh timestamp")
}

func TestTransport_Send_BackoffSequence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every attempt fails with connection refused

	transport := testTransport(t, server.URL)
	defer transport.Close()

	var waits []time.Duration
	transport.sleep = func(d time.Duration) { waits = append(waits, d) }
	transport.policy = core.RetryPolicy{MaxRetries: 3, BaseWait: time.Second, MaxWait: 5 * time.Second}

	req := core.NewRequest(http.MethodGet, "/api/v1/public/meta/getServerTime")
	_, err := transport.Send(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRetriesExhausted)
	assert.True(t, core.IsTransportError(err))
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}, waits)
}

func TestTransport_Send_BackoffCappedAtMaxWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	transport := testTransport(t, server.URL)
	defer transport.Close()

	var waits []time.Duration
	transport.sleep = func(d time.Duration) { waits = append(waits, d) }
	transport.policy = core.RetryPolicy{MaxRetries: 4, BaseWait: 2 * time.Second, MaxWait: 5 * time.Second}

	req := core.NewRequest(http.MethodGet, "/x")
	_, err := transport.Send(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}, waits)
}

func TestTransport_Send_RecoversMidRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"code":"SUCCESS"}`))
	}))
	defer server.Close()

	transport := testTransport(t, server.URL)
	defer transport.Close()
	transport.sleep = func(time.Duration) {}

	req := core.NewRequest(http.MethodGet, "/api/v1/public/meta/getServerTime")
	resp, err := transport.Send(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 3, calls)
}

func TestTransport_Send_NonSuccessStatusNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_PARAM"}`))
	}))
	defer server.Close()

	transport := testTransport(t, server.URL)
	defer transport.Close()

	req := core.NewRequest(http.MethodGet, "/x")
	resp, err := transport.Send(context.Background(), req)

	require.NoError(t, err, "application-level errors pass through as results")
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, resp.IsError())

	env, err := resp.Envelope()
	require.NoError(t, err)
	assert.False(t, env.IsSuccess())
}

func TestTransport_Send_UnsupportedMethod(t *testing.T) {
	transport := testTransport(t, "http://127.0.0.1:1")
	defer transport.Close()

	var waits []time.Duration
	transport.sleep = func(d time.Duration) { waits = append(waits, d) }

	req := core.NewRequest(http.MethodDelete, "/x")
	_, err := transport.Send(context.Background(), req)

	require.Error(t, err)
	assert.True(t, core.IsUsageError(err))
	assert.Empty(t, waits, "usage errors are fatal immediately, never retried")
}

func TestTransport_Send_AuthWithoutEngine(t *testing.T) {
	transport := New(testConfig("http://127.0.0.1:1"), nil)
	defer transport.Close()

	req := core.NewRequest(http.MethodGet, "/x").SetRequireAuth(true)
	_, err := transport.Send(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoCredentials)
	assert.True(t, core.IsAuthError(err))
}

func TestTransport_Send_PostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		w.Write([]byte(`{"code":"SUCCESS"}`))
	}))
	defer server.Close()

	transport := testTransport(t, server.URL)
	defer transport.Close()

	req := core.NewRequest(http.MethodPost, "/api/v1/private/order/createOrder").
		SetQuery("accountId", "100").
		SetBody(map[string]string{"contractId": "1", "size": "0.5"}).
		SetRequireAuth(true)

	resp, err := transport.Send(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}
