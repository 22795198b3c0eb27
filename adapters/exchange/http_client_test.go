package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layer-3/tradeclient/adapters/signer"
	"github.com/layer-3/tradeclient/adapters/store"
	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	testKey           = "iqZKMVbnCcXgpLteFaSuUMbndUw4BkWSCrXylu8PycdcGNBKXKF56twx"
	testSecret        = "AL8N3xtau892JbZLJPnEUhnzVZBOVpVw93GMfJL9CP1s1sHQN9YfDIh3crHzXecamZS8vkS7WO7fuBqQzKFHiQaM"
	testSigningDomain = "www.solidi.co"
)

type captured struct {
	method  string
	path    string
	headers http.Header
	body    string
}

func newTestClient(t *testing.T, handler http.HandlerFunc, withCreds bool) (*HTTPClient, chan captured) {
	t.Helper()

	reqs := make(chan captured, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- captured{method: r.Method, path: r.URL.Path, headers: r.Header.Clone(), body: string(body)}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	creds := store.NewMemoryStore()
	if withCreds {
		require.NoError(t, creds.Set(context.Background(), core.Credentials{APIKey: testKey, APISecretRaw: testSecret}))
	}

	client, err := NewHTTPClient(Config{
		Domain:        strings.TrimPrefix(server.URL, "http://"),
		SigningDomain: testSigningDomain,
		Scheme:        "http",
		UserAgent:     "tradeclient-test/1.0",
		Metrics:       metrics.New("test"),
	}, creds, signer.NewHMACSigner(), core.NewNonceSequencer(nil))
	require.NoError(t, err)
	return client, reqs
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestNewHTTPClient_RequiresSigningDomain(t *testing.T) {
	_, err := NewHTTPClient(Config{Domain: "t2.solidi.co"}, store.NewMemoryStore(), signer.NewHMACSigner(), core.NewNonceSequencer(nil))
	assert.Error(t, err)
}

func TestPrivateCall_SignsTransmittedBody(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `{"BTC":"0.5"}`), true)

	res, err := client.PrivateCall(context.Background(), http.MethodPost, "balance", map[string]interface{}{"asset": "BTC"})
	require.NoError(t, err)
	assert.Equal(t, "0.5", res.Get("BTC").String())

	req := <-reqs
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api2/v1/balance", req.path)
	assert.Equal(t, "application/json", req.headers.Get("Content-Type"))
	assert.Equal(t, "tradeclient-test/1.0", req.headers.Get("User-Agent"))
	assert.Equal(t, testKey, req.headers.Get("API-Key"))

	assert.True(t, gjson.Get(req.body, "nonce").Exists())
	assert.Equal(t, "BTC", gjson.Get(req.body, "asset").String())

	// Verify the way the server does: signing domain, path and the received bytes
	want := signer.NewHMACSigner().Sign([]byte(testSecret), testSigningDomain, req.path, req.body)
	assert.Equal(t, want, req.headers.Get("API-Sign"))
}

func TestPrivateCall_NonceOverridesCallerValue(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `{}`), true)

	_, err := client.PrivateCall(context.Background(), http.MethodPost, "balance", map[string]interface{}{"nonce": 1})
	require.NoError(t, err)

	req := <-reqs
	assert.Greater(t, gjson.Get(req.body, "nonce").Uint(), uint64(1))
}

func TestPrivateCall_NoncesIncreaseAcrossCalls(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `{}`), true)

	var prev uint64
	for i := 0; i < 5; i++ {
		_, err := client.PrivateCall(context.Background(), http.MethodPost, "balance", nil)
		require.NoError(t, err)
		n := gjson.Get((<-reqs).body, "nonce").Uint()
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestPrivateCall_NoHTMLEscaping(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `{}`), true)

	_, err := client.PrivateCall(context.Background(), http.MethodPost, "withdraw/BTC", map[string]interface{}{"note": "a<b&c"})
	require.NoError(t, err)

	req := <-reqs
	assert.Contains(t, req.body, `"note":"a<b&c"`)
	assert.Equal(t, "/api2/v1/withdraw/BTC", req.path)
}

func TestPrivateCall_GetCarriesNoBody(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `[]`), true)

	_, err := client.PrivateCall(context.Background(), http.MethodGet, "transaction", map[string]interface{}{"limit": 10})
	require.NoError(t, err)

	req := <-reqs
	assert.Equal(t, http.MethodGet, req.method)
	assert.Empty(t, req.body)
	assert.NotEmpty(t, req.headers.Get("API-Sign"))
}

func TestPrivateCall_NoCredentials(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		respond(http.StatusOK, `{}`)(w, r)
	}, false)

	_, err := client.PrivateCall(context.Background(), http.MethodPost, "balance", nil)
	assert.ErrorIs(t, err, core.ErrNoCredentials)
	assert.Zero(t, hits.Load())
}

func TestPublicCall_Unsigned(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `{"BTC/GBP":{"price":"31712.51"}}`), true)

	res, err := client.PublicCall(context.Background(), http.MethodGet, "ticker", nil)
	require.NoError(t, err)
	assert.Equal(t, "31712.51", res.Get(`BTC/GBP.price`).String())

	req := <-reqs
	assert.Equal(t, "/api2/v1/ticker", req.path)
	assert.Empty(t, req.headers.Get("API-Key"))
	assert.Empty(t, req.headers.Get("API-Sign"))
	assert.Equal(t, "tradeclient-test/1.0", req.headers.Get("User-Agent"))
}

func TestPublicCall_PostBody(t *testing.T) {
	client, reqs := newTestClient(t, respond(http.StatusOK, `{"apiKey":"k","apiSecret":"s"}`), false)

	_, err := client.PublicCall(context.Background(), http.MethodPost, "login_mobile/a@b.c", map[string]interface{}{"password": "pw", "tfa": ""})
	require.NoError(t, err)

	req := <-reqs
	assert.JSONEq(t, `{"password":"pw","tfa":""}`, req.body)
	assert.False(t, gjson.Get(req.body, "nonce").Exists())
}

func TestCall_APIErrorPayloadVerbatim(t *testing.T) {
	client, _ := newTestClient(t, respond(http.StatusOK, `{"error":{"code":400,"message":"Insufficient funds"}}`), true)

	_, err := client.PrivateCall(context.Background(), http.MethodPost, "withdraw/BTC", nil)

	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, "Insufficient funds", apiErr.Message)
	assert.JSONEq(t, `{"code":400,"message":"Insufficient funds"}`, string(apiErr.Payload))
}

func TestCall_NullErrorIsSuccess(t *testing.T) {
	client, _ := newTestClient(t, respond(http.StatusOK, `{"error":null,"data":{"id":7}}`), true)

	res, err := client.PrivateCall(context.Background(), http.MethodPost, "buy", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Get("data.id").Int())
}

func TestCall_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, respond(http.StatusServiceUnavailable, `{"status":"maintenance"}`), true)

	_, err := client.PublicCall(context.Background(), http.MethodGet, "ticker", nil)

	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.JSONEq(t, `{"status":"maintenance"}`, string(apiErr.Payload))
}

func TestCall_InvalidJSONIsNetworkError(t *testing.T) {
	client, _ := newTestClient(t, respond(http.StatusBadGateway, `<html>bad gateway</html>`), true)

	_, err := client.PublicCall(context.Background(), http.MethodGet, "ticker", nil)

	var netErr *core.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "decode", netErr.Op)
}

func TestCall_TransportFailure(t *testing.T) {
	client, err := NewHTTPClient(Config{
		Domain:        "127.0.0.1:1",
		SigningDomain: testSigningDomain,
		Scheme:        "http",
		Timeout:       time.Second,
	}, store.NewMemoryStore(), signer.NewHMACSigner(), core.NewNonceSequencer(nil))
	require.NoError(t, err)

	_, err = client.PublicCall(context.Background(), http.MethodGet, "ticker", nil)

	var netErr *core.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "send", netErr.Op)
}

func TestClassify_Truthiness(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"no error field", `{"ok":true}`, false},
		{"empty string", `{"error":""}`, false},
		{"false", `{"error":false}`, false},
		{"zero", `{"error":0}`, false},
		{"message", `{"error":"Invalid nonce"}`, true},
		{"object", `{"error":{}}`, true},
		{"array body", `[1,2]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classify(http.StatusOK, []byte(tt.body))
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
