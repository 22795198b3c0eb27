package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/metrics"
	"github.com/layer-3/tradeclient/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// APIPrefix is prepended to every route, both in the URL and in the signed path
	APIPrefix = "/api2/v1/"

	maxResponseBytes = 8 << 20
)

// Config configures the HTTP client
type Config struct {
	// Domain is the host requests are sent to
	Domain string
	// SigningDomain is the domain the signature is computed against. It may differ
	// from Domain and must be set explicitly.
	SigningDomain string
	Scheme        string
	UserAgent     string
	Timeout       time.Duration

	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	Metrics    *metrics.Metrics
}

// HTTPClient issues public and signed private calls against the exchange REST API
type HTTPClient struct {
	http          *http.Client
	store         ports.CredentialStore
	signer        ports.RequestSigner
	nonces        *core.NonceSequencer
	limiter       *rate.Limiter
	log           logrus.FieldLogger
	metrics       *metrics.Metrics
	scheme        string
	domain        string
	signingDomain string
	userAgent     string
}

// NewHTTPClient creates a new exchange client
func NewHTTPClient(
	cfg Config,
	store ports.CredentialStore,
	signer ports.RequestSigner,
	nonces *core.NonceSequencer,
) (*HTTPClient, error) {
	if cfg.Domain == "" {
		return nil, errors.New("exchange domain is required")
	}
	if cfg.SigningDomain == "" {
		return nil, errors.New("exchange signing domain is required")
	}
	if store == nil || signer == nil || nonces == nil {
		return nil, errors.New("credential store, signer and nonce sequencer are required")
	}

	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &HTTPClient{
		http:          httpClient,
		store:         store,
		signer:        signer,
		nonces:        nonces,
		limiter:       limiter,
		log:           log.WithField("component", "exchange"),
		metrics:       cfg.Metrics,
		scheme:        scheme,
		domain:        cfg.Domain,
		signingDomain: cfg.SigningDomain,
		userAgent:     cfg.UserAgent,
	}, nil
}

// PublicCall issues an unauthenticated request
func (c *HTTPClient) PublicCall(ctx context.Context, method, route string, params map[string]interface{}) (core.Result, error) {
	var body string
	if params != nil {
		encoded, err := encodeBody(params)
		if err != nil {
			return core.Result{}, err
		}
		body = encoded
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return core.Result{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   c.userAgent,
	}
	return c.do(ctx, "public", method, routePath(route), headers, body)
}

// PrivateCall issues a signed request. It fails with core.ErrNoCredentials before
// touching the network when the store holds no credentials.
func (c *HTTPClient) PrivateCall(ctx context.Context, method, route string, params map[string]interface{}) (core.Result, error) {
	creds, err := c.store.Get(ctx)
	if errors.Is(err, core.ErrNoCredentials) || (err == nil && creds.IsZero()) {
		return core.Result{}, core.ErrNoCredentials
	}
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	// Pace before drawing the nonce so nonce order matches send order
	if err := c.limiter.Wait(ctx); err != nil {
		return core.Result{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := c.sign(creds, method, route, params)
	if err != nil {
		return core.Result{}, err
	}
	return c.do(ctx, "private", req.Method, req.Path, req.Headers, req.Body)
}

// sign draws a nonce, serializes the body once and signs exactly those bytes
func (c *HTTPClient) sign(creds core.Credentials, method, route string, params map[string]interface{}) (core.SignedRequest, error) {
	nonce := c.nonces.Next()
	if c.metrics != nil {
		c.metrics.NoncesIssued.Inc()
	}

	payload := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["nonce"] = uint64(nonce)

	body, err := encodeBody(payload)
	if err != nil {
		return core.SignedRequest{}, err
	}

	path := routePath(route)
	signature := c.signer.Sign([]byte(creds.APISecretRaw), c.signingDomain, path, body)

	return core.SignedRequest{
		Method:          method,
		Path:            path,
		CanonicalString: c.signingDomain + path + body,
		Signature:       signature,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"User-Agent":   c.userAgent,
			"API-Key":      creds.APIKey,
			"API-Sign":     signature,
		},
		Body: body,
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, kind, method, path string, headers map[string]string, body string) (core.Result, error) {
	log := c.log.WithFields(logrus.Fields{"kind": kind, "method": method, "path": path})

	var reader io.Reader
	if method != http.MethodGet && body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.scheme+"://"+c.domain+path, reader)
	if err != nil {
		return core.Result{}, &core.NetworkError{Op: "build request", Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(kind, "network", start)
		log.WithError(err).Warn("exchange request failed")
		return core.Result{}, &core.NetworkError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(kind, "network", start)
		return core.Result{}, &core.NetworkError{Op: "read", Err: err}
	}

	result, err := classify(resp.StatusCode, raw)
	c.observe(kind, resultClass(err), start)

	log = log.WithField("status", resp.StatusCode)
	if err != nil {
		log.WithError(err).Debug("exchange call returned an error")
	} else {
		log.Debug("exchange call succeeded")
	}
	return result, err
}

func (c *HTTPClient) observe(kind, result string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.Calls.WithLabelValues(kind, result).Inc()
	c.metrics.CallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func routePath(route string) string {
	return APIPrefix + strings.TrimPrefix(route, "/")
}

// encodeBody serializes v the way it is transmitted: no HTML escaping, no trailing newline
func encodeBody(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
