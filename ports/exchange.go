package ports

import (
	"context"

	"github.com/layer-3/tradeclient/core"
)

// ExchangeAPI issues calls against the remote trading service.
// Failures are *core.NetworkError, *core.APIError or core.ErrNoCredentials.
type ExchangeAPI interface {
	PublicCall(ctx context.Context, method, route string, params map[string]interface{}) (core.Result, error)
	PrivateCall(ctx context.Context, method, route string, params map[string]interface{}) (core.Result, error)
}

// RequestSigner computes the signature for a private call
type RequestSigner interface {
	Sign(secretRaw []byte, domain, path, body string) string
}
