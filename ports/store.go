package ports

import (
	"context"

	"github.com/layer-3/tradeclient/core"
)

// CredentialStore is the external secret store holding the session's API key pair.
// Get returns core.ErrNoCredentials when nothing is stored.
type CredentialStore interface {
	Get(ctx context.Context) (core.Credentials, error)
	Set(ctx context.Context, creds core.Credentials) error
	Clear(ctx context.Context) error
}
