package tradeclient

import (
	"context"

	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/service"
)

// Client represents the public interface screens use to drive the trade client
type Client interface {
	// Navigate moves to another screen and invalidates in-flight operations
	Navigate(ctx context.Context, screen string) core.Generation

	// Reset invalidates in-flight operations and empties the cache
	Reset(ctx context.Context, reason string) core.Generation

	// Generation returns the live context generation
	Generation() core.Generation

	RefreshBalances(ctx context.Context) (service.Completion, error)
	RefreshTicker(ctx context.Context) (service.Completion, error)

	// Login exchanges user credentials for an API key pair
	Login(ctx context.Context, email, password, tfa string) error

	// Logout drops the key pair and resets the state
	Logout(ctx context.Context) error

	// Cache exposes balances and prices for reading
	Cache() *service.Cache
}

var _ Client = (*service.AppState)(nil)
