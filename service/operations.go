package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/ports"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	OpBalances = "balances"
	OpTicker   = "ticker"
)

// LoginOrigin describes the client in login requests
type LoginOrigin struct {
	ClientType     string
	OS             string
	AppVersion     string
	AppBuildNumber string
	AppTier        string
}

// RefreshBalances loads the account balances and caches them if still relevant
func (s *AppState) RefreshBalances(ctx context.Context) (Completion, error) {
	return s.Run(ctx, Operation{
		Name: OpBalances,
		Call: func(ctx context.Context, api ports.ExchangeAPI) (core.Result, error) {
			return api.PrivateCall(ctx, http.MethodPost, "balance", nil)
		},
		Decode: decodeBalances,
	})
}

// RefreshTicker loads market prices and caches them if still relevant
func (s *AppState) RefreshTicker(ctx context.Context) (Completion, error) {
	return s.Run(ctx, Operation{
		Name: OpTicker,
		Call: func(ctx context.Context, api ports.ExchangeAPI) (core.Result, error) {
			return api.PublicCall(ctx, http.MethodGet, "ticker", nil)
		},
		Decode: decodeTicker,
	})
}

// Login exchanges user credentials for an API key pair and saves it to the
// credential store. The key pair belongs to the session, so login is not
// generation guarded.
func (s *AppState) Login(ctx context.Context, email, password, tfa string) error {
	params := map[string]interface{}{
		"password": password,
		"tfa":      tfa,
		"optionalParams": map[string]interface{}{
			"origin": map[string]interface{}{
				"clientType":     s.origin.ClientType,
				"os":             s.origin.OS,
				"appVersion":     s.origin.AppVersion,
				"appBuildNumber": s.origin.AppBuildNumber,
				"appTier":        s.origin.AppTier,
			},
		},
	}

	res, err := s.api.PublicCall(ctx, http.MethodPost, "login_mobile/"+url.PathEscape(email), params)
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) && gjson.GetBytes(apiErr.Payload, "details.tfa_required").Bool() {
			return core.ErrTFARequired
		}
		return fmt.Errorf("login: %w", err)
	}

	var keys struct {
		APIKey    string `json:"apiKey"`
		APISecret string `json:"apiSecret"`
	}
	if err := res.Decode(&keys); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidLogin, err)
	}

	creds := core.Credentials{APIKey: keys.APIKey, APISecretRaw: keys.APISecret}
	if creds.IsZero() {
		return core.ErrInvalidLogin
	}

	if err := s.creds.Set(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.log.WithField("generation", s.guard.Current()).Info("logged in")
	return nil
}

// Logout clears the credentials and resets the state
func (s *AppState) Logout(ctx context.Context) error {
	if err := s.creds.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	s.Reset(ctx, "logout")
	return nil
}

// decodeBalances reads {"BTC": "0.01", "GBP": "100.00"}. Every entry must parse.
func decodeBalances(res core.Result) (Mutation, error) {
	body := gjson.ParseBytes(res.Body)
	if !body.IsObject() {
		return nil, errors.New("balance response is not an object")
	}

	balances := make(map[string]decimal.Decimal)
	var decodeErr error
	body.ForEach(func(key, value gjson.Result) bool {
		amount, err := decimal.NewFromString(value.String())
		if err != nil {
			decodeErr = fmt.Errorf("balance %s: %w", key.String(), err)
			return false
		}
		balances[key.String()] = amount
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	return func(w *CacheWriter) { w.ReplaceBalances(balances) }, nil
}

// decodeTicker reads {"BTC/GBP": {"price": "31712.51"}, "XRP/GBP": {"error": "...", "price": null}}.
// Markets without a usable price are left out.
func decodeTicker(res core.Result) (Mutation, error) {
	body := gjson.ParseBytes(res.Body)
	if !body.IsObject() {
		return nil, errors.New("ticker response is not an object")
	}

	prices := make(map[string]decimal.Decimal)
	var decodeErr error
	body.ForEach(func(market, entry gjson.Result) bool {
		price := entry.Get("price")
		if !price.Exists() || price.Type == gjson.Null || price.String() == "" || price.String() == "DOWN" {
			return true
		}
		value, err := decimal.NewFromString(price.String())
		if err != nil {
			decodeErr = fmt.Errorf("ticker %s: %w", market.String(), err)
			return false
		}
		prices[market.String()] = value
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	return func(w *CacheWriter) { w.ReplacePrices(prices) }, nil
}
