package store

import (
	"context"
	"fmt"

	"github.com/layer-3/tradeclient/core"
	"github.com/redis/go-redis/v9"
)

const (
	fieldAPIKey    = "api_key"
	fieldAPISecret = "api_secret"
)

// RedisStore keeps credentials in a Redis hash
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a new Redis store. The account name scopes the hash key.
func NewRedisStore(client *redis.Client, account string) *RedisStore {
	if account == "" {
		account = "default"
	}
	return &RedisStore{
		client: client,
		key:    "tradeclient:credentials:" + account,
	}
}

// Get loads the credentials hash
func (s *RedisStore) Get(ctx context.Context) (core.Credentials, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return core.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	creds := core.Credentials{
		APIKey:       fields[fieldAPIKey],
		APISecretRaw: fields[fieldAPISecret],
	}
	if creds.IsZero() {
		return core.Credentials{}, core.ErrNoCredentials
	}
	return creds, nil
}

// Set writes both fields in one command
func (s *RedisStore) Set(ctx context.Context, creds core.Credentials) error {
	if creds.IsZero() {
		return core.ErrCredentialsEmpty
	}

	err := s.client.HSet(ctx, s.key,
		fieldAPIKey, creds.APIKey,
		fieldAPISecret, creds.APISecretRaw,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// Clear deletes the credentials hash
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
