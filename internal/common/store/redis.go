// Package store is the Redis-backed session key-value state.
package store

import (
	"context"
	"fmt"
	"time"

	"campaign-engine/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// The only client-durable values the engine keeps are the auth token
// and the one-shot "selected product" handoff; everything else is
// persisted through the backend's saveProgress.
const (
	authTokenKeyFmt      = "session:%s:auth_token"
	productHandoffKeyFmt = "session:%s:selected_product"

	defaultTokenTTL   = 24 * time.Hour
	defaultHandoffTTL = 15 * time.Minute
)

// Client wraps the Redis client for session-scoped key-value state.
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis-backed store.
func New(cfg config.RedisConfig) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return &Client{rdb: rdb}
}

// NewWithClient wraps an existing client (used by tests with miniredis).
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Ping tests the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// SetAuthToken stores the bearer token for a user session.
func (c *Client) SetAuthToken(ctx context.Context, userID, token string) error {
	return c.rdb.Set(ctx, fmt.Sprintf(authTokenKeyFmt, userID), token, defaultTokenTTL).Err()
}

// AuthToken retrieves the bearer token for a user session. Returns an
// empty string when no token is stored.
func (c *Client) AuthToken(ctx context.Context, userID string) (string, error) {
	token, err := c.rdb.Get(ctx, fmt.Sprintf(authTokenKeyFmt, userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return token, err
}

// ClearAuthToken removes the stored token (logout).
func (c *Client) ClearAuthToken(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(authTokenKeyFmt, userID)).Err()
}

// SetProductHandoff stores the "selected product" handoff written by
// the marketplace before the wizard opens.
func (c *Client) SetProductHandoff(ctx context.Context, userID, productJSON string) error {
	return c.rdb.Set(ctx, fmt.Sprintf(productHandoffKeyFmt, userID), productJSON, defaultHandoffTTL).Err()
}

// TakeProductHandoff consumes the handoff value. It is one-shot: the
// key is deleted atomically with the read.
func (c *Client) TakeProductHandoff(ctx context.Context, userID string) (string, error) {
	v, err := c.rdb.GetDel(ctx, fmt.Sprintf(productHandoffKeyFmt, userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}
