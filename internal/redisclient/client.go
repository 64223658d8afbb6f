package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"order-notify/internal/fcm"

	"github.com/go-redis/redis/v8"
)

// Client caches minted OAuth access tokens across processes. It implements
// fcm.TokenCache; the TTL keeps Redis from ever holding a token past its
// usable lifetime, and readers re-check expiry regardless.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetAccessToken retrieves a cached access token, nil on miss.
func (c *Client) GetAccessToken(ctx context.Context, key string) (*fcm.AccessToken, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("access token cache get failed: %w", err)
	}

	var token fcm.AccessToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to decode cached access token: %w", err)
	}
	return &token, nil
}

// SetAccessToken stores an access token with a TTL bounded by its expiry.
func (c *Client) SetAccessToken(ctx context.Context, key string, token *fcm.AccessToken, ttl time.Duration) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode access token: %w", err)
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}
