package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a cached value is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb *redis.Client
}

// ProgressSnapshot is the cached visit progress of one service.
type ProgressSnapshot struct {
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	CachedAt  time.Time `json:"cached_at"`
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func progressKey(serviceID uint) string {
	return fmt.Sprintf("service_progress:%d", serviceID)
}

func submissionKey(key string) string {
	return "submission:" + key
}

// Service progress caching
func (c *Client) SetServiceProgress(ctx context.Context, serviceID uint, snapshot ProgressSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	return c.rdb.Set(ctx, progressKey(serviceID), data, ttl).Err()
}

func (c *Client) GetServiceProgress(ctx context.Context, serviceID uint) (*ProgressSnapshot, error) {
	val, err := c.rdb.Get(ctx, progressKey(serviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get service progress: %w", err)
	}

	var snapshot ProgressSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &snapshot, nil
}

func (c *Client) DeleteServiceProgress(ctx context.Context, serviceID uint) error {
	return c.rdb.Del(ctx, progressKey(serviceID)).Err()
}

// In-flight submission locks

// AcquireSubmission claims key for ttl. It returns false when another request
// already holds the key.
func (c *Client) AcquireSubmission(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, submissionKey(key), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire submission lock: %w", err)
	}
	return ok, nil
}

func (c *Client) ReleaseSubmission(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, submissionKey(key)).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
