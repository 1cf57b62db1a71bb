package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helmwatch/nmea-ingest/internal/aggregate"
	"github.com/helmwatch/nmea-ingest/internal/types"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches the latest navigation state per source
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// StoreSnapshot caches the latest navigation snapshot for a source
func (c *Client) StoreSnapshot(ctx context.Context, source string, snap *aggregate.Aggregate) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("nav:%s", source)
	return c.client.Set(ctx, key, data, 1*time.Hour).Err()
}

// GetSnapshot retrieves the latest navigation snapshot for a source
func (c *Client) GetSnapshot(ctx context.Context, source string) (*aggregate.Aggregate, error) {
	key := fmt.Sprintf("nav:%s", source)
	var snap aggregate.Aggregate
	found, err := c.getData(ctx, key, &snap, "snapshot")
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// DeleteSnapshot removes the cached snapshot for a source
func (c *Client) DeleteSnapshot(ctx context.Context, source string) error {
	return c.client.Del(ctx, fmt.Sprintf("nav:%s", source)).Err()
}

// StoreStatus caches the latest connection status for a source
func (c *Client) StoreStatus(ctx context.Context, source string, ev *types.StatusEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	key := fmt.Sprintf("status:%s", source)
	return c.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetStatus retrieves the latest connection status for a source
func (c *Client) GetStatus(ctx context.Context, source string) (*types.StatusEvent, error) {
	key := fmt.Sprintf("status:%s", source)
	var ev types.StatusEvent
	found, err := c.getData(ctx, key, &ev, "status")
	if err != nil || !found {
		return nil, err
	}
	return &ev, nil
}

// StoreLastError caches the most recent error event for a source
func (c *Client) StoreLastError(ctx context.Context, source string, e *types.NMEAError) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal error event: %w", err)
	}

	key := fmt.Sprintf("lasterr:%s", source)
	return c.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetLastError retrieves the most recent error event for a source
func (c *Client) GetLastError(ctx context.Context, source string) (*types.NMEAError, error) {
	key := fmt.Sprintf("lasterr:%s", source)
	var e types.NMEAError
	found, err := c.getData(ctx, key, &e, "error")
	if err != nil || !found {
		return nil, err
	}
	return &e, nil
}

// getData retrieves data from Redis and unmarshals it into the target. The
// bool reports whether the key existed.
func (c *Client) getData(ctx context.Context, key string, target interface{}, dataType string) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil // Data not found
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s data: %w", dataType, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s data: %w", dataType, err)
	}

	return true, nil
}
