package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig mirrors the connection-url-plus-retry shape the example
// corpus's redis integration package documents for its Connect helper.
type RedisConfig struct {
	ConnectionURL  string
	Key            string // the single key this process's state is stored under
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Key == "" {
		c.Key = "hyperprocess:state"
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 5 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	return c
}

// Redis is a host.StateStore backed by a single Redis key, holding the
// most recent serialized snapshot.
type Redis struct {
	client *redis.Client
	key    string
}

// Connect parses cfg.ConnectionURL, dials Redis with exponential-backoff
// retry up to RetryAttempts, and verifies connectivity with PING before
// returning.
func Connect(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	cfg = cfg.withDefaults()
	if cfg.ConnectionURL == "" {
		return nil, errors.New("statestore: empty redis connection url")
	}
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("statestore: failed to parse redis connection url: %w", err)
	}
	client := redis.NewClient(opts)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var pingErr error
	backoff := cfg.RetryInterval
	for attempt := 0; attempt < cfg.RetryAttempts; attempt++ {
		if pingErr = client.Ping(dialCtx).Err(); pingErr == nil {
			return &Redis{client: client, key: cfg.Key}, nil
		}
		select {
		case <-time.After(backoff):
		case <-dialCtx.Done():
			return nil, fmt.Errorf("statestore: redis not ready: %w", dialCtx.Err())
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("statestore: redis not ready after %d attempts: %w", cfg.RetryAttempts, pingErr)
}

func (r *Redis) Read(ctx context.Context) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("statestore: redis get: %w", err)
	}
	return data, true, nil
}

func (r *Redis) Write(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("statestore: redis set: %w", err)
	}
	return nil
}

// Healthcheck pings Redis and returns the error, if any; its method value
// is suitable for registration with a readiness prober, mirroring the
// corpus's redis.Healthcheck(client) shape.
func (r *Redis) Healthcheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
