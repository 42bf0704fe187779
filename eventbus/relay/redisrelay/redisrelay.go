// Package redisrelay implements a Redis pub/sub eventbus relay, forwarding
// ExtractionEvent JSON to a configurable channel. Retries with exponential
// backoff on connection errors.
package redisrelay

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/castellan/extract/eventbus/relay"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "castellan:extraction_events"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub relay.
type Config struct {
	// URL is the Redis connection URL (required), e.g.
	// redis://[:password@]host:port[/db].
	URL string
	// Channel is the pub/sub channel name (default DefaultChannel).
	Channel string
	// Timeout is the per-publish timeout (default DefaultTimeout).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default DefaultRetries).
	Retries int
}

// Relay publishes ExtractionEvent JSON via Redis PUBLISH.
type Relay struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub relay from cfg.
func New(cfg Config) (*Relay, error) {
	if cfg.URL == "" {
		return nil, errors.New("redisrelay: requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redisrelay: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Relay{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Publish sends eventJSON as a PUBLISH to the configured channel, retrying
// with exponential backoff on failure.
func (r *Relay) Publish(ctx context.Context, eventJSON []byte) error {
	var lastErr error
	attempts := 1 + r.config.Retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redisrelay: context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("redisrelay: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		lastErr = r.client.Publish(publishCtx, r.config.Channel, eventJSON).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redisrelay: failed after %d attempts: %w", attempts, lastErr)
}

// Close releases the underlying Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}

var _ relay.Relay = (*Relay)(nil)
