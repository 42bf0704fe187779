// Package webhookrelay implements an HTTP POST eventbus relay, forwarding
// ExtractionEvent JSON to a configurable URL with retry-with-backoff on
// transient failures.
package webhookrelay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/castellan/extract/eventbus/relay"
	"github.com/castellan/extract/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the webhook relay.
type Config struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Retries int
}

// Relay publishes ExtractionEvent JSON via HTTP POST.
type Relay struct {
	config Config
	client *http.Client
}

// New creates a webhook relay from cfg.
func New(cfg Config) (*Relay, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhookrelay: requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Relay{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// StatusError is returned for non-2xx HTTP responses, distinguishing
// retriable (5xx) from non-retriable (4xx) failures.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Publish sends eventJSON as an HTTP POST, retrying with exponential
// backoff on 5xx/network failures. 4xx responses fail immediately.
func (r *Relay) Publish(ctx context.Context, eventJSON []byte) error {
	var lastErr error
	attempts := 1 + r.config.Retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("webhookrelay: context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhookrelay: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = r.doRequest(ctx, eventJSON)
		if lastErr == nil {
			return nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return fmt.Errorf("webhookrelay: non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("webhookrelay: failed after %d attempts: %w", attempts, lastErr)
}

func (r *Relay) doRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases idle connections.
func (r *Relay) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

var _ relay.Relay = (*Relay)(nil)
