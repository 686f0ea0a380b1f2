// Package directory talks to the external department directory feed.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

const maxFeedBytes = 4 << 20

// Company is the organization an entity belongs to.
type Company struct {
	Name string `json:"name"`
}

// Entity is one record of the directory feed.
type Entity struct {
	ID      int64    `json:"id"`
	Name    *string  `json:"name"`
	Company *Company `json:"company"`
}

// CompanyName returns the company name, or "" when the entity has none.
func (e Entity) CompanyName() string {
	if e.Company == nil {
		return ""
	}
	return e.Company.Name
}

// ManagerName returns the entity's name, defaulting to "Unknown" when the field is absent.
func (e Entity) ManagerName() string {
	if e.Name == nil {
		return "Unknown"
	}
	return *e.Name
}

// UpstreamError reports a feed that could not be reached or answered with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directory feed returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("directory feed unreachable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Fetcher loads the directory feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Entity, error)
}

// Client fetches the feed over HTTP with bounded retries.
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.DirectoryConfig, logger *zap.Logger) *Client {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		url:        cfg.FeedURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		timeout:    cfg.Timeout(),
		maxRetries: retries,
		logger:     logger,
	}
}

// Fetch downloads and decodes the feed. The whole call, retries included, is bounded by the configured timeout.
// Transport failures and 5xx responses are retried; 4xx responses and malformed bodies are not.
func (c *Client) Fetch(ctx context.Context) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.timeout
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx)

	var entities []Entity
	err := backoff.RetryNotify(func() error {
		body, err := c.get(ctx)
		if err != nil {
			var upstream *UpstreamError
			if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := json.Unmarshal(body, &entities); err != nil {
			return backoff.Permanent(fmt.Errorf("decode directory feed: %w", err))
		}
		return nil
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("directory fetch failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build directory request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBytes))
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	return body, nil
}
