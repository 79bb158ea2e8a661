package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxRequestAttempts    = 3
)

var errRateLimited = errors.New("rate limited")

// Client issues GET requests against provider REST endpoints. Transient
// failures (network errors, 5xx) are retried with exponential backoff up to
// three attempts; 4xx responses are never retried. Every failure degrades to
// a nil document so one bad sub-request cannot fail a whole fetch.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient wires an HTTP client with a per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GetJSON fetches a JSON object from endpoint with the given query params.
// It returns nil when the credential is rejected, the rate limit is hit, or
// all attempts are exhausted.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values) map[string]any {
	operation := func() (map[string]any, error) {
		return c.getOnce(ctx, endpoint, params)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRequestAttempts-1), ctx)

	payload, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		if errors.Is(err, errRateLimited) {
			c.logger.Warn("rate limit hit", "endpoint", endpoint)
		} else {
			c.logger.Error("request failed", "endpoint", endpoint, "error", err)
		}
		return nil
	}

	return payload
}

func (c *Client) getOnce(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("invalid endpoint %s: %w", endpoint, err))
	}

	query := parsed.Query()
	for key := range params {
		query.Set(key, params.Get(key))
	}
	parsed.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsAggregator/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, backoff.Permanent(errRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("provider returned %s", resp.Status)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, backoff.Permanent(fmt.Errorf("provider returned %s", resp.Status))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	return payload, nil
}
