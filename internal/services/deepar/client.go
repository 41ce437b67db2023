package deepar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceCast/pkg/http"
	"PriceCast/pkg/logger"
)

// ServiceClient talks to the managed forecasting service over HTTP and
// retries transient failures with exponential backoff. Client errors
// (4xx) are never retried.
type ServiceClient struct {
	http        *http.Client
	baseURL     string
	maxAttempts int
	baseDelay   time.Duration
	logger      *logger.Logger
}

// ServiceClientOption configures ServiceClient.
type ServiceClientOption func(*ServiceClient)

// WithMaxAttempts sets the total attempt count (first try included).
func WithMaxAttempts(n int) ServiceClientOption {
	return func(c *ServiceClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the initial backoff delay.
func WithBaseDelay(d time.Duration) ServiceClientOption {
	return func(c *ServiceClient) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// NewServiceClient creates a client for the forecasting service.
func NewServiceClient(httpClient *http.Client, baseURL string, log *logger.Logger, opts ...ServiceClientOption) *ServiceClient {
	c := &ServiceClient{
		http:        httpClient,
		baseURL:     baseURL,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		logger:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON posts a JSON body to path and decodes the response into dest.
func (c *ServiceClient) PostJSON(ctx context.Context, path string, body, dest interface{}) error {
	return c.do(ctx, &http.RequestOptions{
		Method: http.MethodPost,
		URL:    c.baseURL + path,
		Body:   body,
	}, dest)
}

// GetJSON fetches path and decodes the response into dest.
func (c *ServiceClient) GetJSON(ctx context.Context, path string, dest interface{}) error {
	return c.do(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + path,
	}, dest)
}

// Delete issues a DELETE to path.
func (c *ServiceClient) Delete(ctx context.Context, path string) error {
	return c.do(ctx, &http.RequestOptions{
		Method: http.MethodDelete,
		URL:    c.baseURL + path,
	}, nil)
}

func (c *ServiceClient) do(ctx context.Context, opts *http.RequestOptions, dest interface{}) error {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.http.SendAndParse(ctx, opts, dest)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == c.maxAttempts {
			break
		}

		c.logger.Warn("forecast service request failed, retrying",
			logger.String("url", opts.URL),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("request to %s failed after %d attempts: %w", opts.URL, c.maxAttempts, lastErr)
}

// retryable reports whether an error may succeed on retry: 5xx
// responses and transport failures qualify, 4xx responses do not.
func retryable(err error) bool {
	var statusErr *http.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
