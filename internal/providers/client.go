package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Breaker executes calls to a named upstream under circuit breaker protection
type Breaker interface {
	Execute(service string, fn func() (interface{}, error)) (interface{}, error)
}

// StatusError is returned for non-2xx provider responses
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether another attempt could succeed
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientConfig configures the shared provider HTTP client
type ClientConfig struct {
	Name              string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond int
	MaxAttempts       int
	RetryBackoff      time.Duration
	Headers           map[string]string
}

// Client is the HTTP base every adapter uses: pacing, retries and breaker
type Client struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	breaker     Breaker
	logger      *logrus.Logger
	maxAttempts int
	backoff     time.Duration
	headers     map[string]string
}

// NewClient creates a provider client. breaker may be nil.
func NewClient(cfg ClientConfig, breaker Breaker, logger *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}

	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		breaker:     breaker,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		headers:     cfg.Headers,
	}
}

// GetJSON performs a GET against path and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	call := func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, endpoint, target)
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(c.name, call)
	} else {
		_, err = call()
	}
	return err
}

// doWithRetry makes up to maxAttempts requests with exponential backoff
func (c *Client) doWithRetry(ctx context.Context, endpoint string, target interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			c.logger.WithFields(logrus.Fields{
				"component": "provider_client",
				"source":    c.name,
				"attempt":   attempt + 1,
				"wait":      waitTime.String(),
			}).WithError(lastErr).Warn("Provider request failed, retrying")

			timer := time.NewTimer(waitTime)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: %w", c.name, ctx.Err())
			case <-timer.C:
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", c.name, err)
		}

		lastErr = c.do(ctx, endpoint, target)
		if lastErr == nil {
			return nil
		}
		if se, ok := lastErr.(*StatusError); ok && !se.Retryable() {
			return lastErr
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", c.name, ctx.Err())
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}
