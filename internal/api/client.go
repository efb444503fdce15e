package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

// Client interface for testability
type Client interface {
	GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error
}

type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	RetryCount    int
	RetryDelay    time.Duration
	UserAgent     string
}

type HTTPClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	userAgent  string
	logger     *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	burst := int(opts.RatePerSecond * 2)
	if burst < 1 {
		burst = 1
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst),
		retryCount: opts.RetryCount,
		retryDelay: opts.RetryDelay,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
}

// GetJSON issues a GET and decodes the JSON body into out. Every failure
// wraps chain.ErrTransport. 429 and 5xx responses and network errors are
// retried with exponential backoff.
func (c *HTTPClient) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", chain.ErrTransport, err)
	}

	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	c.logger.Debug("requesting", zap.String("url", endpoint), zap.String("query", maskQuery(query)))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", chain.ErrTransport, ctx.Err())
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("%w: creating request: %w", chain.ErrTransport, err)
		}
		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: %d", ErrServer, resp.StatusCode)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: unexpected status %d: %s", chain.ErrTransport, resp.StatusCode, truncate(body, 200))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: decoding response: %w", chain.ErrTransport, err)
		}

		return nil
	}

	return fmt.Errorf("%w: max retries exceeded: %w", chain.ErrTransport, lastErr)
}

// maskQuery hides credentials before the query reaches the log
func maskQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	masked := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			if k == "apikey" && len(v) > 4 {
				v = v[:4] + "****"
			}
			masked.Add(k, v)
		}
	}
	return masked.Encode()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
