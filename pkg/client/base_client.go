package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when the local upstream budget cannot be met before the deadline.
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("upstream temporarily unavailable")
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a completed upstream exchange. Non-2xx statuses are not errors
// at this level; callers decide how to surface them.
type Response struct {
	Status int
	Body   []byte
}

type BaseClient struct {
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
	limiter        *rate.Limiter
	maxRetries     int
	retryDelay     time.Duration
	multiplier     float64
}

type ClientConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Multiplier     float64
	Threshold      int
	BreakerTimeout time.Duration
	RPS            float64 // <= 0 disables rate limiting
	Burst          int
}

func NewBaseClient(name string, config ClientConfig, logger *zap.Logger) *BaseClient {
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	threshold := uint32(3)
	if config.Threshold > 0 {
		threshold = uint32(config.Threshold)
	}

	breakerSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	limit := rate.Inf
	burst := config.Burst
	if config.RPS > 0 {
		limit = rate.Limit(config.RPS)
		if burst <= 0 {
			burst = 1
		}
	}

	return &BaseClient{
		client:         httpClient,
		logger:         logger,
		circuitBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
		multiplier:     config.Multiplier,
	}
}

// BreakerState reports the circuit breaker state for health output.
func (c *BaseClient) BreakerState() string {
	return c.circuitBreaker.State().String()
}

// GetWithRetry issues a GET through the circuit breaker. Network failures and
// 5xx responses count against the breaker; 4xx responses do not.
func (c *BaseClient) GetWithRetry(ctx context.Context, rawURL string) (*Response, error) {
	var response *Response

	_, execErr := c.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := c.doGetWithRetry(ctx, rawURL)
		response = resp
		if err != nil {
			return nil, err
		}
		if resp.Status >= 500 {
			return nil, fmt.Errorf("HTTP %d", resp.Status)
		}
		return resp, nil
	})

	if errors.Is(execErr, gobreaker.ErrOpenState) || errors.Is(execErr, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	if response != nil {
		return response, nil
	}
	return nil, execErr
}

func (c *BaseClient) doGetWithRetry(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	var lastResp *Response
	target := redact(rawURL)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryDelay) * math.Pow(c.multiplier, float64(attempt-1)))
			c.logger.Debug("Retrying request",
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrRateLimited
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request failed: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("HTTP request failed",
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body failed: %w", err)
			continue
		}

		c.logger.Debug("Upstream responded",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.Int("body_size", len(body)))

		lastResp = &Response{Status: resp.StatusCode, Body: body}

		// Retry only on 5xx and 429
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return lastResp, nil
		}
		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("max retries exceeded, last error: %w", lastErr)
}

// redact strips the query string so the API key never reaches the logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
