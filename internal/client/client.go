package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/kjstillabower/dashboard-segments/internal/observability"
)

var (
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrCircuitOpen     = errors.New("circuit breaker open")
)

// Getter is the fetch capability sources depend on.
type Getter interface {
	Get(ctx context.Context, path string, query map[string]string) ([]byte, error)
}

// Config holds the outbound HTTP settings shared by all sources.
type Config struct {
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// RateLimitRPS bounds outbound requests per second. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// BreakerFailureThreshold consecutive failures open the breaker. Zero disables it.
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
	UserAgent               string
	Accept                  string
}

// DefaultConfig returns conservative settings for slow public endpoints.
func DefaultConfig() Config {
	return Config{
		Timeout:                 10 * time.Second,
		RetryAttempts:           2,
		RetryBaseDelay:          500 * time.Millisecond,
		RetryMaxDelay:           5 * time.Second,
		RateLimitRPS:            1,
		RateLimitBurst:          2,
		BreakerFailureThreshold: 5,
		BreakerTimeout:          2 * time.Minute,
		UserAgent:               "dashboard-segments/1.0",
	}
}

// HTTPClient performs GET requests against one upstream with retry, rate
// limiting and a circuit breaker. Safe for concurrent use.
type HTTPClient struct {
	name    string
	rest    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a client for baseURL. name labels metrics and logs.
func New(name, baseURL string, cfg Config, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &HTTPClient{
		name:   name,
		logger: logger.With(zap.String("upstream", name)),
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryAttempts).
		SetRetryWaitTime(cfg.RetryBaseDelay).
		SetRetryMaxWaitTime(cfg.RetryMaxDelay).
		AddRetryConditions(retryCondition).
		AddRetryHooks(c.retryHook)
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Accept != "" {
		rc.SetHeader("Accept", cfg.Accept)
	}
	c.rest = rc

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	if cfg.BreakerFailureThreshold > 0 {
		threshold := uint32(cfg.BreakerFailureThreshold)
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    0,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				observability.CircuitBreakerState.WithLabelValues(name).Set(observability.CircuitBreakerStateValue(to.String()))
				c.logger.Warn("circuit breaker state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		observability.CircuitBreakerState.WithLabelValues(name).Set(0)
	}
	return c
}

// Name returns the upstream name used in metrics.
func (c *HTTPClient) Name() string { return c.name }

// Get fetches path relative to the base URL and returns the response body.
// Non-2xx responses are mapped to the package sentinel errors.
func (c *HTTPClient) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}

	if c.breaker == nil {
		return c.do(ctx, path, query)
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, path, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		observability.UpstreamCallsTotal.WithLabelValues(c.name, "circuit_open").Inc()
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.name)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *HTTPClient) do(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	start := time.Now()
	req := c.rest.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	duration := time.Since(start).Seconds()
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(c.name, "error").Inc()
		observability.UpstreamDurationSeconds.WithLabelValues(c.name, "error").Observe(duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	status := statusLabel(resp.StatusCode())
	observability.UpstreamCallsTotal.WithLabelValues(c.name, status).Inc()
	observability.UpstreamDurationSeconds.WithLabelValues(c.name, status).Observe(duration)

	if err := errorForStatus(resp.StatusCode()); err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	return c.rest.Close()
}

func errorForStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrNotFound, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, code)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, code)
	}
}

// retryCondition retries network errors, 408, 429 and 5xx.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func (c *HTTPClient) retryHook(r *resty.Response, err error) {
	observability.UpstreamRetriesTotal.WithLabelValues(c.name).Inc()
	fields := []zap.Field{zap.Int("attempt", r.Request.Attempt)}
	if err != nil {
		c.logger.Debug("retrying request due to error", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("retrying request due to status code", append(fields, zap.Int("status_code", r.StatusCode()))...)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
