package nws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero means a single attempt.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// statusError is a non-2xx response. Kind is one of errRateLimited,
// errServerError or errUnexpected.
type statusError struct {
	Kind error
	Code int
}

func (e *statusError) Error() string { return fmt.Sprintf("%v: %d", e.Kind, e.Code) }

func (e *statusError) Unwrap() error { return e.Kind }

func newStatusError(code int) *statusError {
	switch {
	case code == http.StatusTooManyRequests:
		return &statusError{Kind: errRateLimited, Code: code}
	case code >= 500:
		return &statusError{Kind: errServerError, Code: code}
	default:
		return &statusError{Kind: errUnexpected, Code: code}
	}
}

// upstreamHealthy reports whether err says nothing about the health of
// api.weather.gov. A 404 from /points is the normal answer for coordinates
// outside NWS coverage, and a cancelled caller is not an outage, so neither
// counts toward tripping the breaker.
func upstreamHealthy(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, errUnexpected):
		return true
	case errors.Is(err, context.Canceled):
		return true
	}
	return false
}

// retryable reports whether another attempt could get a different answer.
func retryable(err error) bool {
	return !errors.Is(err, errUnexpected) && !errors.Is(err, context.Canceled)
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: upstreamHealthy,
	})
}

// doRequestWithResilience executes the request through the circuit breaker,
// retrying transient failures (network errors, 429, 5xx) with exponential
// backoff. Any non-2xx status is returned as a *statusError.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || (cfg.Backoff.MaxRetries > 0 && cfg.Backoff.InitialInterval <= 0) {
		return nil, errInvalidConfig
	}

	delay := cfg.Backoff.InitialInterval
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		resp, err := execute(cb, cfg.Client, req.WithContext(ctx))
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if attempt >= cfg.Backoff.MaxRetries || !retryable(err) {
			return nil, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if cfg.Backoff.MaxInterval > 0 && delay > cfg.Backoff.MaxInterval {
			delay = cfg.Backoff.MaxInterval
		}
	}
}

func execute(cb *gobreaker.CircuitBreaker, client *http.Client, req *http.Request) (*http.Response, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drainAndClose(resp.Body)
			return nil, newStatusError(resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
