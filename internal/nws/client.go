// Package nws is a client for the National Weather Service API (api.weather.gov).
// A forecast takes two hops: the points endpoint resolves coordinates to the
// grid's forecast URLs, which are then fetched separately.
package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.weather.gov"
	DefaultUserAgent = "forecast-viewer/1.0 (github.com/i474232898/forecast-viewer)"
	DefaultTimeout   = 10 * time.Second
)

// TransportError reports a failed request: network error, timeout or a non-2xx status.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError reports a response body that does not have the expected shape.
type FormatError struct {
	URL   string
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Field)
}

func (e *FormatError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client fetches point metadata and forecast documents.
type Client struct {
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		httpCfg: HTTPClientConfig{
			Client: opts.HTTPClient,
			Backoff: BackoffConfig{
				MaxRetries:      opts.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("nws"),
		logger:  logger,
	}
}

// Point is the subset of /points/{lat},{lon} metadata the viewer needs.
type Point struct {
	ForecastURL       string
	ForecastHourlyURL string
}

// Forecast is a forecast document: its generation timestamp and raw periods in
// upstream order.
type Forecast struct {
	GeneratedAt string
	Periods     []Period
}

// Point resolves coordinates, already rounded by the caller, to forecast URLs.
func (c *Client) Point(ctx context.Context, lat, lon float64) (Point, error) {
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)

	var payload struct {
		Properties *struct {
			Forecast       *string `json:"forecast"`
			ForecastHourly *string `json:"forecastHourly"`
		} `json:"properties"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return Point{}, err
	}

	switch {
	case payload.Properties == nil:
		return Point{}, &FormatError{URL: u, Field: "properties", Err: errMissing}
	case payload.Properties.Forecast == nil || *payload.Properties.Forecast == "":
		return Point{}, &FormatError{URL: u, Field: "properties.forecast", Err: errMissing}
	case payload.Properties.ForecastHourly == nil || *payload.Properties.ForecastHourly == "":
		return Point{}, &FormatError{URL: u, Field: "properties.forecastHourly", Err: errMissing}
	}

	return Point{
		ForecastURL:       *payload.Properties.Forecast,
		ForecastHourlyURL: *payload.Properties.ForecastHourly,
	}, nil
}

// Forecast fetches a daily or hourly forecast document from a URL taken from Point.
func (c *Client) Forecast(ctx context.Context, forecastURL string) (Forecast, error) {
	var payload struct {
		Properties *struct {
			GeneratedAt *string   `json:"generatedAt"`
			Periods     *[]Period `json:"periods"`
		} `json:"properties"`
	}
	if err := c.getJSON(ctx, forecastURL, &payload); err != nil {
		return Forecast{}, err
	}

	switch {
	case payload.Properties == nil:
		return Forecast{}, &FormatError{URL: forecastURL, Field: "properties", Err: errMissing}
	case payload.Properties.GeneratedAt == nil:
		return Forecast{}, &FormatError{URL: forecastURL, Field: "properties.generatedAt", Err: errMissing}
	case payload.Properties.Periods == nil:
		return Forecast{}, &FormatError{URL: forecastURL, Field: "properties.periods", Err: errMissing}
	}

	periods := *payload.Properties.Periods
	for i, p := range periods {
		if p == nil {
			return Forecast{}, &FormatError{URL: forecastURL, Field: fmt.Sprintf("properties.periods[%d]", i), Err: errMissing}
		}
	}

	return Forecast{
		GeneratedAt: *payload.Properties.GeneratedAt,
		Periods:     periods,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/geo+json")
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
		return req, nil
	}

	start := time.Now()
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		c.logger.Warn("nws request failed", zap.String("url", u), zap.Error(err))
		return &TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		var (
			typeErr   *json.UnmarshalTypeError
			syntaxErr *json.SyntaxError
		)
		switch {
		case errors.As(err, &typeErr):
			return &FormatError{URL: u, Field: typeErr.Field, Err: err}
		case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return &FormatError{URL: u, Field: "body", Err: err}
		default:
			// Reading the body failed mid-stream.
			return &TransportError{URL: u, Err: err}
		}
	}

	c.logger.Debug("nws request completed",
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
