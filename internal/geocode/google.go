package geocode

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

// googleMu guards the geocoder package globals (ApiKey, ApiUrl), which every
// Google instance shares.
var googleMu sync.Mutex

var googleDefaultURL = geocoder.ApiUrl

// Google geocodes with the Google Maps Geocoding API.
//
// The underlying client takes no context and has no request timeout, so each
// lookup runs on its own goroutine and Geocode returns as soon as ctx is done.
// An abandoned lookup still holds googleMu until the upstream answers.
type Google struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGoogle returns a Google geocoder. A non-positive timeout uses 10s.
func NewGoogle(apiKey string, timeout time.Duration, logger *zap.Logger) *Google {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Google{apiKey: apiKey, apiURL: googleDefaultURL, timeout: timeout, logger: logger}
}

func (g *Google) Name() string { return ProviderGoogle }

type googleResult struct {
	loc weather.Location
	err error
}

// Geocode returns the first match for query, with the formatted address from a
// reverse lookup of the coordinates when one is available.
func (g *Google) Geocode(ctx context.Context, query string) (weather.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return weather.Location{}, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan googleResult, 1)
	go func() {
		loc, err := g.lookup(query)
		done <- googleResult{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		g.logger.Warn("google geocoding abandoned", zap.String("query", query), zap.Error(ctx.Err()))
		return weather.Location{}, ctx.Err()
	case r := <-done:
		return r.loc, r.err
	}
}

func (g *Google) lookup(query string) (loc weather.Location, err error) {
	googleMu.Lock()
	defer googleMu.Unlock()
	geocoder.ApiKey = g.apiKey
	geocoder.ApiUrl = g.apiURL

	// The client indexes into the result list without checking its length.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("google geocoding: malformed response: %v", r)
		}
	}()

	point, err := geocoder.Geocoding(geocoder.Address{City: query})
	if err != nil {
		if isZeroResults(err) {
			return weather.Location{}, ErrNotFound
		}
		g.logger.Warn("google geocoding failed", zap.String("query", query), zap.Error(err))
		return weather.Location{}, fmt.Errorf("google geocoding: %w", err)
	}

	address := query
	if addrs, err := geocoder.GeocodingReverse(point); err != nil {
		g.logger.Debug("reverse geocoding failed", zap.String("query", query), zap.Error(err))
	} else if len(addrs) > 0 && addrs[0].FormattedAddress != "" {
		address = addrs[0].FormattedAddress
	}

	return weather.Location{Address: address, Latitude: point.Latitude, Longitude: point.Longitude}, nil
}

// isZeroResults matches the error the client builds for a ZERO_RESULTS status.
func isZeroResults(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no results found") || strings.Contains(msg, "zero_results")
}
