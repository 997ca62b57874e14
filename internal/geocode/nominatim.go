package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent matches the application name registered with Nominatim.
	DefaultUserAgent = "weather_app"
)

// Nominatim geocodes with the OpenStreetMap Nominatim search API. Requests are
// limited to one per second as the public instance requires.
type Nominatim struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Nominatim{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

func (n *Nominatim) Name() string { return ProviderNominatim }

// Geocode returns the best match for query.
func (n *Nominatim) Geocode(ctx context.Context, query string) (weather.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return weather.Location{}, ErrEmptyQuery
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return weather.Location{}, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	var places []nominatimPlace
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "jsonv2",
			"limit":  "1",
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		n.logger.Warn("nominatim request failed", zap.String("query", query), zap.Error(err))
		return weather.Location{}, fmt.Errorf("nominatim search: %w", err)
	}
	if !resp.IsSuccess() {
		return weather.Location{}, fmt.Errorf("nominatim search: unexpected status %d", resp.StatusCode())
	}
	if len(places) == 0 {
		return weather.Location{}, ErrNotFound
	}

	best := places[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return weather.Location{}, fmt.Errorf("nominatim latitude %q: %w", best.Lat, err)
	}
	lon, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return weather.Location{}, fmt.Errorf("nominatim longitude %q: %w", best.Lon, err)
	}

	n.logger.Debug("geocoded",
		zap.String("query", query),
		zap.String("address", best.DisplayName),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)
	return weather.Location{Address: best.DisplayName, Latitude: lat, Longitude: lon}, nil
}
