// Package geocode resolves free-text place queries to coordinates.
package geocode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

var (
	// ErrNotFound is returned when a query matches no place.
	ErrNotFound = errors.New("location not found")
	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("empty location query")
)

// Provider names accepted by New.
const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
)

// Options configures the geocoder returned by New.
type Options struct {
	Provider     string
	APIKey       string
	NominatimURL string
	UserAgent    string
	Timeout      time.Duration
}

// New returns the geocoder named by opts.Provider. An empty provider selects
// Nominatim.
func New(opts Options, logger *zap.Logger) (weather.Geocoder, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderNominatim:
		return NewNominatim(opts.NominatimURL, opts.UserAgent, opts.Timeout, logger), nil
	case ProviderGoogle:
		if opts.APIKey == "" {
			return nil, errors.New("google geocoder requires an API key")
		}
		return NewGoogle(opts.APIKey, opts.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q", opts.Provider)
	}
}
