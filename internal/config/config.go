package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/forecast-viewer/internal/geocode"
	"github.com/i474232898/forecast-viewer/internal/nws"
	"github.com/i474232898/forecast-viewer/internal/store"
)

type AppConfig struct {
	Port string

	// DataDir holds the daily and hourly forecast files.
	DataDir string

	NWSBaseURL    string
	NWSUserAgent  string
	HTTPTimeout   time.Duration
	NWSMaxRetries int

	Geocoder       string
	GeocoderAPIKey string
	NominatimURL   string

	// RefreshInterval re-runs the forecast for the confirmed location (0 = disabled).
	RefreshInterval time.Duration

	// LogFormat is "production" (JSON) or "development" (console).
	LogFormat string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	cfg.EnvFileLoaded = godotenv.Load() == nil

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DataDir = getenvDefault("DATA_DIR", "data")

	cfg.NWSBaseURL = strings.TrimRight(getenvDefault("NWS_BASE_URL", nws.DefaultBaseURL), "/")
	cfg.NWSUserAgent = getenvDefault("NWS_USER_AGENT", nws.DefaultUserAgent)

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}
	cfg.HTTPTimeout = timeout

	cfg.NWSMaxRetries = getenvInt("NWS_MAX_RETRIES", 0)
	if cfg.NWSMaxRetries < 0 {
		return nil, fmt.Errorf("invalid NWS_MAX_RETRIES: must not be negative")
	}

	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", geocode.ProviderNominatim))
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.NominatimURL = getenvDefault("NOMINATIM_URL", geocode.DefaultNominatimURL)
	switch cfg.Geocoder {
	case geocode.ProviderNominatim:
	case geocode.ProviderGoogle:
		if cfg.GeocoderAPIKey == "" {
			return nil, fmt.Errorf("GEOCODER=google requires GEOCODER_API_KEY")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER %q", cfg.Geocoder)
	}

	refresh, err := time.ParseDuration(getenvDefault("REFRESH_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.LogFormat = getenvDefault("LOG_FORMAT", "production")

	return cfg, nil
}

// DailyPath returns the daily forecast file path.
func (c *AppConfig) DailyPath() string {
	return filepath.Join(c.DataDir, store.DailyFileName)
}

// HourlyPath returns the hourly forecast file path.
func (c *AppConfig) HourlyPath() string {
	return filepath.Join(c.DataDir, store.HourlyFileName)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
