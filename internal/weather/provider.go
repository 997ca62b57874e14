package weather

import (
	"context"
)

// Geocoder resolves a free-text query ("Boulder, CO") to a Location.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (Location, error)
}

// Current is the "right now" summary shown above the forecast panels.
type Current struct {
	Temperature   string    `json:"temperature"`
	ShortForecast string    `json:"shortForecast"`
	WeatherEmoji  string    `json:"weatherEmoji"`
	Condition     Condition `json:"condition"`
}

// CurrentFromHourly derives current conditions from the first hourly period.
// It reports false when there are no periods.
func CurrentFromHourly(periods []HourlyPeriod) (Current, bool) {
	if len(periods) == 0 {
		return Current{}, false
	}
	first := periods[0]
	return Current{
		Temperature:   first.TemperatureFahrenheit,
		ShortForecast: first.ShortForecast,
		WeatherEmoji:  first.WeatherEmoji,
		Condition:     first.Condition,
	}, true
}
