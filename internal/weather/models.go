package weather

import (
	"fmt"
	"math"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
	ConditionWind    Condition = "wind"
)

// Location is a geocoded place the user confirmed.
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Rounded returns the coordinates rounded to 4 decimal places, the precision
// the points endpoint accepts without redirecting.
func (l Location) Rounded() (lat, lon float64) {
	return round4(l.Latitude), round4(l.Longitude)
}

// Key returns a canonical "lat,lon" string for this location.
func (l Location) Key() string {
	lat, lon := l.Rounded()
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Row is one raw forecast period keyed by column name, as persisted in a
// forecast file. Missing keys read as empty strings.
type Row map[string]string

// Column names shared by the daily and hourly forecast files.
const (
	ColPeriodNumber                 = "period_number"
	ColPeriodName                   = "period_name"
	ColStartTime                    = "start_time"
	ColTemperature                  = "temperature"
	ColTemperatureUnit              = "temperature_unit"
	ColPrecipitationProbabilityUnit = "precipitation_probability_unit"
	ColPrecipitationProbability     = "precipitation_probability_value"
	ColDewpointUnit                 = "dewpoint_unit"
	ColDewpoint                     = "dewpoint_value"
	ColRelativeHumidityUnit         = "relative_humidity_unit"
	ColRelativeHumidity             = "relative_humidity_value"
	ColWindSpeed                    = "wind_speed"
	ColWindDirection                = "wind_direction"
	ColWeatherIconURL               = "weather_icon_url"
	ColShortForecast                = "short_forecast"
	ColDetailedForecast             = "detailed_forecast"
)

// DailyColumns is the header of the daily forecast file, in order.
var DailyColumns = []string{
	ColPeriodNumber,
	ColPeriodName,
	ColStartTime,
	ColTemperature,
	ColTemperatureUnit,
	ColPrecipitationProbabilityUnit,
	ColPrecipitationProbability,
	ColWindSpeed,
	ColWindDirection,
	ColWeatherIconURL,
	ColShortForecast,
	ColDetailedForecast,
}

// HourlyColumns is the header of the hourly forecast file, in order.
var HourlyColumns = []string{
	ColPeriodNumber,
	ColStartTime,
	ColTemperature,
	ColTemperatureUnit,
	ColPrecipitationProbabilityUnit,
	ColPrecipitationProbability,
	ColDewpointUnit,
	ColDewpoint,
	ColRelativeHumidityUnit,
	ColRelativeHumidity,
	ColWindSpeed,
	ColWindDirection,
	ColWeatherIconURL,
	ColShortForecast,
}

// orNA returns the value for key, or NotAvailable when it is missing or empty.
func (r Row) orNA(key string) string {
	if v := r[key]; v != "" {
		return v
	}
	return NotAvailable
}

// DailyPeriod is one day part ("Tonight", "Tuesday") ready for display.
type DailyPeriod struct {
	PeriodName               string `json:"periodName"`
	TemperatureFahrenheit    string `json:"temperatureFahrenheit"`
	TemperatureCelsius       string `json:"temperatureCelsius"`
	PrecipitationProbability string `json:"precipitationProbability"`
	WeatherIconURL           string `json:"weatherIconUrl"`
	DetailedForecast         string `json:"detailedForecast"`
}

// NewDailyPeriod builds a DailyPeriod from a raw row. Every field falls back to
// a display default, so it never fails.
func NewDailyPeriod(r Row) DailyPeriod {
	celsius, fahrenheit := FormatTemperature(r[ColTemperature], r[ColTemperatureUnit])

	return DailyPeriod{
		PeriodName:               r.orNA(ColPeriodName),
		TemperatureFahrenheit:    fahrenheit,
		TemperatureCelsius:       celsius,
		PrecipitationProbability: FormatPrecipitationProbability(r[ColPrecipitationProbability]),
		WeatherIconURL:           r.orNA(ColWeatherIconURL),
		DetailedForecast:         r.orNA(ColDetailedForecast),
	}
}

// HourlyPeriod is one forecast hour ready for display.
type HourlyPeriod struct {
	Date                     string    `json:"date"`
	Time                     string    `json:"time"`
	TemperatureFahrenheit    string    `json:"temperatureFahrenheit"`
	TemperatureCelsius       string    `json:"temperatureCelsius"`
	PrecipitationProbability string    `json:"precipitationProbability"`
	DewpointFahrenheit       string    `json:"dewpointFahrenheit"`
	DewpointCelsius          string    `json:"dewpointCelsius"`
	RelativeHumidity         string    `json:"relativeHumidity"`
	Wind                     string    `json:"wind"`
	WeatherEmoji             string    `json:"weatherEmoji"`
	Condition                Condition `json:"condition"`
	ShortForecast            string    `json:"shortForecast"`
}

// NewHourlyPeriod builds an HourlyPeriod from a raw row. ShortForecast is passed
// through as-is and may be empty.
func NewHourlyPeriod(r Row) HourlyPeriod {
	date, clock := FormatStartTime(r[ColStartTime])
	tempC, tempF := FormatTemperature(r[ColTemperature], r[ColTemperatureUnit])
	dewC, dewF := FormatDewpoint(r[ColDewpoint], r[ColDewpointUnit])
	icon := r[ColWeatherIconURL]

	return HourlyPeriod{
		Date:                     date,
		Time:                     clock,
		TemperatureFahrenheit:    tempF,
		TemperatureCelsius:       tempC,
		PrecipitationProbability: FormatPrecipitationProbability(r[ColPrecipitationProbability]),
		DewpointFahrenheit:       dewF,
		DewpointCelsius:          dewC,
		RelativeHumidity:         FormatRelativeHumidity(r[ColRelativeHumidity]),
		Wind:                     FormatWind(r[ColWindSpeed], r[ColWindDirection]),
		WeatherEmoji:             IconURLToEmoji(icon),
		Condition:                IconCondition(icon),
		ShortForecast:            r[ColShortForecast],
	}
}
