package nws

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

// Period is one raw entry of properties.periods. Values keep their JSON text:
// numbers decode as json.Number so they round-trip unchanged into forecast files.
type Period map[string]any

// DailyRow flattens a daily period into the daily file vocabulary. Absent
// fields become empty strings.
func (p Period) DailyRow() weather.Row {
	return weather.Row{
		weather.ColPeriodNumber:                 p.text("number"),
		weather.ColPeriodName:                   p.text("name"),
		weather.ColStartTime:                    p.text("startTime"),
		weather.ColTemperature:                  p.text("temperature"),
		weather.ColTemperatureUnit:              p.text("temperatureUnit"),
		weather.ColPrecipitationProbabilityUnit: p.nested("probabilityOfPrecipitation", "unitCode"),
		weather.ColPrecipitationProbability:     p.nested("probabilityOfPrecipitation", "value"),
		weather.ColWindSpeed:                    p.text("windSpeed"),
		weather.ColWindDirection:                p.text("windDirection"),
		weather.ColWeatherIconURL:               p.text("icon"),
		weather.ColShortForecast:                p.text("shortForecast"),
		weather.ColDetailedForecast:             p.text("detailedForecast"),
	}
}

// HourlyRow flattens an hourly period into the hourly file vocabulary.
func (p Period) HourlyRow() weather.Row {
	return weather.Row{
		weather.ColPeriodNumber:                 p.text("number"),
		weather.ColStartTime:                    p.text("startTime"),
		weather.ColTemperature:                  p.text("temperature"),
		weather.ColTemperatureUnit:              p.text("temperatureUnit"),
		weather.ColPrecipitationProbabilityUnit: p.nested("probabilityOfPrecipitation", "unitCode"),
		weather.ColPrecipitationProbability:     p.nested("probabilityOfPrecipitation", "value"),
		weather.ColDewpointUnit:                 p.nested("dewpoint", "unitCode"),
		weather.ColDewpoint:                     p.nested("dewpoint", "value"),
		weather.ColRelativeHumidityUnit:         p.nested("relativeHumidity", "unitCode"),
		weather.ColRelativeHumidity:             p.nested("relativeHumidity", "value"),
		weather.ColWindSpeed:                    p.text("windSpeed"),
		weather.ColWindDirection:                p.text("windDirection"),
		weather.ColWeatherIconURL:               p.text("icon"),
		weather.ColShortForecast:                p.text("shortForecast"),
	}
}

func (p Period) text(key string) string {
	return scalarText(p[key])
}

// nested reads a quantitative value object such as
// {"unitCode": "wmoUnit:percent", "value": 20}.
func (p Period) nested(key, field string) string {
	obj, ok := p[key].(map[string]any)
	if !ok {
		return ""
	}
	return scalarText(obj[field])
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
