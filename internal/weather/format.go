package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the display value for fields the upstream did not provide.
const NotAvailable = "N/A"

const (
	precipitationPrefix   = "💧"
	unknownConditionEmoji = "❓"

	startDateLayout   = "Monday, Jan 02"
	startClockLayout  = "03:04 PM"
	generatedAtLayout = "January 02, 2006, 03:04 PM"
)

// startTimeLayouts are the ISO-8601 shapes accepted for period start times.
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatTemperature turns a raw temperature value and unit into Celsius and
// Fahrenheit display strings. The unit decides which side is computed directly.
func FormatTemperature(value, unit string) (celsius, fahrenheit string) {
	return formatDegrees(value, unit)
}

// FormatDewpoint formats a raw dewpoint the same way as a temperature. NWS
// reports dewpoints as "wmoUnit:degC".
func FormatDewpoint(value, unit string) (celsius, fahrenheit string) {
	return formatDegrees(value, unit)
}

func formatDegrees(value, unit string) (string, string) {
	if value == "" || unit == "" {
		return NotAvailable, NotAvailable
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return NotAvailable, NotAvailable
	}

	if isCelsius(unit) {
		return fmt.Sprintf("%.1f°C", v), fmt.Sprintf("%.0f°F", CelsiusToFahrenheit(v))
	}
	return fmt.Sprintf("%.1f°C", FahrenheitToCelsius(v)), fmt.Sprintf("%.0f°F", v)
}

func isCelsius(unit string) bool {
	switch strings.TrimSpace(unit) {
	case "C", "wmoUnit:degC":
		return true
	}
	return false
}

// FormatPrecipitationProbability renders a probability with the droplet prefix.
// An empty value counts as zero.
func FormatPrecipitationProbability(value string) string {
	return precipitationPrefix + orZero(value) + "%"
}

// FormatRelativeHumidity renders a humidity percentage. An empty value counts as zero.
func FormatRelativeHumidity(value string) string {
	return orZero(value) + "%"
}

func orZero(value string) string {
	if value == "" {
		return "0"
	}
	return value
}

// FormatStartTime splits an ISO-8601 timestamp into a calendar-day string and a
// 12-hour clock string, both in the timestamp's own offset.
func FormatStartTime(ts string) (date, clock string) {
	t, ok := parseISO(ts)
	if !ok {
		return NotAvailable, NotAvailable
	}
	return t.Format(startDateLayout), t.Format(startClockLayout)
}

// FormatGeneratedAt renders a forecast generation timestamp as a long local string,
// e.g. "April 28, 2024, 10:00 AM".
func FormatGeneratedAt(ts string, loc *time.Location) (string, error) {
	t, ok := parseISO(ts)
	if !ok {
		return "", fmt.Errorf("invalid generation timestamp %q", ts)
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(generatedAtLayout), nil
}

func parseISO(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatWind joins speed and direction with a single space. When only one side
// is present the other is still joined as an empty string.
func FormatWind(speed, direction string) string {
	if speed == "" && direction == "" {
		return NotAvailable
	}
	return speed + " " + direction
}

// IconURLToEmoji maps an NWS icon URL such as
// https://api.weather.gov/icons/land/day/tsra,40?size=medium to an emoji.
// Only the first of two stacked conditions is used.
func IconURLToEmoji(url string) string {
	if url == "" {
		return NotAvailable
	}
	icon, ok := iconTable[iconToken(url)]
	if !ok {
		return unknownConditionEmoji
	}
	return icon.emoji
}

// IconCondition maps an NWS icon URL to a coarse weather category.
func IconCondition(url string) Condition {
	if url == "" {
		return ConditionUnknown
	}
	icon, ok := iconTable[iconToken(url)]
	if !ok {
		return ConditionUnknown
	}
	return icon.condition
}

func iconToken(url string) string {
	base, _, _ := strings.Cut(url, "?")
	segment := base[strings.LastIndex(base, "/")+1:]
	token, _, _ := strings.Cut(strings.ToLower(segment), ",")
	return token
}

type iconInfo struct {
	emoji     string
	condition Condition
}

// iconTable covers the icon set published at https://api.weather.gov/icons.
var iconTable = map[string]iconInfo{
	"skc":             {"☀️", ConditionClear},
	"few":             {"🌤️", ConditionClear},
	"sct":             {"⛅", ConditionCloudy},
	"bkn":             {"🌥️", ConditionCloudy},
	"ovc":             {"☁️", ConditionCloudy},
	"wind_skc":        {"🌬️", ConditionWind},
	"wind_few":        {"🌬️", ConditionWind},
	"wind_sct":        {"🌬️", ConditionWind},
	"wind_bkn":        {"🌬️", ConditionWind},
	"wind_ovc":        {"🌬️", ConditionWind},
	"snow":            {"❄️", ConditionSnow},
	"rain_snow":       {"🌨️", ConditionSnow},
	"rain_sleet":      {"🌨️", ConditionSnow},
	"snow_sleet":      {"🌨️", ConditionSnow},
	"fzra":            {"🧊", ConditionSnow},
	"rain_fzra":       {"🧊", ConditionSnow},
	"snow_fzra":       {"🧊", ConditionSnow},
	"sleet":           {"🧊", ConditionSnow},
	"rain":            {"🌧️", ConditionRain},
	"rain_showers":    {"🌦️", ConditionRain},
	"rain_showers_hi": {"🌦️", ConditionRain},
	"tsra":            {"⛈️", ConditionStorm},
	"tsra_sct":        {"⛈️", ConditionStorm},
	"tsra_hi":         {"⛈️", ConditionStorm},
	"tornado":         {"🌪️", ConditionStorm},
	"hurricane":       {"🌀", ConditionStorm},
	"tropical_storm":  {"🌀", ConditionStorm},
	"dust":            {"🌪️", ConditionMist},
	"smoke":           {"💨", ConditionMist},
	"haze":            {"🌫️", ConditionMist},
	"hot":             {"🔥", ConditionClear},
	"cold":            {"🧊", ConditionClear},
	"blizzard":        {"🌨️", ConditionSnow},
	"fog":             {"🌁", ConditionMist},
}
