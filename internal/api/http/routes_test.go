package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/geocode"
	"github.com/i474232898/forecast-viewer/internal/pipeline"
	"github.com/i474232898/forecast-viewer/internal/store"
	"github.com/i474232898/forecast-viewer/internal/viewer"
	"github.com/i474232898/forecast-viewer/internal/weather"
)

type stubGeocoder struct {
	loc weather.Location
	err error
}

func (s stubGeocoder) Name() string { return "stub" }

func (s stubGeocoder) Geocode(context.Context, string) (weather.Location, error) {
	return s.loc, s.err
}

// stubRunner writes a one-period forecast and reports success synchronously.
type stubRunner struct {
	running    bool
	dailyPath  string
	hourlyPath string
}

func (s *stubRunner) Start(loc weather.Location, notify func(pipeline.Result)) (string, error) {
	if s.running {
		return "", pipeline.ErrFetchInProgress
	}
	_ = store.WriteCSV(s.dailyPath, weather.DailyColumns, []weather.Row{{weather.ColPeriodName: "Today"}})
	_ = store.WriteCSV(s.hourlyPath, weather.HourlyColumns, []weather.Row{
		{weather.ColTemperature: "70", weather.ColTemperatureUnit: "F", weather.ColShortForecast: "Sunny"},
	})
	notify(pipeline.Result{RunID: "run-1", Location: loc, Success: true, Message: pipeline.SuccessMessage,
		DailyGeneratedAt: "April 28, 2024, 10:05 AM", HourlyGeneratedAt: "April 28, 2024, 10:10 AM"})
	return "run-1", nil
}

func (s *stubRunner) Running() bool         { return s.running }
func (s *stubRunner) Stage() pipeline.Stage { return pipeline.StageCompleted }
func (s *stubRunner) RunID() string         { return "run-1" }

func newTestApp(t *testing.T, geo weather.Geocoder, running bool) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	runner := &stubRunner{
		running:    running,
		dailyPath:  filepath.Join(dir, store.DailyFileName),
		hourlyPath: filepath.Join(dir, store.HourlyFileName),
	}
	v := viewer.New(geo, runner, runner.dailyPath, runner.hourlyPath, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, v)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, target, err)
	}
	return resp.StatusCode, out
}

func TestSearch(t *testing.T) {
	boulder := weather.Location{Address: "Boulder, Colorado", Latitude: 40.015, Longitude: -105.2705}
	app := newTestApp(t, stubGeocoder{loc: boulder}, false)

	code, body := do(t, app, http.MethodGet, "/api/v1/locations/search?q=Boulder", "")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body["address"] != "Boulder, Colorado" || body["latitude"] != 40.015 {
		t.Errorf("body = %v", body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/locations/search", "")
	if code != http.StatusBadRequest || body["error"] != true {
		t.Errorf("missing q: %d %v", code, body)
	}
}

func TestSearchErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"not found": {geocode.ErrNotFound, http.StatusNotFound},
		"upstream":  {errors.New("connection reset"), http.StatusBadGateway},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(t, stubGeocoder{err: tc.err}, false)
			code, _ := do(t, app, http.MethodGet, "/api/v1/locations/search?q=x", "")
			if code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, code)
			}
		})
	}
}

func TestConfirmValidation(t *testing.T) {
	app := newTestApp(t, stubGeocoder{}, false)

	for _, body := range []string{
		`{"address":"x","longitude":1}`,
		`{"address":"x","latitude":91,"longitude":1}`,
		`{"address":"x","latitude":1,"longitude":-181}`,
		`{"latitude":1,"longitude":1}`,
		`not json`,
	} {
		code, _ := do(t, app, http.MethodPost, "/api/v1/locations/confirm", body)
		if code != http.StatusBadRequest {
			t.Errorf("body %s: expected status %d, got %d", body, http.StatusBadRequest, code)
		}
	}
}

func TestConfirmThenReadForecast(t *testing.T) {
	app := newTestApp(t, stubGeocoder{}, false)

	code, _ := do(t, app, http.MethodGet, "/api/v1/forecast/daily", "")
	if code != http.StatusNotFound {
		t.Fatalf("before confirm: expected status %d, got %d", http.StatusNotFound, code)
	}

	code, body := do(t, app, http.MethodPost, "/api/v1/locations/confirm", `{"address":"Null Island","latitude":0,"longitude":0}`)
	if code != http.StatusAccepted || body["runId"] != "run-1" {
		t.Fatalf("confirm: %d %v", code, body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/forecast/daily", "")
	if code != http.StatusOK || body["generatedAt"] != "April 28, 2024, 10:05 AM" {
		t.Fatalf("daily: %d %v", code, body)
	}
	periods, _ := body["periods"].([]any)
	if len(periods) != 1 {
		t.Fatalf("daily periods = %v", body["periods"])
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/forecast/hourly", "")
	if code != http.StatusOK || body["generatedAt"] != "April 28, 2024, 10:10 AM" {
		t.Fatalf("hourly: %d %v", code, body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/forecast/current", "")
	if code != http.StatusOK || body["temperature"] != "70°F" || body["shortForecast"] != "Sunny" {
		t.Fatalf("current: %d %v", code, body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/status", "")
	if code != http.StatusOK || body["heading"] != "Forecast for Null Island" || body["loaded"] != true {
		t.Fatalf("status: %d %v", code, body)
	}
}

func TestConfirmWhileRunning(t *testing.T) {
	app := newTestApp(t, stubGeocoder{}, true)

	code, body := do(t, app, http.MethodPost, "/api/v1/locations/confirm", `{"address":"x","latitude":1,"longitude":1}`)
	if code != http.StatusConflict || body["error"] != true {
		t.Fatalf("expected status %d, got %d %v", http.StatusConflict, code, body)
	}
}
