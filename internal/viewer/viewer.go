// Package viewer is the presentation-side controller: it confirms locations,
// starts forecast runs and holds what is currently on display.
package viewer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/pipeline"
	"github.com/i474232898/forecast-viewer/internal/store"
	"github.com/i474232898/forecast-viewer/internal/weather"
)

// ErrNoLocation is returned by Refresh before any location was confirmed.
var ErrNoLocation = errors.New("no location confirmed")

const (
	headingPrefix  = "Forecast for "
	headingPending = "Forecast for..."
)

// Runner starts background forecast runs. *pipeline.Worker implements it.
type Runner interface {
	Start(loc weather.Location, notify func(pipeline.Result)) (string, error)
	Running() bool
	Stage() pipeline.Stage
	RunID() string
}

// Panel is one forecast tab: its periods and when they were generated.
type Panel[T any] struct {
	Location    weather.Location `json:"location"`
	GeneratedAt string           `json:"generatedAt"`
	Periods     []T              `json:"periods"`
}

// Status describes the viewer and the worker behind it.
type Status struct {
	Heading    string            `json:"heading"`
	Location   *weather.Location `json:"location,omitempty"`
	Running    bool              `json:"running"`
	Stage      pipeline.Stage    `json:"stage"`
	RunID      string            `json:"runId,omitempty"`
	Loaded     bool              `json:"loaded"`
	LastResult *pipeline.Result  `json:"lastResult,omitempty"`
}

// Viewer is safe for concurrent use.
type Viewer struct {
	geocoder   weather.Geocoder
	runner     Runner
	dailyPath  string
	hourlyPath string
	logger     *zap.Logger

	// startMu serializes Confirm and Refresh.
	startMu sync.Mutex

	mu        sync.RWMutex
	heading   string
	location  *weather.Location
	displayed *weather.Location
	daily     *store.Manager[weather.DailyPeriod]
	hourly    *store.Manager[weather.HourlyPeriod]
	current   *weather.Current
	last      *pipeline.Result
}

func New(geocoder weather.Geocoder, runner Runner, dailyPath, hourlyPath string, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewer{
		geocoder:   geocoder,
		runner:     runner,
		dailyPath:  dailyPath,
		hourlyPath: hourlyPath,
		logger:     logger,
		heading:    headingPending,
	}
}

// Search geocodes query into a candidate location for the caller to confirm.
func (v *Viewer) Search(ctx context.Context, query string) (weather.Location, error) {
	return v.geocoder.Geocode(ctx, query)
}

// Confirm makes loc the displayed location: the previous forecast files are
// removed and a run is started. The heading switches to loc immediately.
func (v *Viewer) Confirm(loc weather.Location) (string, error) {
	v.startMu.Lock()
	defer v.startMu.Unlock()

	if v.runner.Running() {
		return "", pipeline.ErrFetchInProgress
	}

	if err := store.Remove(v.dailyPath, v.hourlyPath); err != nil {
		v.logger.Warn("removing previous forecast files", zap.Error(err))
	}

	v.mu.Lock()
	v.location = &loc
	v.heading = headingPrefix + loc.Address
	v.mu.Unlock()

	return v.start(loc)
}

// Refresh re-runs the pipeline for the confirmed location.
func (v *Viewer) Refresh() (string, error) {
	v.startMu.Lock()
	defer v.startMu.Unlock()

	v.mu.RLock()
	loc := v.location
	v.mu.RUnlock()
	if loc == nil {
		return "", ErrNoLocation
	}
	return v.start(*loc)
}

func (v *Viewer) start(loc weather.Location) (string, error) {
	id, err := v.runner.Start(loc, v.handleResult)
	if err != nil {
		return "", err
	}
	v.logger.Info("forecast requested",
		zap.String("run_id", id),
		zap.String("address", loc.Address),
		zap.String("location", loc.Key()),
	)
	return id, nil
}

// handleResult receives a finished run. Both files are loaded into fresh
// managers; the display is replaced only if both load, and cleared otherwise.
func (v *Viewer) handleResult(res pipeline.Result) {
	v.logger.Info(res.Message, zap.String("run_id", res.RunID), zap.Bool("success", res.Success))

	if !res.Success {
		v.clear(res)
		return
	}

	daily := store.NewDailyManager(v.dailyPath, res.DailyGeneratedAt, v.logger)
	hourly := store.NewHourlyManager(v.hourlyPath, res.HourlyGeneratedAt, v.logger)
	if !daily.Load() || !hourly.Load() {
		v.clear(res)
		return
	}

	var current *weather.Current
	if c, ok := weather.CurrentFromHourly(hourly.Get()); ok {
		current = &c
	}

	loc := res.Location
	v.mu.Lock()
	defer v.mu.Unlock()
	v.daily = daily
	v.hourly = hourly
	v.current = current
	v.displayed = &loc
	v.heading = headingPrefix + loc.Address
	v.last = &res
}

// clear resets heading, current conditions and both panels.
func (v *Viewer) clear(res pipeline.Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.heading = headingPending
	v.daily = nil
	v.hourly = nil
	v.current = nil
	v.displayed = nil
	v.last = &res
}

// Daily returns the displayed daily panel, or store.ErrNotFound.
func (v *Viewer) Daily() (Panel[weather.DailyPeriod], error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.daily == nil {
		return Panel[weather.DailyPeriod]{}, store.ErrNotFound
	}
	return Panel[weather.DailyPeriod]{
		Location:    *v.displayed,
		GeneratedAt: v.daily.GeneratedAt(),
		Periods:     v.daily.Get(),
	}, nil
}

// Hourly returns the displayed hourly panel, or store.ErrNotFound.
func (v *Viewer) Hourly() (Panel[weather.HourlyPeriod], error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.hourly == nil {
		return Panel[weather.HourlyPeriod]{}, store.ErrNotFound
	}
	return Panel[weather.HourlyPeriod]{
		Location:    *v.displayed,
		GeneratedAt: v.hourly.GeneratedAt(),
		Periods:     v.hourly.Get(),
	}, nil
}

// Current returns the displayed current conditions, or store.ErrNotFound.
func (v *Viewer) Current() (weather.Current, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.current == nil {
		return weather.Current{}, store.ErrNotFound
	}
	return *v.current, nil
}

// Status returns a snapshot of the viewer state.
func (v *Viewer) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st := Status{
		Heading: v.heading,
		Running: v.runner.Running(),
		Stage:   v.runner.Stage(),
		RunID:   v.runner.RunID(),
		Loaded:  v.daily != nil && v.hourly != nil,
	}
	if v.location != nil {
		loc := *v.location
		st.Location = &loc
	}
	if v.last != nil {
		last := *v.last
		st.LastResult = &last
	}
	return st
}
