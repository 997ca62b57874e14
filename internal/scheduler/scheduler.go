package scheduler

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/pipeline"
	"github.com/i474232898/forecast-viewer/internal/viewer"
)

// Refresher re-runs the forecast for the confirmed location.
type Refresher interface {
	Refresh() (string, error)
}

// Scheduler periodically refreshes the displayed forecast.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(refresher Refresher, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: refresh disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().WaitForSchedule().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: refresh scheduled", zap.Int("every_minutes", minutes))
	return nil
}

func (s *Scheduler) runOnce() {
	id, err := s.refresher.Refresh()
	switch {
	case errors.Is(err, viewer.ErrNoLocation):
		s.logger.Debug("scheduler: no location confirmed; skipping refresh")
	case errors.Is(err, pipeline.ErrFetchInProgress):
		s.logger.Info("scheduler: fetch in progress; skipping refresh")
	case err != nil:
		s.logger.Warn("scheduler: refresh failed", zap.Error(err))
	default:
		s.logger.Info("scheduler: refresh started", zap.String("run_id", id))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
