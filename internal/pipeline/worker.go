package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

// ErrFetchInProgress is returned by Start while a run is still active.
var ErrFetchInProgress = errors.New("forecast fetch already in progress")

// DefaultRunTimeout bounds a whole run: one point lookup and two forecast fetches.
const DefaultRunTimeout = 2 * time.Minute

// Worker runs the pipeline in the background, one run at a time.
type Worker struct {
	pipeline   *Pipeline
	runTimeout time.Duration
	logger     *zap.Logger

	running *atomic.Bool
	stage   *atomic.String
	runID   *atomic.String

	wg sync.WaitGroup
}

// NewWorker wraps p. A non-positive runTimeout uses DefaultRunTimeout.
func NewWorker(p *Pipeline, runTimeout time.Duration, logger *zap.Logger) *Worker {
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		pipeline:   p,
		runTimeout: runTimeout,
		logger:     logger,
		running:    atomic.NewBool(false),
		stage:      atomic.NewString(string(StageNotStarted)),
		runID:      atomic.NewString(""),
	}
	p.onStage = func(s Stage) { w.stage.Store(string(s)) }
	return w
}

// Start begins a run for loc and returns its ID. notify is called exactly once,
// from the worker goroutine, with the run's result. The worker counts as running
// until notify returns, so notify must not call Start. A panic in notify is
// logged and the worker is released for the next run.
func (w *Worker) Start(loc weather.Location, notify func(Result)) (string, error) {
	if !w.running.CAS(false, true) {
		rejectedStarts.Inc()
		return "", ErrFetchInProgress
	}

	id := uuid.NewString()
	w.runID.Store(id)
	w.stage.Store(string(StageNotStarted))
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)

		logger := w.logger.With(zap.String("run_id", id))
		defer func() {
			if r := recover(); r != nil {
				logger.Error("forecast run panicked", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), w.runTimeout)
		defer cancel()

		logger.Info("forecast run started", zap.String("location", loc.Key()))

		start := time.Now()
		res := w.pipeline.Run(ctx, loc)
		res.RunID = id
		runsTotal.WithLabelValues(outcome(res)).Inc()
		runDuration.Observe(time.Since(start).Seconds())

		logger.Info("forecast run finished",
			zap.Bool("success", res.Success),
			zap.Duration("elapsed", time.Since(start)),
		)

		// Files stay untouched until the caller has consumed the result.
		if notify != nil {
			notify(res)
		}
	}()

	return id, nil
}

// Running reports whether a run is active.
func (w *Worker) Running() bool { return w.running.Load() }

// Stage returns the stage of the current or most recent run.
func (w *Worker) Stage() Stage { return Stage(w.stage.Load()) }

// RunID returns the ID of the current or most recent run.
func (w *Worker) RunID() string { return w.runID.Load() }

// Wait blocks until the active run, if any, has delivered its result or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
