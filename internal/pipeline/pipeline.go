// Package pipeline fetches the daily and hourly forecasts for a location from
// the weather service and persists them as CSV files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/nws"
	"github.com/i474232898/forecast-viewer/internal/store"
	"github.com/i474232898/forecast-viewer/internal/weather"
)

// Stage is the step a run is currently in.
type Stage string

const (
	StageNotStarted      Stage = "not_started"
	StageResolvingPoint  Stage = "resolving_point"
	StageFetchingDaily   Stage = "fetching_daily"
	StageFetchingHourly  Stage = "fetching_hourly"
	StagePersistingFiles Stage = "persisting_files"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

// Failure kinds carried by Result.Err.
var (
	ErrTransport     = errors.New("transport failure")
	ErrInvalidFormat = errors.New("invalid response format")
	ErrPersist       = errors.New("persist failure")
)

// SuccessMessage is the message of every successful Result.
const SuccessMessage = "Forecast CSV files written"

// Source is the upstream the pipeline reads from. *nws.Client implements it.
type Source interface {
	Point(ctx context.Context, lat, lon float64) (nws.Point, error)
	Forecast(ctx context.Context, forecastURL string) (nws.Forecast, error)
}

// Result is the outcome of one run. Failed results always have empty
// generation timestamps.
type Result struct {
	RunID             string           `json:"runId"`
	Location          weather.Location `json:"location"`
	Success           bool             `json:"success"`
	Message           string           `json:"message"`
	DailyGeneratedAt  string           `json:"dailyGeneratedAt"`
	HourlyGeneratedAt string           `json:"hourlyGeneratedAt"`
	Err               error            `json:"-"`
}

// Config holds where the pipeline writes and how it renders timestamps.
type Config struct {
	DailyPath  string
	HourlyPath string
	// TimeZone renders generation timestamps. Nil means time.Local.
	TimeZone *time.Location
}

// Pipeline runs the point lookup, both forecast fetches and the file writes
// strictly in sequence.
type Pipeline struct {
	source Source
	cfg    Config
	logger *zap.Logger

	// onStage, when set, is told about every stage transition.
	onStage func(Stage)
}

func New(source Source, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.TimeZone == nil {
		cfg.TimeZone = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{source: source, cfg: cfg, logger: logger}
}

// Paths returns the daily and hourly file paths.
func (p *Pipeline) Paths() (daily, hourly string) {
	return p.cfg.DailyPath, p.cfg.HourlyPath
}

func (p *Pipeline) setStage(s Stage) {
	if p.onStage != nil {
		p.onStage(s)
	}
}

// Run executes one acquisition for loc. Any failure aborts the remaining steps;
// files already written by earlier steps are left in place.
func (p *Pipeline) Run(ctx context.Context, loc weather.Location) Result {
	lat, lon := loc.Rounded()
	logger := p.logger.With(zap.String("location", loc.Key()))

	p.setStage(StageResolvingPoint)
	point, err := p.source.Point(ctx, lat, lon)
	if err != nil {
		return p.fail(logger, loc, err)
	}

	p.setStage(StageFetchingDaily)
	dailyAt, err := p.fetchAndPersist(ctx, point.ForecastURL, p.cfg.DailyPath, weather.DailyColumns, nws.Period.DailyRow)
	if err != nil {
		return p.fail(logger, loc, err)
	}

	p.setStage(StageFetchingHourly)
	hourlyAt, err := p.fetchAndPersist(ctx, point.ForecastHourlyURL, p.cfg.HourlyPath, weather.HourlyColumns, nws.Period.HourlyRow)
	if err != nil {
		return p.fail(logger, loc, err)
	}

	p.setStage(StageCompleted)
	logger.Info("forecast files written",
		zap.String("daily_generated_at", dailyAt),
		zap.String("hourly_generated_at", hourlyAt),
	)
	return Result{
		Location:          loc,
		Success:           true,
		Message:           SuccessMessage,
		DailyGeneratedAt:  dailyAt,
		HourlyGeneratedAt: hourlyAt,
	}
}

func (p *Pipeline) fetchAndPersist(
	ctx context.Context,
	forecastURL, path string,
	columns []string,
	toRow func(nws.Period) weather.Row,
) (string, error) {
	forecast, err := p.source.Forecast(ctx, forecastURL)
	if err != nil {
		return "", err
	}

	generatedAt, err := weather.FormatGeneratedAt(forecast.GeneratedAt, p.cfg.TimeZone)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	rows := make([]weather.Row, 0, len(forecast.Periods))
	for _, period := range forecast.Periods {
		rows = append(rows, toRow(period))
	}

	p.setStage(StagePersistingFiles)
	if err := store.WriteCSV(path, columns, rows); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return generatedAt, nil
}

func (p *Pipeline) fail(logger *zap.Logger, loc weather.Location, err error) Result {
	err = classify(err)
	p.setStage(StageFailed)
	logger.Warn("forecast run failed", zap.Error(err))
	return Result{
		Location: loc,
		Success:  false,
		Message:  failureMessage(err),
		Err:      err,
	}
}

// classify tags err with its failure kind unless it already carries one.
func classify(err error) error {
	var (
		transportErr *nws.TransportError
		formatErr    *nws.FormatError
	)
	switch {
	case errors.Is(err, ErrTransport), errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrPersist):
		return err
	case errors.As(err, &formatErr):
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	case errors.As(err, &transportErr):
		return fmt.Errorf("%w: %w", ErrTransport, err)
	default:
		// Cancellation, deadlines and anything else from the source.
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFormat):
		return "Invalid API response format: " + cause(err, ErrInvalidFormat)
	case errors.Is(err, ErrPersist):
		return "File save failed: " + cause(err, ErrPersist)
	default:
		return "Forecast fetch failed: " + cause(err, ErrTransport)
	}
}

// cause strips the kind prefix added by classify.
func cause(err, kind error) string {
	msg, _ := strings.CutPrefix(err.Error(), kind.Error()+": ")
	return msg
}
