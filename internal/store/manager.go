package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

var (
	// ErrNotFound is returned when no forecast has been loaded yet.
	ErrNotFound = errors.New("no forecast loaded")
)

// Manager holds the periods of one forecast granularity, loaded from a CSV file
// written by the pipeline. It is safe for concurrent use.
type Manager[T any] struct {
	mu sync.RWMutex

	path        string
	generatedAt string
	build       func(weather.Row) T
	periods     []T

	logger *zap.Logger
}

// NewManager creates a Manager for the file at path. build turns one CSV row
// into a period.
func NewManager[T any](path, generatedAt string, build func(weather.Row) T, logger *zap.Logger) *Manager[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager[T]{
		path:        path,
		generatedAt: generatedAt,
		build:       build,
		periods:     []T{},
		logger:      logger,
	}
}

// NewDailyManager creates a Manager for a daily forecast file.
func NewDailyManager(path, generatedAt string, logger *zap.Logger) *Manager[weather.DailyPeriod] {
	return NewManager(path, generatedAt, weather.NewDailyPeriod, logger)
}

// NewHourlyManager creates a Manager for an hourly forecast file.
func NewHourlyManager(path, generatedAt string, logger *zap.Logger) *Manager[weather.HourlyPeriod] {
	return NewManager(path, generatedAt, weather.NewHourlyPeriod, logger)
}

// Load reads the whole file and replaces the held periods in file order. It
// reports false on any read or parse failure, in which case the previously
// loaded periods are kept.
func (m *Manager[T]) Load() bool {
	periods, err := m.read()
	if err != nil {
		m.logger.Warn("forecast load failed", zap.String("path", m.path), zap.Error(err))
		return false
	}

	m.mu.Lock()
	m.periods = periods
	m.mu.Unlock()

	m.logger.Debug("forecast loaded", zap.String("path", m.path), zap.Int("periods", len(periods)))
	return true
}

func (m *Manager[T]) read() ([]T, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	periods := []T{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(periods)+1, err)
		}

		row := make(weather.Row, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		periods = append(periods, m.build(row))
	}
	return periods, nil
}

// Get returns a copy of the loaded periods. It is never nil.
func (m *Manager[T]) Get() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, len(m.periods))
	copy(out, m.periods)
	return out
}

// Len returns the number of loaded periods.
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.periods)
}

// GeneratedAt returns the human-readable generation timestamp of the forecast.
func (m *Manager[T]) GeneratedAt() string { return m.generatedAt }

// Path returns the file this manager loads from.
func (m *Manager[T]) Path() string { return m.path }
