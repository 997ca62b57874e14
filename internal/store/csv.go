package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/i474232898/forecast-viewer/internal/weather"
)

// Default file names inside the data directory.
const (
	DailyFileName  = "daily_forecast.csv"
	HourlyFileName = "hourly_forecast.csv"
)

// WriteCSV truncates the file at path and writes a header row followed by one
// line per row, with values in columns order. Missing values are written empty.
func WriteCSV(path string, columns []string, rows []weather.Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.UseCRLF = true

	if err := w.Write(columns); err != nil {
		f.Close()
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Remove deletes the given files. Files that do not exist are skipped.
func Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
