package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"covidview/internal/config"
	"covidview/internal/dataset"
)

// CSVWriter writes CSV exports into the reports directory.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteTable writes a page as comment-annotated CSV, settings first.
// Relative file names land in the reports directory.
func (w *CSVWriter) WriteTable(fileName string, t *dataset.Table, s dataset.Settings) (string, error) {
	fullPath := w.resolvePath(fileName)

	slog.Info("writing table CSV",
		slog.String("path", fullPath),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns())))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	if err := dataset.WriteFile(fullPath, t, s); err != nil {
		return "", err
	}
	return fullPath, nil
}

// WriteSeries writes a derived view as plain CSV, one date column plus
// one column per location. NaN cells become empty fields.
func (w *CSVWriter) WriteSeries(fileName string, t *dataset.Table) (string, error) {
	fullPath := w.resolvePath(fileName)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("creating series file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	header := append([]string{"date"}, t.Columns()...)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(header))
	for i, d := range t.Dates() {
		record[0] = d.Format("2006-01-02")
		for j, col := range t.Columns() {
			v := t.Value(i, col)
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return fullPath, nil
}

// resolvePath places relative file names in the reports directory.
func (w *CSVWriter) resolvePath(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return w.paths.ReportPath(fileName)
}
