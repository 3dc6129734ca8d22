package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"covidview/internal/config"
	"covidview/internal/dataset"
)

// XLSXExporter writes pages into Excel workbooks.
type XLSXExporter struct {
	paths *config.Paths
}

// NewXLSXExporter creates a new Excel exporter.
func NewXLSXExporter(paths *config.Paths) *XLSXExporter {
	return &XLSXExporter{paths: paths}
}

// Sheet is one workbook sheet to export.
type Sheet struct {
	Name  string
	Table *dataset.Table
}

// ExportWorkbook writes one sheet per entry, a date column first, NaN
// cells left empty. Relative file names land in the reports directory.
func (e *XLSXExporter) ExportWorkbook(fileName string, sheets []Sheet) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets to export")
	}

	fullPath := fileName
	if !filepath.IsAbs(fullPath) {
		fullPath = e.paths.ReportPath(fullPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("yyyy-mm-dd")})
	if err != nil {
		return "", fmt.Errorf("creating date style: %w", err)
	}

	for i, sheet := range sheets {
		name := sheetName(sheet.Name)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return "", fmt.Errorf("renaming sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return "", fmt.Errorf("creating sheet %q: %w", name, err)
			}
		}
		if err := e.writeSheet(f, name, sheet.Table, dateStyle); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	slog.Info("workbook exported",
		slog.String("path", fullPath),
		slog.Int("sheets", len(sheets)))
	return fullPath, nil
}

// ExportTable writes a single-sheet workbook.
func (e *XLSXExporter) ExportTable(fileName, title string, t *dataset.Table) (string, error) {
	return e.ExportWorkbook(fileName, []Sheet{{Name: title, Table: t}})
}

func (e *XLSXExporter) writeSheet(f *excelize.File, name string, t *dataset.Table, dateStyle int) error {
	header := append([]string{"Date"}, t.Columns()...)
	for j, h := range header {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("writing header of %q: %w", name, err)
		}
	}

	for i, d := range t.Dates() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, d); err != nil {
			return fmt.Errorf("writing date row %d: %w", i+1, err)
		}
		if err := f.SetCellStyle(name, cell, cell, dateStyle); err != nil {
			return fmt.Errorf("styling date row %d: %w", i+1, err)
		}
		for j, col := range t.Columns() {
			v := t.Value(i, col)
			if math.IsNaN(v) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+2, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("writing %q row %d: %w", col, i+1, err)
			}
		}
	}

	// widen the date column for readability
	return f.SetColWidth(name, "A", "A", 12)
}

// sheetName trims a title to the 31-character Excel sheet name limit.
func sheetName(title string) string {
	if title == "" {
		return "Data"
	}
	if len(title) > 31 {
		return title[:31]
	}
	return title
}

func strPtr(s string) *string { return &s }
