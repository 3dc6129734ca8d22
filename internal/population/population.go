// Package population loads the location-to-population reference table
// consulted by per-capita scaling. The table is read once at startup and
// is read-only afterwards, so it is safe to share between concurrent
// readers.
package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table maps a location name to its population. A missing entry is not
// an error; per-capita division against it yields NaN downstream.
type Table map[string]float64

// Read parses a plain two-column CSV (location, population). A header
// row whose second field is not numeric is skipped.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	table := make(Table)
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading population row %d: %w", row+1, err)
		}
		row++
		if len(record) < 2 {
			return nil, fmt.Errorf("population row %d: expected name and value, got %d fields", row, len(record))
		}
		name := strings.TrimSpace(record[0])
		value := strings.TrimSpace(record[1])
		pop, err := strconv.ParseFloat(value, 64)
		if err != nil {
			if row == 1 {
				// header row
				continue
			}
			return nil, fmt.Errorf("population row %d (%s): invalid value %q", row, name, value)
		}
		table[name] = pop
	}
}

// ReadFile parses a population reference file.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening population file: %w", err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Lookup returns the population for a location and whether it is known.
func (t Table) Lookup(name string) (float64, bool) {
	v, ok := t[name]
	return v, ok
}

// Write serializes the table as a two-column CSV with a header row,
// locations sorted by name.
func Write(w io.Writer, t Table, names []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Province_State", "Population"}); err != nil {
		return fmt.Errorf("writing population header: %w", err)
	}
	for _, name := range names {
		v, ok := t[name]
		if !ok {
			continue
		}
		if err := cw.Write([]string{name, strconv.FormatFloat(v, 'f', -1, 64)}); err != nil {
			return fmt.Errorf("writing population row for %s: %w", name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
