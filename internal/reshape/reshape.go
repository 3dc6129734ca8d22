// Package reshape turns wide-format source exports into date-indexed
// tables. The source layout has one row per locale with metadata columns
// followed by one column per date; the output has one row per date with
// one column per aggregated group.
package reshape

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"covidview/internal/dataset"
	"covidview/internal/population"
)

// sourceDateLayout matches the source export headers (1/22/20).
const sourceDateLayout = "1/2/06"

// Options control one reshape run.
type Options struct {
	// GroupColumn names the column whose values become the output
	// columns; rows sharing a value are summed.
	GroupColumn string
	// DropRows lists group values to discard entirely.
	DropRows []string
	// DropColumns lists metadata columns to ignore.
	DropColumns []string
	// PopulationColumn, when non-empty, names a column summed per group
	// into the population reference instead of the table.
	PopulationColumn string
}

// Result is the output of one reshape run.
type Result struct {
	Table       *dataset.Table
	Populations population.Table
}

// Reshape reads a wide-format CSV and aggregates it into a date-indexed
// table. Empty cells count as zero. Header columns must be the group
// column, a listed metadata column, the population column, or a date.
func Reshape(r io.Reader, opts Options) (*Result, error) {
	if opts.GroupColumn == "" {
		return nil, fmt.Errorf("group column is required")
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	drop := make(map[string]bool, len(opts.DropColumns))
	for _, c := range opts.DropColumns {
		drop[c] = true
	}
	dropRows := make(map[string]bool, len(opts.DropRows))
	for _, v := range opts.DropRows {
		dropRows[v] = true
	}

	groupIdx, popIdx := -1, -1
	var dateIdx []int
	var dates []time.Time
	for i, cell := range header {
		switch {
		case cell == opts.GroupColumn:
			groupIdx = i
		case opts.PopulationColumn != "" && cell == opts.PopulationColumn:
			popIdx = i
		case drop[cell]:
		default:
			d, err := time.Parse(sourceDateLayout, cell)
			if err != nil {
				return nil, fmt.Errorf("unrecognized column %q: not a metadata column or %s date", cell, sourceDateLayout)
			}
			dateIdx = append(dateIdx, i)
			dates = append(dates, d)
		}
	}
	if groupIdx == -1 {
		return nil, fmt.Errorf("group column %q not found in header", opts.GroupColumn)
	}
	if opts.PopulationColumn != "" && popIdx == -1 {
		return nil, fmt.Errorf("population column %q not found in header", opts.PopulationColumn)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no date columns found in header")
	}

	sums := make(map[string][]float64)
	pops := make(population.Table)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		group := record[groupIdx]
		if dropRows[group] {
			continue
		}
		values, ok := sums[group]
		if !ok {
			values = make([]float64, len(dates))
			sums[group] = values
		}
		for j, idx := range dateIdx {
			v, err := parseCell(record[idx])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", line, header[idx], err)
			}
			values[j] += v
		}
		if popIdx != -1 {
			v, err := parseCell(record[popIdx])
			if err != nil {
				return nil, fmt.Errorf("row %d, population: %w", line, err)
			}
			pops[group] += v
		}
	}

	t, err := dataset.NewTable(dates)
	if err != nil {
		return nil, fmt.Errorf("building date index: %w", err)
	}
	groups := make([]string, 0, len(sums))
	for g := range sums {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		if err := t.AddColumn(g, sums[g]); err != nil {
			return nil, err
		}
	}

	result := &Result{Table: t}
	if popIdx != -1 {
		result.Populations = pops
	}
	return result, nil
}

// parseCell reads one numeric cell; empty means zero.
func parseCell(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
