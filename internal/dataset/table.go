package dataset

import (
	"fmt"
	"math"
	"time"
)

// Table is a date-indexed numeric table. Dates are strictly increasing
// and column names are unique. Derived views always copy column data, so
// a loaded table is never mutated by downstream transformations.
type Table struct {
	dates   []time.Time
	columns []string
	data    map[string][]float64
}

// NewTable creates an empty table over the given date index.
func NewTable(dates []time.Time) (*Table, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("date index not strictly increasing at row %d (%s -> %s)",
				i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
	return &Table{
		dates: dates,
		data:  make(map[string][]float64),
	}, nil
}

// AddColumn appends a named column. The value slice must match the date
// index length and the name must not already be present.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.dates) {
		return fmt.Errorf("column %q has %d values, index has %d dates", name, len(values), len(t.dates))
	}
	if _, ok := t.data[name]; ok {
		return fmt.Errorf("duplicate column %q", name)
	}
	t.columns = append(t.columns, name)
	t.data[name] = values
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns the date index. Callers must not modify it.
func (t *Table) Dates() []time.Time { return t.dates }

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string { return t.columns }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns the values of the named column. Callers must not modify
// the returned slice; use Select to obtain a mutable copy.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.data[name]
	return v, ok
}

// Value returns the cell at row i of the named column, or NaN when the
// column is absent.
func (t *Table) Value(i int, name string) float64 {
	v, ok := t.data[name]
	if !ok {
		return math.NaN()
	}
	return v[i]
}

// Select returns a new table holding deep copies of the requested columns
// that are present, in request order. Requested names absent from the
// table contribute nothing; they are not an error.
func (t *Table) Select(names []string) *Table {
	out := &Table{
		dates: t.dates,
		data:  make(map[string][]float64),
	}
	for _, name := range names {
		src, ok := t.data[name]
		if !ok {
			continue
		}
		dst := make([]float64, len(src))
		copy(dst, src)
		out.columns = append(out.columns, name)
		out.data[name] = dst
	}
	return out
}

// Between returns a view restricted to rows with start <= date <= end.
// A zero start or end leaves that side unbounded. Column data is copied.
func (t *Table) Between(start, end time.Time) *Table {
	lo, hi := 0, len(t.dates)
	if !start.IsZero() {
		for lo < hi && t.dates[lo].Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi > lo && t.dates[hi-1].After(end) {
			hi--
		}
	}
	out := &Table{
		dates: t.dates[lo:hi],
		data:  make(map[string][]float64),
	}
	for _, name := range t.columns {
		dst := make([]float64, hi-lo)
		copy(dst, t.data[name][lo:hi])
		out.columns = append(out.columns, name)
		out.data[name] = dst
	}
	return out
}

// MaxValue returns the largest non-NaN cell, or NaN for an empty or
// all-NaN table.
func (t *Table) MaxValue() float64 {
	max := math.NaN()
	for _, name := range t.columns {
		for _, v := range t.data[name] {
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(max) || v > max {
				max = v
			}
		}
	}
	return max
}

// FirstDate returns the first date of the index and false for an empty
// table.
func (t *Table) FirstDate() (time.Time, bool) {
	if len(t.dates) == 0 {
		return time.Time{}, false
	}
	return t.dates[0], true
}

// LastDate returns the last date of the index and false for an empty
// table.
func (t *Table) LastDate() (time.Time, bool) {
	if len(t.dates) == 0 {
		return time.Time{}, false
	}
	return t.dates[len(t.dates)-1], true
}
