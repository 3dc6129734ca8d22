package transform

import (
	"math"
	"time"

	"covidview/internal/dataset"
	"covidview/internal/population"
)

// Context is the immutable toggle state applied to a derivation. Zero
// Start/End leave the date range unbounded on that side.
type Context struct {
	LogScale  bool      `json:"log_scale"`
	PerCapita bool      `json:"per_capita"`
	Delta     bool      `json:"delta"`
	Start     time.Time `json:"start,omitempty"`
	End       time.Time `json:"end,omitempty"`
}

// smoothingWindow is the width of the rolling average applied after the
// first difference.
const smoothingWindow = 7

// triangularWeights is a triangular window of width seven, matching
// pandas rolling(7, win_type="triang").
var triangularWeights = [smoothingWindow]float64{0.25, 0.5, 0.75, 1.0, 0.75, 0.5, 0.25}

// Apply derives the plotted view of a table: select the requested
// columns that are present, then delta-smooth, then normalize per
// capita, then restrict to the context's date range. The source table is
// left untouched.
//
// Requesting a location absent from the table is not an error; it simply
// contributes no column. Delta and per-capita only take effect when both
// requested in the context and allowed by the page settings.
func Apply(t *dataset.Table, locations []string, s dataset.Settings, ctx Context, pop population.Table) *dataset.Table {
	out := t.Select(locations)

	if ctx.Delta && s.DeltaAllowed {
		for _, name := range out.Columns() {
			col, _ := out.Column(name)
			diff(col)
			rollTriangular(col)
		}
	}

	if ctx.PerCapita && s.PerCapitaAllowed {
		for _, name := range out.Columns() {
			col, _ := out.Column(name)
			p, ok := pop.Lookup(name)
			if !ok || p == 0 {
				p = math.NaN()
			}
			for i := range col {
				col[i] /= p
				if s.SuggestedScaling > 0 {
					col[i] *= float64(s.SuggestedScaling)
				}
			}
		}
	}

	if !ctx.Start.IsZero() || !ctx.End.IsZero() {
		out = out.Between(ctx.Start, ctx.End)
	}
	return out
}

// diff replaces each value with its first difference along the date
// axis. The first row becomes NaN.
func diff(col []float64) {
	prev := math.NaN()
	for i, v := range col {
		col[i] = v - prev
		prev = v
	}
	if len(col) > 0 {
		col[0] = math.NaN()
	}
}

// rollTriangular applies a trailing triangular-weighted rolling average
// of width seven in place. A window containing fewer than seven non-NaN
// values yields NaN, matching the pandas windowing convention.
func rollTriangular(col []float64) {
	src := make([]float64, len(col))
	copy(src, col)
	for i := range col {
		if i < smoothingWindow-1 {
			col[i] = math.NaN()
			continue
		}
		sum, wsum := 0.0, 0.0
		defined := true
		for j := 0; j < smoothingWindow; j++ {
			v := src[i-smoothingWindow+1+j]
			if math.IsNaN(v) {
				defined = false
				break
			}
			w := triangularWeights[j]
			sum += v * w
			wsum += w
		}
		if !defined {
			col[i] = math.NaN()
		} else {
			col[i] = sum / wsum
		}
	}
}
