package transform

import (
	"fmt"

	"covidview/internal/dataset"
)

// Unit selects the magnitude formatter applied to axis values.
type Unit int

const (
	UnitNone Unit = iota
	UnitThousands
	UnitMillions
)

// Thresholds above which values are reported in shortened units, unless
// log scaling is in effect.
const (
	thousandsThreshold = 10_000
	millionsThreshold  = 1_000_000
)

// Labels is the derived display labeling for one plotted view.
type Labels struct {
	Y    string `json:"y"`
	X    string `json:"x"`
	Log  bool   `json:"log"`
	Unit Unit   `json:"unit"`
}

// Derive computes the axis labels and value unit for a view. It is a
// pure function of the page settings, the toggle context, and the
// maximum plotted value (NaN for an empty view).
func Derive(s dataset.Settings, ctx Context, maxValue float64) Labels {
	y := s.YLabel

	if ctx.Delta && s.DeltaAllowed {
		y = "Daily New " + y
	}

	if ctx.PerCapita && s.PerCapitaAllowed {
		if s.SuggestedScaling > 0 {
			y = y + fmt.Sprintf(" per %s People", groupDigits(s.SuggestedScaling))
		} else {
			y = y + " per Capita"
		}
	}

	log := ctx.LogScale && s.LogAllowed

	unit := UnitNone
	if !log {
		switch {
		case maxValue > millionsThreshold:
			unit = UnitMillions
			y = y + " (millions)"
		case maxValue > thousandsThreshold:
			unit = UnitThousands
			y = y + " (thousands)"
		}
	}

	x := s.XLabel
	if x == "" {
		x = dataset.DefaultXLabel
	}

	return Labels{Y: y, X: x, Log: log, Unit: unit}
}

// FormatValue renders an axis value in the derived unit: "%.1fM" for
// millions, "%dK" for thousands, plain formatting otherwise.
func (l Labels) FormatValue(v float64) string {
	switch l.Unit {
	case UnitMillions:
		return fmt.Sprintf("%.1fM", v/1e6)
	case UnitThousands:
		return fmt.Sprintf("%dK", int(v/1e3))
	default:
		return fmt.Sprintf("%g", v)
	}
}

// groupDigits renders an integer with comma thousands separators, e.g.
// 1000000 -> "1,000,000".
func groupDigits(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
