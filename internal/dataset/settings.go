package dataset

// Settings holds the display-eligibility options attached to one table.
// SuggestedScaling of zero means no scaling divisor is configured.
type Settings struct {
	Title            string `json:"title"`
	XLabel           string `json:"x_label"`
	YLabel           string `json:"y_label"`
	LogAllowed       bool   `json:"log_allowed"`
	PerCapitaAllowed bool   `json:"per_capita_allowed"`
	DeltaAllowed     bool   `json:"delta_allowed"`
	SuggestedScaling int    `json:"suggested_scaling,omitempty"`
}

// DefaultXLabel is used when a table file carries no xlabel entry.
const DefaultXLabel = "Date"

// DefaultSettings returns settings the way a freshly created page gets
// them before any metadata is applied.
func DefaultSettings() Settings {
	return Settings{XLabel: DefaultXLabel}
}
