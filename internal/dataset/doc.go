// Package dataset provides the date-indexed table type used across the
// application and the comment-annotated CSV format it is persisted in.
//
// A table file consists of zero or more leading metadata lines, each
// beginning with the '&' marker and carrying one key/value pair:
//
//	&ylabel:,Cases,
//	&log_allowed:,true,
//	&suggested_scaling:,1000000,
//
// followed by an ordinary header row and a date-indexed numeric matrix
// (rows are dates, columns are named locations). Empty cells are NaN.
//
// Metadata keys are matched exactly against a fixed set after stripping
// the marker and trailing colon. An unrecognized key or a line without a
// comma-separated pair is a named error rather than being silently
// ignored.
package dataset
