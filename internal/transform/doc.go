// Package transform derives plot-ready views from loaded tables: column
// selection, daily-delta smoothing, per-capita normalization, date-range
// restriction, and axis label derivation.
//
// Every derivation is a pure function of its inputs. The toggle state is
// passed in as an immutable Context value; no transformation reaches back
// into shared mutable state, and source tables are never modified.
package transform
