// Package exporter writes tables out of the application: the
// comment-annotated CSV format for round-tripping pages, plain CSV for
// derived views, and XLSX workbooks for spreadsheet consumers.
package exporter
