// Package pages holds loaded data pages and the collection that owns
// them. A page is one date-indexed table plus its display settings; the
// collection maintains the cross-page date bounds, the sorted union of
// location names, and the currently selected locations.
package pages
