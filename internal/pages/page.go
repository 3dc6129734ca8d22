package pages

import (
	"covidview/internal/dataset"
)

// Page is one loaded table with its display settings. Pages hold no
// reference to their owning collection; derivations receive the toggle
// context and population table as explicit parameters.
type Page struct {
	settings dataset.Settings
	table    *dataset.Table
	present  map[string]struct{}
}

// New creates a page from a table and settings.
func New(t *dataset.Table, s dataset.Settings) *Page {
	present := make(map[string]struct{}, len(t.Columns()))
	for _, c := range t.Columns() {
		present[c] = struct{}{}
	}
	return &Page{settings: s, table: t, present: present}
}

// Load reads a page from a comment-annotated CSV file. The title falls
// back to the file name when the metadata carries none.
func Load(path string) (*Page, error) {
	table, settings, err := dataset.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(table, settings), nil
}

// Title returns the page title.
func (p *Page) Title() string { return p.settings.Title }

// Settings returns the page's display settings.
func (p *Page) Settings() dataset.Settings { return p.settings }

// Table returns the page's source table. It must not be mutated; use
// transform.Apply to derive views.
func (p *Page) Table() *dataset.Table { return p.table }

// Has reports whether the named location is a column of this page.
func (p *Page) Has(location string) bool {
	_, ok := p.present[location]
	return ok
}

// Locations returns the page's column names in table order.
func (p *Page) Locations() []string { return p.table.Columns() }
