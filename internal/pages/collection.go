package pages

import (
	"sort"
	"time"
)

// Collection owns an ordered set of pages plus the state they share: the
// union of date bounds, the sorted union of location names, and the
// active (selected) subset. It also carries the server's current toggle
// selection, snapshotted into a transform.Context per derivation call.
//
// Invariant: StartDate >= MinDate, enforced on every assignment.
type Collection struct {
	pages   []*Page
	byTitle map[string]*Page

	locations []string
	active    []string

	minDate   time.Time
	maxDate   time.Time
	startDate time.Time
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{byTitle: make(map[string]*Page)}
}

// Add registers a page. Adding a page object already present is a no-op.
// Date bounds widen to the union of all page ranges, the start date
// resets to the new minimum, the location list becomes the re-sorted
// union, and the active selection resets to the full list.
func (c *Collection) Add(p *Page) {
	for _, existing := range c.pages {
		if existing == p {
			return
		}
	}

	if first, ok := p.table.FirstDate(); ok {
		last, _ := p.table.LastDate()
		if c.minDate.IsZero() || first.Before(c.minDate) {
			c.minDate = first
		}
		if c.maxDate.IsZero() || last.After(c.maxDate) {
			c.maxDate = last
		}
		c.startDate = c.minDate
	}

	c.pages = append(c.pages, p)
	c.byTitle[p.Title()] = p

	known := make(map[string]struct{}, len(c.locations))
	for _, l := range c.locations {
		known[l] = struct{}{}
	}
	for _, l := range p.Locations() {
		if _, ok := known[l]; !ok {
			known[l] = struct{}{}
			c.locations = append(c.locations, l)
		}
	}
	sort.Strings(c.locations)

	c.active = append([]string(nil), c.locations...)
}

// Len returns the number of pages.
func (c *Collection) Len() int { return len(c.pages) }

// Pages returns the pages in insertion order.
func (c *Collection) Pages() []*Page { return c.pages }

// Page looks a page up by title.
func (c *Collection) Page(title string) (*Page, bool) {
	p, ok := c.byTitle[title]
	return p, ok
}

// Titles returns the page titles in insertion order.
func (c *Collection) Titles() []string {
	titles := make([]string, len(c.pages))
	for i, p := range c.pages {
		titles[i] = p.Title()
	}
	return titles
}

// Locations returns the sorted union of location names across all pages.
func (c *Collection) Locations() []string {
	return append([]string(nil), c.locations...)
}

// Active returns the currently selected locations.
func (c *Collection) Active() []string {
	return append([]string(nil), c.active...)
}

// SetActive replaces the selection, keeping only names in the known
// location list. Unknown names contribute nothing; they are not an
// error.
func (c *Collection) SetActive(names []string) {
	known := make(map[string]struct{}, len(c.locations))
	for _, l := range c.locations {
		known[l] = struct{}{}
	}
	selected := c.active[:0:0]
	for _, n := range names {
		if _, ok := known[n]; ok {
			selected = append(selected, n)
		}
	}
	c.active = selected
}

// MinDate returns the earliest date across all pages.
func (c *Collection) MinDate() time.Time { return c.minDate }

// MaxDate returns the latest date across all pages.
func (c *Collection) MaxDate() time.Time { return c.maxDate }

// StartDate returns the active range start.
func (c *Collection) StartDate() time.Time { return c.startDate }

// SetStartDate assigns the active range start, clamped so that it never
// precedes the collection minimum.
func (c *Collection) SetStartDate(d time.Time) {
	if d.Before(c.minDate) {
		d = c.minDate
	}
	c.startDate = d
}
