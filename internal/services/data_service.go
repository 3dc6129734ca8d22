package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"covidview/internal/config"
	"covidview/internal/dataset"
	apierrors "covidview/internal/errors"
	"covidview/internal/pages"
	"covidview/internal/population"
	"covidview/internal/transform"
)

// DataService owns the loaded pages, the population reference, and the
// server's current view selection. Derivations themselves are pure; the
// mutex only guards the selection state against concurrent HTTP access.
type DataService struct {
	logger *slog.Logger
	paths  *config.Paths

	mu          sync.RWMutex
	collection  *pages.Collection
	populations population.Table
	logScale    bool
	perCapita   bool
	delta       bool
}

// NewDataService creates a data service over the configured paths.
func NewDataService(paths *config.Paths, logger *slog.Logger) *DataService {
	return &DataService{
		logger:      logger.With(slog.String("component", "data_service")),
		paths:       paths,
		collection:  pages.NewCollection(),
		populations: make(population.Table),
	}
}

// LoadAll loads the population reference and every table file under the
// tables directory. An empty directory is a no-op, not an error.
func (s *DataService) LoadAll(ctx context.Context) error {
	if pop, err := population.ReadFile(s.paths.PopulationFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		s.logger.Warn("population reference missing, per-capita views will be empty",
			slog.String("path", s.paths.PopulationFile))
	} else {
		s.mu.Lock()
		s.populations = pop
		s.mu.Unlock()
		s.logger.Info("population reference loaded",
			slog.Int("locations", len(pop)))
	}

	matches, err := filepath.Glob(filepath.Join(s.paths.TablesDir, "*.csv"))
	if err != nil {
		return fmt.Errorf("listing tables directory: %w", err)
	}
	sort.Strings(matches)
	return s.LoadFiles(ctx, matches)
}

// LoadFiles loads the given table files concurrently and registers the
// pages in file-name order so the page list is deterministic. An empty
// list is a no-op.
func (s *DataService) LoadFiles(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}

	loaded := make([]*pages.Page, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			p, err := pages.Load(file)
			if err != nil {
				return err
			}
			loaded[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, p := range loaded {
		s.collection.Add(p)
	}
	s.mu.Unlock()

	s.logger.Info("tables loaded",
		slog.Int("pages", len(files)),
		slog.String("dir", s.paths.TablesDir))
	return nil
}

// AddPage registers an already-built page.
func (s *DataService) AddPage(p *pages.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection.Add(p)
}

// PageInfo describes one page for listings.
type PageInfo struct {
	Title    string           `json:"title"`
	Settings dataset.Settings `json:"settings"`
	Rows     int              `json:"rows"`
}

// Pages returns the loaded pages in insertion order.
func (s *DataService) Pages() []PageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]PageInfo, 0, s.collection.Len())
	for _, p := range s.collection.Pages() {
		infos = append(infos, PageInfo{
			Title:    p.Title(),
			Settings: p.Settings(),
			Rows:     p.Table().Len(),
		})
	}
	return infos
}

// Locations returns the sorted union of location names across pages.
func (s *DataService) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Locations()
}

// ActiveLocations returns the current selection.
func (s *DataService) ActiveLocations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Active()
}

// SetActiveLocations replaces the selection; unknown names are silently
// dropped.
func (s *DataService) SetActiveLocations(names []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection.SetActive(names)
	return s.collection.Active()
}

// View is the current toggle and date-range selection.
type View struct {
	LogScale  bool      `json:"log_scale"`
	PerCapita bool      `json:"per_capita"`
	Delta     bool      `json:"delta"`
	MinDate   time.Time `json:"min_date"`
	MaxDate   time.Time `json:"max_date"`
	StartDate time.Time `json:"start_date"`
}

// View returns the current view selection.
func (s *DataService) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *DataService) viewLocked() View {
	return View{
		LogScale:  s.logScale,
		PerCapita: s.perCapita,
		Delta:     s.delta,
		MinDate:   s.collection.MinDate(),
		MaxDate:   s.collection.MaxDate(),
		StartDate: s.collection.StartDate(),
	}
}

// ViewUpdate carries a partial view change; nil fields are unchanged.
type ViewUpdate struct {
	LogScale  *bool      `json:"log_scale,omitempty"`
	PerCapita *bool      `json:"per_capita,omitempty"`
	Delta     *bool      `json:"delta,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// UpdateView applies a partial view change and returns the resulting
// view. The start date is clamped to the collection minimum.
func (s *DataService) UpdateView(u ViewUpdate) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.LogScale != nil {
		s.logScale = *u.LogScale
	}
	if u.PerCapita != nil {
		s.perCapita = *u.PerCapita
	}
	if u.Delta != nil {
		s.delta = *u.Delta
	}
	if u.StartDate != nil {
		s.collection.SetStartDate(*u.StartDate)
	}
	return s.viewLocked()
}

// SeriesRequest selects the derived view of one page. Nil Locations
// means the active selection; nil toggle overrides fall back to the
// stored view.
type SeriesRequest struct {
	Locations []string
	LogScale  *bool
	PerCapita *bool
	Delta     *bool
	Start     time.Time
	End       time.Time
}

// SeriesColumn is one derived series; NaN cells are nil.
type SeriesColumn struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// SeriesResult is the derived view of one page.
type SeriesResult struct {
	Title   string           `json:"title"`
	Dates   []string         `json:"dates"`
	Columns []SeriesColumn   `json:"columns"`
	Labels  transform.Labels `json:"labels"`
	Context transform.Context `json:"context"`
}

// Series derives the plotted view of the named page. Locations absent
// from the page contribute nothing; an empty intersection yields an
// empty result, not an error.
func (s *DataService) Series(title string, req SeriesRequest) (*SeriesResult, error) {
	s.mu.RLock()
	page, ok := s.collection.Page(title)
	if !ok {
		s.mu.RUnlock()
		return nil, apierrors.PageNotFoundError(title)
	}

	locations := req.Locations
	if locations == nil {
		locations = s.collection.Active()
	}

	ctx := transform.Context{
		LogScale:  s.logScale,
		PerCapita: s.perCapita,
		Delta:     s.delta,
		Start:     s.collection.StartDate(),
		End:       s.collection.MaxDate(),
	}
	if req.LogScale != nil {
		ctx.LogScale = *req.LogScale
	}
	if req.PerCapita != nil {
		ctx.PerCapita = *req.PerCapita
	}
	if req.Delta != nil {
		ctx.Delta = *req.Delta
	}
	if !req.Start.IsZero() {
		ctx.Start = req.Start
	}
	if !req.End.IsZero() {
		ctx.End = req.End
	}
	pop := s.populations
	s.mu.RUnlock()

	derived := transform.Apply(page.Table(), locations, page.Settings(), ctx, pop)
	labels := transform.Derive(page.Settings(), ctx, derived.MaxValue())

	result := &SeriesResult{
		Title:   title,
		Dates:   make([]string, derived.Len()),
		Columns: make([]SeriesColumn, 0, len(derived.Columns())),
		Labels:  labels,
		Context: ctx,
	}
	for i, d := range derived.Dates() {
		result.Dates[i] = d.Format("2006-01-02")
	}
	for _, name := range derived.Columns() {
		col, _ := derived.Column(name)
		values := make([]*float64, len(col))
		for i, v := range col {
			if !math.IsNaN(v) {
				values[i] = &col[i]
			}
		}
		result.Columns = append(result.Columns, SeriesColumn{Name: name, Values: values})
	}
	return result, nil
}

// PageData returns the source table and settings of the named page for
// export.
func (s *DataService) PageData(title string) (*dataset.Table, dataset.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.collection.Page(title)
	if !ok {
		return nil, dataset.Settings{}, apierrors.PageNotFoundError(title)
	}
	return page.Table(), page.Settings(), nil
}

// Populations returns the read-only population reference.
func (s *DataService) Populations() population.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populations
}
