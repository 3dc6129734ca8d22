// Package http contains the chi HTTP handlers for the dataset API.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"covidview/internal/dataset"
	apierrors "covidview/internal/errors"
	"covidview/internal/services"
)

// DataServiceInterface is the service surface the handler needs.
type DataServiceInterface interface {
	Pages() []services.PageInfo
	Locations() []string
	ActiveLocations() []string
	SetActiveLocations(names []string) []string
	View() services.View
	UpdateView(u services.ViewUpdate) services.View
	Series(title string, req services.SeriesRequest) (*services.SeriesResult, error)
	PageData(title string) (*dataset.Table, dataset.Settings, error)
}

// Exporter is the export surface the handler needs.
type Exporter interface {
	ExportCSV(fileName string, t *dataset.Table, s dataset.Settings) (string, error)
	ExportXLSX(fileName, title string, t *dataset.Table) (string, error)
}

// DataHandler handles dataset HTTP requests with RFC 7807 errors.
type DataHandler struct {
	service      DataServiceInterface
	exporter     Exporter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
}

// NewDataHandler creates a new data handler.
func NewDataHandler(service DataServiceInterface, exporter Exporter, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		exporter:     exporter,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
	}
}

// Routes returns the dataset routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/pages", h.GetPages)
	r.Route("/pages/{title}", func(r chi.Router) {
		r.Use(h.PageCtx)
		r.Get("/series", h.GetSeries)
		r.Post("/export", h.ExportPage)
	})

	r.Get("/locations", h.GetLocations)
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.PutSelection)
	r.Get("/view", h.GetView)
	r.Put("/view", h.PutView)
	r.Get("/daterange", h.GetDateRange)

	return r
}

// PageCtx validates the title parameter.
func (h *DataHandler) PageCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title := chi.URLParam(r, "title")
		if strings.TrimSpace(title) == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("title", "Page title is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPages handles GET /pages.
func (h *DataHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"pages": h.service.Pages(),
	})
}

// GetLocations handles GET /locations.
func (h *DataHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"locations": h.service.Locations(),
	})
}

// GetSelection handles GET /selection.
func (h *DataHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"active": h.service.ActiveLocations(),
	})
}

// PutSelection handles PUT /selection. Unknown names are silently
// dropped; the resulting selection is returned.
func (h *DataHandler) PutSelection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active []string `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"active": h.service.SetActiveLocations(body.Active),
	})
}

// GetView handles GET /view.
func (h *DataHandler) GetView(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.View())
}

// PutView handles PUT /view with a partial update body.
func (h *DataHandler) PutView(w http.ResponseWriter, r *http.Request) {
	var update services.ViewUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}
	render.JSON(w, r, h.service.UpdateView(update))
}

// GetDateRange handles GET /daterange.
func (h *DataHandler) GetDateRange(w http.ResponseWriter, r *http.Request) {
	view := h.service.View()
	render.JSON(w, r, map[string]interface{}{
		"min_date":   view.MinDate,
		"max_date":   view.MaxDate,
		"start_date": view.StartDate,
	})
}

// seriesParams are the validated GET /series query parameters.
type seriesParams struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// GetSeries handles GET /pages/{title}/series. Query parameters:
// locations (comma-separated, default active selection), delta,
// per_capita, log (toggle overrides), start, end (date range).
func (h *DataHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	q := r.URL.Query()

	params := seriesParams{Start: q.Get("start"), End: q.Get("end")}
	if err := h.validate.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("start/end", "dates must be YYYY-MM-DD"))
		return
	}

	req := services.SeriesRequest{}
	if q.Has("locations") {
		req.Locations = splitLocations(q.Get("locations"))
	}
	for name, dst := range map[string]**bool{
		"delta":      &req.Delta,
		"per_capita": &req.PerCapita,
		"log":        &req.LogScale,
	} {
		if !q.Has(name) {
			continue
		}
		b, err := strconv.ParseBool(q.Get(name))
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(name, fmt.Sprintf("invalid boolean %q", q.Get(name))))
			return
		}
		*dst = &b
	}
	if params.Start != "" {
		req.Start, _ = time.Parse("2006-01-02", params.Start)
	}
	if params.End != "" {
		req.End, _ = time.Parse("2006-01-02", params.End)
	}

	result, err := h.service.Series(title, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// exportParams are the validated POST /export query parameters.
type exportParams struct {
	Format string `validate:"required,oneof=csv xlsx"`
}

// ExportPage handles POST /pages/{title}/export?format=csv|xlsx and
// responds with the written file path.
func (h *DataHandler) ExportPage(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")

	params := exportParams{Format: r.URL.Query().Get("format")}
	if err := h.validate.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "format must be csv or xlsx"))
		return
	}

	table, settings, err := h.service.PageData(title)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	fileName := strings.ReplaceAll(title, " ", "_") + "." + params.Format
	var path string
	switch params.Format {
	case "csv":
		path, err = h.exporter.ExportCSV(fileName, table, settings)
	case "xlsx":
		path, err = h.exporter.ExportXLSX(fileName, title, table)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "page exported",
		slog.String("title", title),
		slog.String("format", params.Format),
		slog.String("path", path))
	render.JSON(w, r, map[string]interface{}{
		"title":  title,
		"format": params.Format,
		"path":   path,
	})
}

// splitLocations parses the comma-separated locations parameter. An
// explicitly empty value means an empty selection, not the default.
func splitLocations(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
