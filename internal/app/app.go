// Package app wires configuration, logging, services, and the HTTP
// server into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"covidview/internal/config"
	"covidview/internal/dataset"
	apierrors "covidview/internal/errors"
	"covidview/internal/exporter"
	"covidview/internal/infrastructure"
	custommw "covidview/internal/middleware"
	"covidview/internal/services"
	handlers "covidview/internal/transport/http"
)

const serviceName = "covidview"

// Application is the assembled server.
type Application struct {
	Config      *config.Config
	Paths       *config.Paths
	Logger      *slog.Logger
	Router      *chi.Mux
	Server      *http.Server
	DataService *services.DataService

	shutdownTracing func(context.Context) error
}

// exportAdapter joins the CSV and XLSX exporters behind the transport's
// export interface.
type exportAdapter struct {
	csv  *exporter.CSVWriter
	xlsx *exporter.XLSXExporter
}

func (a exportAdapter) ExportCSV(fileName string, t *dataset.Table, s dataset.Settings) (string, error) {
	return a.csv.WriteTable(fileName, t, s)
}

func (a exportAdapter) ExportXLSX(fileName, title string, t *dataset.Table) (string, error) {
	return a.xlsx.ExportTable(fileName, title, t)
}

// NewApplication loads configuration and assembles the server.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths := config.NewPaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	shutdownTracing, err := infrastructure.InitTracing(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", serviceName),
		slog.Int("port", cfg.Server.Port),
		slog.String("tables_dir", paths.TablesDir))

	dataService := services.NewDataService(paths, logger)
	errorHandler := apierrors.NewErrorHandler(logger)
	export := exportAdapter{
		csv:  exporter.NewCSVWriter(paths),
		xlsx: exporter.NewXLSXExporter(paths),
	}
	dataHandler := handlers.NewDataHandler(dataService, export, logger, errorHandler)

	app := &Application{
		Config:          cfg,
		Paths:           paths,
		Logger:          logger,
		DataService:     dataService,
		shutdownTracing: shutdownTracing,
	}
	app.Router = app.buildRouter(dataHandler, errorHandler)
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) buildRouter(dataHandler *handlers.DataHandler, errorHandler *apierrors.ErrorHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recovery(errorHandler))
	r.Use(custommw.Tracing(serviceName))
	r.Use(custommw.NewMetrics(prometheus.DefaultRegisterer).Middleware)
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(custommw.RateLimit(rl.RPS, rl.Burst, errorHandler))
	}

	r.Mount("/api", dataHandler.Routes())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]interface{}{
			"status": "ok",
			"pages":  len(a.DataService.Pages()),
		})
	})

	return r
}

// Run loads the data set and serves until the context is cancelled,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if err := a.DataService.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading data set: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(shutdownCtx); err != nil {
			a.Logger.Warn("trace exporter shutdown failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
