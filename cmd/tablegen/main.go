// Command tablegen reshapes a raw wide-format CSV export (one row per
// locale, one column per date) into a commented, date-indexed table
// ready for the server, optionally extracting a population reference.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"covidview/internal/config"
	"covidview/internal/dataset"
	"covidview/internal/infrastructure"
	"covidview/internal/population"
	"covidview/internal/reshape"
)

func main() {
	in := flag.String("in", "", "raw wide-format csv to reshape (required)")
	out := flag.String("out", "", "output table file (required; relative names land in the tables directory)")
	group := flag.String("group", "Province_State", "column whose values become output columns")
	dropRows := flag.String("drop-rows", "Diamond Princess,Grand Princess", "comma-separated group values to discard")
	dropCols := flag.String("drop-cols", "UID,iso2,iso3,code3,FIPS,Country_Region,Lat,Long_,Combined_Key", "comma-separated metadata columns to ignore")
	popCol := flag.String("population-col", "", "column summed per group into the population reference (e.g. Population)")
	popOut := flag.String("population-out", "", "population reference output file (defaults to the state-info directory)")

	title := flag.String("title", "", "table title (defaults to the output file name)")
	ylabel := flag.String("ylabel", "", "vertical axis label")
	logAllowed := flag.Bool("log", false, "allow the log-scale view")
	deltaAllowed := flag.Bool("delta", false, "allow the daily-change view")
	perCapita := flag.Bool("per-capita", false, "allow the per-capita view")
	scaling := flag.Int("scaling", 0, "suggested per-capita scaling factor (e.g. 1000000)")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		defaults := config.Default()
		cfg = &defaults
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	paths := config.NewPaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	outPath := *out
	if !filepath.IsAbs(outPath) {
		outPath = paths.TablePath(outPath)
	}

	logger.Info("Starting table generation",
		slog.String("input", *in),
		slog.String("output", outPath),
		slog.String("group", *group))

	f, err := os.Open(*in)
	if err != nil {
		logger.Error("Failed to open input", "error", err)
		os.Exit(1)
	}
	result, err := reshape.Reshape(f, reshape.Options{
		GroupColumn:      *group,
		DropRows:         splitList(*dropRows),
		DropColumns:      splitList(*dropCols),
		PopulationColumn: *popCol,
	})
	f.Close()
	if err != nil {
		logger.Error("Reshape failed", "error", err)
		os.Exit(1)
	}

	settings := dataset.DefaultSettings()
	settings.Title = *title
	if settings.Title == "" {
		settings.Title = dataset.TitleFromPath(outPath)
	}
	settings.YLabel = *ylabel
	settings.LogAllowed = *logAllowed
	settings.DeltaAllowed = *deltaAllowed
	settings.PerCapitaAllowed = *perCapita
	settings.SuggestedScaling = *scaling

	if err := dataset.WriteFile(outPath, result.Table, settings); err != nil {
		logger.Error("Failed to write table", "error", err)
		os.Exit(1)
	}
	logger.Info("Table written",
		slog.String("path", outPath),
		slog.Int("rows", result.Table.Len()),
		slog.Int("columns", len(result.Table.Columns())))

	if *popCol != "" {
		target := *popOut
		if target == "" {
			target = paths.PopulationFile
		} else if !filepath.IsAbs(target) {
			target = filepath.Join(paths.StateInfoDir, target)
		}
		pf, err := os.Create(target)
		if err != nil {
			logger.Error("Failed to create population file", "error", err)
			os.Exit(1)
		}
		if err := population.Write(pf, result.Populations, result.Table.Columns()); err != nil {
			pf.Close()
			logger.Error("Failed to write population file", "error", err)
			os.Exit(1)
		}
		pf.Close()
		logger.Info("Population reference written",
			slog.String("path", target),
			slog.Int("locations", len(result.Populations)))
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
