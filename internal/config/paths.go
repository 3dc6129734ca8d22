package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the single source of truth for file locations: input tables,
// the population reference, generated reports, and logs.
//
// Directory layout relative to the base directory:
//
//	tables/        comment-annotated CSV tables, one page each
//	state_info/    Population_US.csv and other reference data
//	reports/       exported CSV and XLSX files
//	logs/          application logs
type Paths struct {
	BaseDir      string
	TablesDir    string
	StateInfoDir string
	ReportsDir   string
	LogsDir      string

	PopulationFile string
}

// PopulationFileName is the well-known population reference file.
const PopulationFileName = "Population_US.csv"

// NewPaths resolves the configured layout. An empty BaseDir falls back
// to the executable directory so the application behaves the same
// wherever it is launched from.
func NewPaths(cfg PathsConfig) *Paths {
	base := cfg.BaseDir
	if base == "" {
		base = executableDir()
	}
	resolve := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}

	p := &Paths{
		BaseDir:      base,
		TablesDir:    resolve(cfg.TablesDir, "tables"),
		StateInfoDir: resolve(cfg.StateInfoDir, "state_info"),
		ReportsDir:   resolve(cfg.ReportsDir, "reports"),
		LogsDir:      resolve(cfg.LogsDir, "logs"),
	}
	p.PopulationFile = filepath.Join(p.StateInfoDir, PopulationFileName)
	return p
}

// EnsureDirectories creates every directory the application writes to.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.TablesDir, p.StateInfoDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// TablePath returns the location of a named table file.
func (p *Paths) TablePath(name string) string {
	return filepath.Join(p.TablesDir, name)
}

// ReportPath returns the location of a named report file.
func (p *Paths) ReportPath(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// LogPath returns the location of a named log file.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}
