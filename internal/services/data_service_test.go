package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidview/internal/config"
	"covidview/internal/dataset"
	apierrors "covidview/internal/errors"
	"covidview/internal/pages"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths := config.NewPaths(config.PathsConfig{
		BaseDir:      t.TempDir(),
		TablesDir:    "tables",
		StateInfoDir: "state_info",
		ReportsDir:   "reports",
		LogsDir:      "logs",
	})
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func buildPage(t *testing.T, title string, start string, values map[string][]float64) *pages.Page {
	t.Helper()
	var n int
	for _, v := range values {
		n = len(v)
		break
	}
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = day(start).AddDate(0, 0, i)
	}
	table, err := dataset.NewTable(dates)
	require.NoError(t, err)
	for name, v := range values {
		require.NoError(t, table.AddColumn(name, v))
	}
	s := dataset.DefaultSettings()
	s.Title = title
	s.DeltaAllowed = true
	s.PerCapitaAllowed = true
	return pages.New(table, s)
}

func TestLoadAllReadsTablesAndPopulation(t *testing.T) {
	paths := testPaths(t)

	table := "&title:,Cases,\n&ylabel:,Cases,\ndate,Texas,Ohio\n2020-03-01,1,2\n2020-03-02,3,4\n"
	require.NoError(t, os.WriteFile(paths.TablePath("Cases.csv"), []byte(table), 0644))
	pop := "Province_State,Population\nTexas,1000000\nOhio,2000000\n"
	require.NoError(t, os.WriteFile(paths.PopulationFile, []byte(pop), 0644))

	svc := NewDataService(paths, testLogger())
	require.NoError(t, svc.LoadAll(context.Background()))

	infos := svc.Pages()
	require.Len(t, infos, 1)
	assert.Equal(t, "Cases", infos[0].Title)
	assert.Equal(t, 2, infos[0].Rows)
	assert.Equal(t, []string{"Ohio", "Texas"}, svc.Locations())

	texasPop, ok := svc.Populations().Lookup("Texas")
	require.True(t, ok)
	assert.Equal(t, 1000000.0, texasPop)
}

func TestLoadAllToleratesMissingPopulation(t *testing.T) {
	paths := testPaths(t)
	svc := NewDataService(paths, testLogger())
	require.NoError(t, svc.LoadAll(context.Background()))
	assert.Empty(t, svc.Pages())
}

func TestLoadFilesOrderIsDeterministic(t *testing.T) {
	paths := testPaths(t)
	for _, name := range []string{"B_Second", "A_First"} {
		body := "&title:," + name + ",\ndate,Texas\n2020-03-01,1\n"
		require.NoError(t, os.WriteFile(paths.TablePath(name+".csv"), []byte(body), 0644))
	}

	svc := NewDataService(paths, testLogger())
	require.NoError(t, svc.LoadAll(context.Background()))

	infos := svc.Pages()
	require.Len(t, infos, 2)
	assert.Equal(t, "A_First", infos[0].Title)
	assert.Equal(t, "B_Second", infos[1].Title)
}

func TestLoadFilesPropagatesReadErrors(t *testing.T) {
	paths := testPaths(t)
	bad := filepath.Join(paths.TablesDir, "Bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("&log_allowed:,maybe,\ndate,Texas\n2020-03-01,1\n"), 0644))

	svc := NewDataService(paths, testLogger())
	err := svc.LoadFiles(context.Background(), []string{bad})
	require.Error(t, err)
	var malformed *dataset.MalformedMetadataError
	assert.ErrorAs(t, err, &malformed)
}

func TestSeriesUsesViewAndOverrides(t *testing.T) {
	svc := NewDataService(testPaths(t), testLogger())
	svc.AddPage(buildPage(t, "Cases", "2020-03-01", map[string][]float64{
		"Texas": {1, 2, 3, 4},
		"Ohio":  {10, 20, 30, 40},
	}))

	result, err := svc.Series("Cases", SeriesRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Cases", result.Title)
	require.Len(t, result.Dates, 4)
	assert.Equal(t, "2020-03-01", result.Dates[0])
	require.Len(t, result.Columns, 2)

	// raw view, first Texas value present
	var texas SeriesColumn
	for _, c := range result.Columns {
		if c.Name == "Texas" {
			texas = c
		}
	}
	require.NotNil(t, texas.Values)
	require.NotNil(t, texas.Values[0])
	assert.Equal(t, 1.0, *texas.Values[0])

	// delta override: too few points for the smoothing window, all nil
	deltaOn := true
	result, err = svc.Series("Cases", SeriesRequest{Delta: &deltaOn})
	require.NoError(t, err)
	assert.True(t, result.Context.Delta)
	for _, c := range result.Columns {
		for _, v := range c.Values {
			assert.Nil(t, v)
		}
	}
}

func TestSeriesLocationSelection(t *testing.T) {
	svc := NewDataService(testPaths(t), testLogger())
	svc.AddPage(buildPage(t, "Cases", "2020-03-01", map[string][]float64{
		"Texas": {1, 2},
		"Ohio":  {3, 4},
	}))

	result, err := svc.Series("Cases", SeriesRequest{Locations: []string{"Ohio"}})
	require.NoError(t, err)
	require.Len(t, result.Columns, 1)
	assert.Equal(t, "Ohio", result.Columns[0].Name)

	// explicit empty selection is empty, not the default
	result, err = svc.Series("Cases", SeriesRequest{Locations: []string{}})
	require.NoError(t, err)
	assert.Empty(t, result.Columns)

	// unknown locations contribute nothing
	result, err = svc.Series("Cases", SeriesRequest{Locations: []string{"Atlantis"}})
	require.NoError(t, err)
	assert.Empty(t, result.Columns)
}

func TestSeriesUnknownPage(t *testing.T) {
	svc := NewDataService(testPaths(t), testLogger())
	_, err := svc.Series("Nope", SeriesRequest{})
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestUpdateViewPartial(t *testing.T) {
	svc := NewDataService(testPaths(t), testLogger())
	svc.AddPage(buildPage(t, "Cases", "2020-03-01", map[string][]float64{"Texas": {1, 2, 3}}))

	on := true
	view := svc.UpdateView(ViewUpdate{Delta: &on})
	assert.True(t, view.Delta)
	assert.False(t, view.LogScale)
	assert.False(t, view.PerCapita)

	// start date clamps to the collection minimum
	early := day("2019-01-01")
	view = svc.UpdateView(ViewUpdate{StartDate: &early})
	assert.Equal(t, day("2020-03-01"), view.StartDate)

	mid := day("2020-03-02")
	view = svc.UpdateView(ViewUpdate{StartDate: &mid})
	assert.Equal(t, mid, view.StartDate)
	assert.Equal(t, day("2020-03-03"), view.MaxDate)
}

func TestSetActiveLocations(t *testing.T) {
	svc := NewDataService(testPaths(t), testLogger())
	svc.AddPage(buildPage(t, "Cases", "2020-03-01", map[string][]float64{
		"Texas": {1},
		"Ohio":  {2},
	}))

	assert.Equal(t, []string{"Ohio", "Texas"}, svc.ActiveLocations())
	assert.Equal(t, []string{"Ohio"}, svc.SetActiveLocations([]string{"Ohio", "Atlantis"}))
}

func TestPageData(t *testing.T) {
	svc := NewDataService(testPaths(t), testLogger())
	svc.AddPage(buildPage(t, "Cases", "2020-03-01", map[string][]float64{"Texas": {1, 2}}))

	table, settings, err := svc.PageData("Cases")
	require.NoError(t, err)
	assert.Equal(t, "Cases", settings.Title)
	assert.Equal(t, 2, table.Len())

	_, _, err = svc.PageData("Nope")
	require.Error(t, err)
}
