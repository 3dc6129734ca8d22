package transform

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidview/internal/dataset"
	"covidview/internal/population"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func makeTable(t *testing.T, start string, columns map[string][]float64) *dataset.Table {
	t.Helper()
	n := 0
	for _, v := range columns {
		n = len(v)
		break
	}
	dates := make([]time.Time, n)
	d := day(start)
	for i := range dates {
		dates[i] = d
		d = d.AddDate(0, 0, 1)
	}
	table, err := dataset.NewTable(dates)
	require.NoError(t, err)
	for name, values := range columns {
		require.NoError(t, table.AddColumn(name, values))
	}
	return table
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestApplyPerCapitaScaling(t *testing.T) {
	// Ten daily rows of constant 100 with populations 1e6 and 2e6 and a
	// scaling divisor of 1e6 come out as constant 100 and 50.
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": constant(100, 10),
		"B": constant(100, 10),
	})
	pop := population.Table{"A": 1_000_000, "B": 2_000_000}
	s := dataset.Settings{PerCapitaAllowed: true, SuggestedScaling: 1_000_000}

	out := Apply(table, []string{"A", "B"}, s, Context{PerCapita: true}, pop)

	require.Equal(t, 10, out.Len())
	for i := 0; i < out.Len(); i++ {
		assert.Equal(t, 100.0, out.Value(i, "A"))
		assert.Equal(t, 50.0, out.Value(i, "B"))
	}
}

func TestApplyPerCapitaWithoutScalingDivisor(t *testing.T) {
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": constant(100, 3),
	})
	pop := population.Table{"A": 1000}
	s := dataset.Settings{PerCapitaAllowed: true}

	out := Apply(table, []string{"A"}, s, Context{PerCapita: true}, pop)
	assert.Equal(t, 0.1, out.Value(0, "A"))
}

func TestApplyPerCapitaMissingPopulationYieldsNaN(t *testing.T) {
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": constant(100, 3),
	})
	s := dataset.Settings{PerCapitaAllowed: true}

	out := Apply(table, []string{"A"}, s, Context{PerCapita: true}, population.Table{})
	for i := 0; i < out.Len(); i++ {
		assert.True(t, math.IsNaN(out.Value(i, "A")))
	}
}

func TestApplyDelta(t *testing.T) {
	// Strictly increasing integers 1..10: the first difference is NaN
	// followed by nine ones, and the smoothed series is defined only
	// once seven differences are available.
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})
	s := dataset.Settings{DeltaAllowed: true}

	out := Apply(table, []string{"A"}, s, Context{Delta: true}, nil)

	col, ok := out.Column("A")
	require.True(t, ok)
	require.Len(t, col, 10)
	for i := 0; i < 7; i++ {
		assert.True(t, math.IsNaN(col[i]), "row %d should be NaN before the window fills", i)
	}
	for i := 7; i < 10; i++ {
		assert.InDelta(t, 1.0, col[i], 1e-12, "constant daily change smooths to itself at row %d", i)
	}
}

func TestApplyDeltaNotIdempotent(t *testing.T) {
	values := []float64{1, 4, 9, 16, 25, 36, 49, 64, 81, 100, 121, 144, 169, 196}
	table := makeTable(t, "2020-03-01", map[string][]float64{"A": values})
	s := dataset.Settings{DeltaAllowed: true}
	ctx := Context{Delta: true}

	once := Apply(table, []string{"A"}, s, ctx, nil)
	twice := Apply(once, []string{"A"}, s, ctx, nil)

	onceCol, _ := once.Column("A")
	twiceCol, _ := twice.Column("A")

	differs := false
	for i := range onceCol {
		a, b := onceCol[i], twiceCol[i]
		if math.IsNaN(a) != math.IsNaN(b) || (!math.IsNaN(a) && a != b) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "a second delta application must change the series")
}

func TestApplyDeltaBeforePerCapita(t *testing.T) {
	// 14 rows growing by 70/day; population 7 and scaling unset: the
	// smoothed delta is 70, and per-capita divides it to 10.
	values := make([]float64, 14)
	for i := range values {
		values[i] = float64(i) * 70
	}
	table := makeTable(t, "2020-03-01", map[string][]float64{"A": values})
	pop := population.Table{"A": 7}
	s := dataset.Settings{DeltaAllowed: true, PerCapitaAllowed: true}

	out := Apply(table, []string{"A"}, s, Context{Delta: true, PerCapita: true}, pop)
	assert.InDelta(t, 10.0, out.Value(13, "A"), 1e-12)
}

func TestApplyRespectsAllowedFlags(t *testing.T) {
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": {1, 2, 3},
	})
	pop := population.Table{"A": 1}

	// Toggles requested but the page forbids both: data passes through.
	out := Apply(table, []string{"A"}, dataset.Settings{}, Context{Delta: true, PerCapita: true}, pop)
	assert.Equal(t, 1.0, out.Value(0, "A"))
	assert.Equal(t, 3.0, out.Value(2, "A"))
}

func TestApplyAbsentLocationIsEmpty(t *testing.T) {
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": {1, 2, 3},
	})

	out := Apply(table, []string{"Narnia"}, dataset.Settings{}, Context{}, nil)
	assert.Empty(t, out.Columns())
	assert.Equal(t, 3, out.Len())
}

func TestApplyDateRange(t *testing.T) {
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": {1, 2, 3, 4, 5},
	})

	ctx := Context{Start: day("2020-03-02"), End: day("2020-03-04")}
	out := Apply(table, []string{"A"}, dataset.Settings{}, ctx, nil)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, 2.0, out.Value(0, "A"))
	assert.Equal(t, 4.0, out.Value(2, "A"))
}

func TestApplyDoesNotMutateSource(t *testing.T) {
	table := makeTable(t, "2020-03-01", map[string][]float64{
		"A": {1, 2, 3, 4, 5, 6, 7, 8},
	})
	s := dataset.Settings{DeltaAllowed: true, PerCapitaAllowed: true}
	pop := population.Table{"A": 2}

	Apply(table, []string{"A"}, s, Context{Delta: true, PerCapita: true}, pop)

	for i := 0; i < 8; i++ {
		assert.Equal(t, float64(i+1), table.Value(i, "A"))
	}
}

func TestRollTriangularWeighting(t *testing.T) {
	// An impulse spreads as the normalized triangular weights.
	col := []float64{0, 0, 0, 16, 0, 0, 0, 0, 0, 0}
	rollTriangular(col)

	// Window sum is 4; the impulse sits at offset 3 of the first full
	// window, weight 1.0 of 4.0 total.
	assert.InDelta(t, 4.0, col[6], 1e-12)
	assert.InDelta(t, 3.0, col[7], 1e-12)
	assert.InDelta(t, 2.0, col[8], 1e-12)
	assert.InDelta(t, 1.0, col[9], 1e-12)
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(col[i]))
	}
}
