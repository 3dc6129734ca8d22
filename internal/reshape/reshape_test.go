package reshape

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawExport = `UID,iso2,FIPS,Province_State,Country_Region,Population,1/22/20,1/23/20,1/24/20
84001001,US,1001.0,Alabama,US,55869,0,1,2
84001003,US,1003.0,Alabama,US,223234,1,1,3
84006001,US,6001.0,California,US,1671329,2,4,8
99999999,US,,Diamond Princess,US,0,10,20,30
`

func defaultOptions() Options {
	return Options{
		GroupColumn:      "Province_State",
		DropRows:         []string{"Diamond Princess", "Grand Princess"},
		DropColumns:      []string{"UID", "iso2", "FIPS", "Country_Region"},
		PopulationColumn: "Population",
	}
}

func TestReshape(t *testing.T) {
	result, err := Reshape(strings.NewReader(rawExport), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Alabama", "California"}, result.Table.Columns())
	require.Equal(t, 3, result.Table.Len())
	assert.Equal(t, time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC), result.Table.Dates()[0])

	alabama, ok := result.Table.Column("Alabama")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 5}, alabama)

	california, ok := result.Table.Column("California")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 4, 8}, california)
}

func TestReshapeExtractsPopulations(t *testing.T) {
	result, err := Reshape(strings.NewReader(rawExport), defaultOptions())
	require.NoError(t, err)

	require.NotNil(t, result.Populations)
	pop, ok := result.Populations.Lookup("Alabama")
	require.True(t, ok)
	assert.Equal(t, float64(55869+223234), pop)

	_, ok = result.Populations.Lookup("Diamond Princess")
	assert.False(t, ok, "dropped rows must not contribute population")
}

func TestReshapeWithoutPopulationColumn(t *testing.T) {
	opts := defaultOptions()
	opts.PopulationColumn = ""
	opts.DropColumns = append(opts.DropColumns, "Population")

	result, err := Reshape(strings.NewReader(rawExport), opts)
	require.NoError(t, err)
	assert.Nil(t, result.Populations)
}

func TestReshapeEmptyCellsCountAsZero(t *testing.T) {
	raw := "Province_State,1/22/20,1/23/20\nAlabama,,5\nAlabama,3,\n"
	result, err := Reshape(strings.NewReader(raw), Options{GroupColumn: "Province_State"})
	require.NoError(t, err)

	alabama, ok := result.Table.Column("Alabama")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 5}, alabama)
}

func TestReshapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		opts    Options
		wantErr string
	}{
		{
			name:    "missing group column",
			raw:     "State,1/22/20\nAlabama,1\n",
			opts:    Options{GroupColumn: "Province_State"},
			wantErr: "not found in header",
		},
		{
			name:    "unrecognized column",
			raw:     "Province_State,Mystery,1/22/20\nAlabama,x,1\n",
			opts:    Options{GroupColumn: "Province_State"},
			wantErr: "unrecognized column",
		},
		{
			name:    "no date columns",
			raw:     "Province_State\nAlabama\n",
			opts:    Options{GroupColumn: "Province_State"},
			wantErr: "no date columns",
		},
		{
			name:    "bad numeric cell",
			raw:     "Province_State,1/22/20\nAlabama,abc\n",
			opts:    Options{GroupColumn: "Province_State"},
			wantErr: "invalid number",
		},
		{
			name:    "missing population column",
			raw:     "Province_State,1/22/20\nAlabama,1\n",
			opts:    Options{GroupColumn: "Province_State", PopulationColumn: "Population"},
			wantErr: `population column "Population" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reshape(strings.NewReader(tt.raw), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
