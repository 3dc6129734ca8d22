package population

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWithHeader(t *testing.T) {
	content := "Province_State,Population\nAlabama,4903185\nAlaska,731545\n"
	table, err := Read(strings.NewReader(content))
	require.NoError(t, err)

	v, ok := table.Lookup("Alabama")
	require.True(t, ok)
	assert.Equal(t, 4903185.0, v)

	_, ok = table.Lookup("Narnia")
	assert.False(t, ok, "missing entries are not an error")
}

func TestReadWithoutHeader(t *testing.T) {
	content := "Alabama,4903185\n"
	table, err := Read(strings.NewReader(content))
	require.NoError(t, err)
	assert.Len(t, table, 1)
}

func TestReadRejectsBadValue(t *testing.T) {
	content := "Province_State,Population\nAlabama,many\n"
	_, err := Read(strings.NewReader(content))
	assert.ErrorContains(t, err, "invalid value")
}

func TestReadRejectsShortRow(t *testing.T) {
	_, err := Read(strings.NewReader("Alabama\n"))
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	table := Table{"Alabama": 4903185, "Alaska": 731545}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, table, []string{"Alabama", "Alaska", "Narnia"}))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, got)
}
