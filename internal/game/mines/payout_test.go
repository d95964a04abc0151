package mines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultRow = []int64{100, 125, 150, 175, 200, 225, 250}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable(nil, nil)
	assert.Error(t, err, "empty default row")

	_, err = NewTable([]int64{100, 150, 125}, nil)
	assert.Error(t, err, "decreasing row")

	_, err = NewTable([]int64{90, 100}, nil)
	assert.Error(t, err, "row starting below baseline")

	_, err = NewTable(defaultRow, map[int][]int64{3: {150, 125}})
	assert.Error(t, err, "decreasing override row")

	_, err = NewTable(defaultRow, map[int][]int64{3: {110, 140, 200}})
	assert.NoError(t, err)
}

func TestMultiplierProgression(t *testing.T) {
	table, err := NewTable(defaultRow, nil)
	require.NoError(t, err)

	assert.Equal(t, Baseline, table.Multiplier(2, 0), "no reveals yet")
	assert.Equal(t, int64(100), table.Multiplier(2, 1))
	assert.Equal(t, int64(125), table.Multiplier(2, 2))
	assert.Equal(t, int64(150), table.Multiplier(2, 3))
	assert.Equal(t, int64(250), table.Multiplier(2, 7))
}

func TestMultiplierClampsPastRowEnd(t *testing.T) {
	table, err := NewTable(defaultRow, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(250), table.Multiplier(2, 8))
	assert.Equal(t, int64(250), table.Multiplier(2, 23))
}

func TestMultiplierUsesOverrideRow(t *testing.T) {
	table, err := NewTable(defaultRow, map[int][]int64{
		5: {120, 160, 240},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(120), table.Multiplier(5, 1))
	assert.Equal(t, int64(240), table.Multiplier(5, 3))
	assert.Equal(t, int64(240), table.Multiplier(5, 10), "override row clamps too")
	assert.Equal(t, int64(125), table.Multiplier(4, 2), "other counts keep the default row")
	assert.Equal(t, []int{5}, table.MineCounts())
}

func TestFormatMultiplier(t *testing.T) {
	assert.Equal(t, "1.00", FormatMultiplier(100))
	assert.Equal(t, "1.25", FormatMultiplier(125))
	assert.Equal(t, "2.50", FormatMultiplier(250))
	assert.Equal(t, "10.05", FormatMultiplier(1005))
}
