package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumericValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{json.Number("12.5"), 12.5, true},
		{3, 3, true},
		{2.25, 2.25, true},
		{" 7 ", 7, true},
		{"-1e3", -1000, true},
		{"12kg", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := NumericValue(tt.in)
		require.Equal(t, tt.ok, ok, "input %#v", tt.in)
		require.Equal(t, tt.want, got, "input %#v", tt.in)
	}
}

func TestCoerceFloat(t *testing.T) {
	t.Parallel()

	require.Equal(t, 12.0, CoerceFloat("12kg"))
	require.Equal(t, 0.5, CoerceFloat(" .5 units"))
	require.Equal(t, 0.0, CoerceFloat("n/a"))
	require.Equal(t, 0.0, CoerceFloat(nil))
	require.Equal(t, 0.0, CoerceFloat(false))
	require.Equal(t, 4.0, CoerceFloat(json.Number("4")))
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	require.Equal(t, "10.00", FormatCell(json.Number("10")))
	require.Equal(t, "3.14", FormatCell(3.14159))
	require.Equal(t, "2.50", FormatCell("2.5"))
	require.Equal(t, "Jan", FormatCell("Jan"))
	require.Equal(t, "", FormatCell(nil))
	require.Equal(t, "true", FormatCell(true))
	require.Equal(t, `[1,"a"]`, FormatCell([]any{json.Number("1"), "a"}))
	require.Equal(t, `{"k":"v"}`, FormatCell(map[string]any{"k": "v"}))
}

func TestFormatLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2024", FormatLabel(json.Number("2024")))
	require.Equal(t, "1.5", FormatLabel(1.5))
	require.Equal(t, "Jan", FormatLabel("Jan"))
	require.Equal(t, "", FormatLabel(nil))
}

func TestBuildTable(t *testing.T) {
	t.Parallel()

	ds := NewDataset("x_bar", []Row{
		{{"t", "Jan"}, {"v", json.Number("10")}, {"w", nil}},
		{{"v", json.Number("20.456")}, {"t", "Feb"}, {"extra", 1}},
		{{"t", "Mar"}},
	})
	table := BuildTable(ds)

	require.Equal(t, []string{"t", "v", "w"}, table.Headers)
	require.Len(t, table.Rows, 3)
	require.Equal(t, []string{"Jan", "10.00", ""}, table.Rows[0])
	require.Equal(t, []string{"Feb", "20.46", ""}, table.Rows[1])
	require.Equal(t, []string{"Mar", "", ""}, table.Rows[2])
}
