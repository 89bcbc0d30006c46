package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	doc, err := dashboard.ParseDocument(strings.NewReader(salesDocument))
	require.NoError(t, err)

	s := Summarize("sales", doc)
	require.Equal(t, "sales", s.Name)
	require.Equal(t, 4, s.TotalDatasets)
	require.Equal(t, 5, s.TotalRows)
	require.Equal(t, map[dashboard.Kind]int{
		dashboard.KindBar:       1,
		dashboard.KindStacked:   1,
		dashboard.KindTableOnly: 1,
		dashboard.KindLine:      1,
	}, s.Kinds)

	require.Len(t, s.Categories, 2)
	sales := s.Categories[0]
	require.Equal(t, "Sales", sales.TabID)
	require.Equal(t, "monthly", sales.Datasets[0].Title)
	require.Equal(t, 2, sales.Datasets[0].Series)
	require.Zero(t, sales.Datasets[2].Series, "table-only datasets plot nothing")

	require.Equal(t, []DatasetCount{
		{Dataset: "Sales/monthly_bar", Rows: 2},
		{Dataset: "Operations/uptime_line", Rows: 1},
		{Dataset: "Sales/raw_table", Rows: 1},
		{Dataset: "Sales/share_stacked", Rows: 1},
	}, s.Largest)
}

func TestTopN(t *testing.T) {
	t.Parallel()

	got := topN(map[string]int{"a": 1, "b": 3, "c": 3, "d": 2}, 3)
	require.Equal(t, []DatasetCount{{"b", 3}, {"c", 3}, {"d", 2}}, got)
	require.Empty(t, topN(nil, 3))
}

func TestWriteSummaryText(t *testing.T) {
	t.Parallel()

	doc, err := dashboard.ParseDocument(strings.NewReader(`{"Field Ops": {"visits_line": [{"d": "Mon", "n": 1}]}}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeSummaryText(&buf, Summarize("ops", doc)))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "ops: 1 datasets, 1 rows\n"))
	require.Contains(t, out, "[Field Ops] (tab Field_Ops)")
	require.Contains(t, out, `title="visits"`)
}

func TestInspectCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "sales.json", salesDocument)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", "--json", dir + "/sales.json"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), `"total_datasets": 4`)
	require.Contains(t, out.String(), `"stacked": 1`)
}
