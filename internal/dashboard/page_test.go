package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `{
	"Sales Report": {
		"monthly_bar": [{"t": "Jan", "v": 10, "w": 5}, {"t": "Feb", "v": 20, "w": 6}],
		"share_stacked": [{"t": "Jan", "a": 1, "b": 3}],
		"trend_line": [{"t": "Jan", "a": 1}],
		"raw rows_table": [{"t": "Jan", "v": 1}],
		"debug_ignore": [{"t": "Jan", "v": 1}]
	},
	"Other": {
		"single_bar": [{"t": "Jan"}]
	},
	"Empty": {}
}`

func buildSamplePage(t *testing.T) *Page {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(samplePage))
	require.NoError(t, err)
	return Build(doc)
}

func TestBuildTabs(t *testing.T) {
	t.Parallel()

	p := buildSamplePage(t)
	require.Equal(t, []string{"Sales_Report", "Other", "Empty"}, p.TabIDs())
	require.True(t, p.Tabs[0].Active)
	require.False(t, p.Tabs[1].Active)
	require.Equal(t, "Sales Report", p.Tabs[0].Label)
	require.Empty(t, p.Tabs[2].Sections)

	tab, ok := p.Tab("Other")
	require.True(t, ok)
	require.Len(t, tab.Sections, 1)
	_, ok = p.Tab("missing")
	require.False(t, ok)
}

func TestBuildSections(t *testing.T) {
	t.Parallel()

	p := buildSamplePage(t)
	require.Len(t, p.Sections(), 5)

	_, ok := p.Section("Sales_Report-debug_ignore")
	require.False(t, ok)

	bar, ok := p.Section("Sales_Report-monthly_bar")
	require.True(t, ok)
	require.Equal(t, "monthly", bar.Title)
	require.Equal(t, "chart-Sales_Report-monthly_bar", bar.CanvasID())
	require.Equal(t, "table-Sales_Report-monthly_bar", bar.TableID())
	require.Equal(t, "title-Sales_Report-monthly_bar", bar.TitleID())
	require.Equal(t, "control-Sales_Report-monthly_bar", bar.ControlID())
	require.Equal(t, "chart-container-Sales_Report-monthly_bar", bar.ChartContainerID())
	require.True(t, bar.ChartVisible)
	require.False(t, bar.TableVisible)
	require.Equal(t, 1, bar.SelectedColumn)
	require.Equal(t, []ColumnOption{
		{Value: AllColumns, Label: AllColumnsLabel},
		{Value: 1, Label: "v"},
		{Value: 2, Label: "w"},
	}, bar.Controls.Columns)
	require.Len(t, bar.Table.Rows, 2)

	stacked, _ := p.Section("Sales_Report-share_stacked")
	require.NotNil(t, stacked.Controls)
	require.Nil(t, stacked.Controls.Columns)

	table, ok := p.Section("Sales_Report-raw_rows_table")
	require.True(t, ok)
	require.Equal(t, "raw rows", table.Title)
	require.Nil(t, table.Controls)
	require.True(t, table.TableVisible)
	require.False(t, table.HasChart())

	single, _ := p.Section("Other-single_bar")
	require.Equal(t, AllColumns, single.SelectedColumn)
	require.Len(t, single.Controls.Columns, 1)
}

func TestBuildDisambiguatesCollidingIDs(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument(strings.NewReader(`{
		"A": {
			"x y_bar": [{"t": "Jan", "v": 1}],
			"x_y_bar": [{"t": "Jan", "v": 2}]
		},
		"B C": {"one_bar": [{"t": "Jan", "v": 1}]},
		"B_C": {"one_bar": [{"t": "Jan", "v": 1}]}
	}`))
	require.NoError(t, err)
	p := Build(doc)

	require.Equal(t, []string{"A", "B_C", "B_C-2"}, p.TabIDs())

	var ids, canvases []string
	for _, sec := range p.Sections() {
		ids = append(ids, sec.ID)
		canvases = append(canvases, sec.CanvasID())
	}
	require.Equal(t, []string{"A-x_y_bar", "A-x_y_bar-2", "B_C-one_bar", "B_C-2-one_bar"}, ids)
	require.Equal(t, "chart-A-x_y_bar-2", canvases[1])

	second, ok := p.Section("A-x_y_bar-2")
	require.True(t, ok)
	require.Equal(t, "A", second.TabID)
	require.Equal(t, "x_y_bar", second.Dataset.Key)
}
