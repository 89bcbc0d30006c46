package dashboard

import (
	"fmt"
	"strings"
)

// Page is the element tree built from a document: one tab per category and
// one section per displayable dataset.
type Page struct {
	Tabs []*Tab

	sections map[string]*Section
	order    []*Section
}

// Tab is a category's button and panel. ID doubles as the panel element id.
type Tab struct {
	ID       string
	Label    string
	Active   bool
	Sections []*Section
}

// Section holds the elements and view state of one dataset.
type Section struct {
	// ID is "{tab}-{key}" with spaces replaced; element ids derive from it.
	ID    string
	TabID string
	Title string
	Kind  Kind

	Dataset  Dataset
	Table    Table
	Controls *Controls

	TableVisible   bool
	ChartVisible   bool
	SelectedColumn int
}

// Controls describes the toggles and column selector above a chart.
type Controls struct {
	ShowTable bool
	ShowChart bool
	// Columns is nil for stacked and line charts.
	Columns []ColumnOption
}

// ColumnOption is one entry of the column selector.
type ColumnOption struct {
	Value int
	Label string
}

// AllColumnsLabel labels the selector entry that plots every column.
const AllColumnsLabel = "All columns"

// Element id prefixes.
const (
	prefixTitle          = "title-"
	prefixControl        = "control-"
	prefixChartContainer = "chart-container-"
	prefixCanvas         = "chart-"
	prefixTable          = "table-"
)

func (s *Section) TitleID() string          { return prefixTitle + s.ID }
func (s *Section) ControlID() string        { return prefixControl + s.ID }
func (s *Section) ChartContainerID() string { return prefixChartContainer + s.ID }
func (s *Section) CanvasID() string         { return prefixCanvas + s.ID }
func (s *Section) TableID() string          { return prefixTable + s.ID }

// HasChart reports whether the section renders a chart.
func (s *Section) HasChart() bool {
	return s.Kind.HasChart()
}

// ElementID turns a category or dataset name into an id fragment.
func ElementID(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// Build lays out doc. The first category's tab is active; empty and ignored
// datasets get no section.
func Build(doc *Document) *Page {
	p := &Page{sections: make(map[string]*Section)}
	tabIDs := make(map[string]bool)
	for i, cat := range doc.Categories {
		tab := &Tab{
			ID:     uniqueID(ElementID(cat.Name), func(id string) bool { return tabIDs[id] }),
			Label:  cat.Name,
			Active: i == 0,
		}
		for _, ds := range cat.Datasets {
			if ds.Kind == KindIgnored || len(ds.Rows) == 0 {
				continue
			}
			sec := newSection(tab.ID, ds)
			sec.ID = uniqueID(sec.ID, func(id string) bool { _, ok := p.sections[id]; return ok })
			tab.Sections = append(tab.Sections, sec)
			p.sections[sec.ID] = sec
			p.order = append(p.order, sec)
		}
		tabIDs[tab.ID] = true
		p.Tabs = append(p.Tabs, tab)
	}
	return p
}

// uniqueID suffixes base with -2, -3, ... until taken reports false. Names
// differing only in spaces versus underscores map to the same fragment.
func uniqueID(base string, taken func(string) bool) string {
	id := base
	for n := 2; taken(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func newSection(tabID string, ds Dataset) *Section {
	sec := &Section{
		ID:      tabID + "-" + ElementID(ds.Key),
		TabID:   tabID,
		Title:   ds.Title,
		Kind:    ds.Kind,
		Dataset: ds,
		Table:   BuildTable(ds),
	}
	if ds.Kind == KindTableOnly {
		sec.TableVisible = true
		return sec
	}

	sec.ChartVisible = true
	sec.Controls = &Controls{ShowTable: false, ShowChart: true}
	if ds.Kind == KindBar {
		opts := []ColumnOption{{Value: AllColumns, Label: AllColumnsLabel}}
		for i, col := range ds.Columns {
			if i == 0 {
				continue
			}
			opts = append(opts, ColumnOption{Value: i, Label: col})
		}
		sec.Controls.Columns = opts
		if len(ds.Columns) > 1 {
			sec.SelectedColumn = 1
		}
	}
	return sec
}

// Section returns the section with the given id.
func (p *Page) Section(id string) (*Section, bool) {
	s, ok := p.sections[id]
	return s, ok
}

// Sections returns all sections in document order.
func (p *Page) Sections() []*Section {
	return p.order
}

// Tab returns the tab with the given id.
func (p *Page) Tab(id string) (*Tab, bool) {
	for _, t := range p.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TabIDs lists tab ids in order.
func (p *Page) TabIDs() []string {
	ids := make([]string, len(p.Tabs))
	for i, t := range p.Tabs {
		ids[i] = t.ID
	}
	return ids
}
