package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingFactory records chart creation and checks that a canvas never
// holds two live charts.
type recordingFactory struct {
	t       *testing.T
	live    map[string]*fakeChart
	created []*fakeChart
	fail    map[string]error
}

func newRecordingFactory(t *testing.T) *recordingFactory {
	return &recordingFactory{t: t, live: make(map[string]*fakeChart), fail: make(map[string]error)}
}

func (f *recordingFactory) NewChart(canvasID string, cfg ChartConfig) (Chart, error) {
	if err := f.fail[canvasID]; err != nil {
		return nil, err
	}
	if prev, ok := f.live[canvasID]; ok {
		require.True(f.t, prev.destroyed, "canvas %s still has a live chart", canvasID)
	}
	c := &fakeChart{canvas: canvasID, cfg: cfg}
	f.live[canvasID] = c
	f.created = append(f.created, c)
	return c, nil
}

// queuedLayout holds callbacks until flushed.
type queuedLayout struct {
	pending []func()
}

func (l *queuedLayout) AfterLayout(fn func()) { l.pending = append(l.pending, fn) }

func (l *queuedLayout) flush() {
	p := l.pending
	l.pending = nil
	for _, fn := range p {
		fn()
	}
}

// missingElements reports every id except the listed ones as present.
type missingElements map[string]bool

func (m missingElements) Exists(id string) bool { return !m[id] }

func TestSessionStartRendersAllCharts(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	layout := &queuedLayout{}
	s := NewSession(buildSamplePage(t), factory, WithLayout(layout))

	s.Start()
	require.Empty(t, factory.created)
	layout.flush()

	require.Len(t, factory.created, 4)
	require.Equal(t, 4, s.Registry().Len())
	_, ok := s.Registry().Get("chart-Sales_Report-raw_rows_table")
	require.False(t, ok)

	bar, ok := s.Registry().Get("chart-Sales_Report-monthly_bar")
	require.True(t, ok)
	require.Len(t, bar.(*fakeChart).cfg.Data.Datasets, 1)
}

func TestSessionSelectColumnReplacesChart(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	s := NewSession(buildSamplePage(t), factory)
	require.NoError(t, s.RenderAll())

	const id = "Sales_Report-monthly_bar"
	first, _ := s.Registry().Get("chart-" + id)

	require.NoError(t, s.SelectColumn(id, AllColumns))
	require.True(t, first.(*fakeChart).destroyed)

	current, _ := s.Registry().Get("chart-" + id)
	require.Len(t, current.(*fakeChart).cfg.Data.Datasets, 2)
	require.Equal(t, 4, s.Registry().Len())

	require.NoError(t, s.SelectColumn(id, 2))
	sec, _ := s.Page().Section(id)
	require.Equal(t, 2, sec.SelectedColumn)

	require.ErrorIs(t, s.SelectColumn(id, 3), ErrColumnOutOfRange)
	require.Equal(t, 2, sec.SelectedColumn)
	require.ErrorIs(t, s.SelectColumn("Sales_Report-share_stacked", 1), ErrColumnOutOfRange)
	require.ErrorIs(t, s.SelectColumn("nope", 1), ErrUnknownSection)
}

func TestSessionMissingElementSkipsSection(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	missing := missingElements{"title-Sales_Report-trend_line": true}
	s := NewSession(buildSamplePage(t), factory, WithElements(missing))

	err := s.RenderAll()
	require.ErrorIs(t, err, ErrMissingElement)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	require.Equal(t, "Sales_Report-trend_line", renderErr.Section)
	require.Len(t, factory.created, 3)
}

func TestSessionFactoryFailureIsReported(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	boom := errors.New("no canvas context")
	factory.fail["chart-Other-single_bar"] = boom
	s := NewSession(buildSamplePage(t), factory)

	require.ErrorIs(t, s.RenderAll(), boom)
	require.Equal(t, 3, s.Registry().Len())
}

func TestSessionToggles(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	layout := &queuedLayout{}
	s := NewSession(buildSamplePage(t), factory, WithLayout(layout))
	require.NoError(t, s.RenderAll())

	const id = "Sales_Report-share_stacked"
	require.NoError(t, s.SetTableVisible(id, true))
	sec, _ := s.Page().Section(id)
	require.True(t, sec.TableVisible)
	require.True(t, sec.Controls.ShowTable)

	require.NoError(t, s.SetChartVisible(id, false))
	require.Empty(t, layout.pending)
	require.NoError(t, s.SetChartVisible(id, true))
	require.Len(t, layout.pending, 1)

	chart, _ := s.Registry().Get(sec.CanvasID())
	require.Zero(t, chart.(*fakeChart).resized)
	layout.flush()
	require.Equal(t, 1, chart.(*fakeChart).resized)

	require.ErrorIs(t, s.SetChartVisible("Sales_Report-raw_rows_table", true), ErrNoChart)
}

func TestSessionSwitchTabResizesOnlyThatTab(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	layout := &queuedLayout{}
	s := NewSession(buildSamplePage(t), factory, WithLayout(layout))
	require.NoError(t, s.RenderAll())

	require.NoError(t, s.SwitchTab("Other"))
	require.Equal(t, "Other", s.Tabs().Active())
	require.False(t, s.Page().Tabs[0].Active)
	require.True(t, s.Page().Tabs[1].Active)

	layout.flush()
	for _, c := range factory.created {
		if c.canvas == "chart-Other-single_bar" {
			require.Equal(t, 1, c.resized)
			continue
		}
		require.Zero(t, c.resized, c.canvas)
	}

	require.ErrorIs(t, s.SwitchTab("Missing"), ErrUnknownTab)
	require.Equal(t, "Other", s.Tabs().Active())
}

func TestSessionCloseDestroysCharts(t *testing.T) {
	t.Parallel()

	factory := newRecordingFactory(t)
	s := NewSession(buildSamplePage(t), factory)
	require.NoError(t, s.RenderAll())

	s.Resize()
	s.Close()
	for _, c := range factory.created {
		require.Equal(t, 1, c.resized)
		require.True(t, c.destroyed)
	}
	require.Zero(t, s.Registry().Len())
}

func TestSessionWithRegistryReplacesStaleCharts(t *testing.T) {
	t.Parallel()

	shared := NewRegistry()
	stale := &fakeChart{}
	shared.Put("chart-Sales_Report-monthly_bar", stale)

	factory := newRecordingFactory(t)
	s := NewSession(buildSamplePage(t), factory, WithRegistry(shared))
	require.Same(t, shared, s.Registry())

	s.Start()
	require.True(t, stale.destroyed)
	require.Equal(t, len(factory.created), shared.Len())

	got, ok := shared.Get("chart-Sales_Report-monthly_bar")
	require.True(t, ok)
	require.NotSame(t, stale, got)
}
