package dashboard

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Layout runs callbacks once pending layout work has settled, so charts are
// measured against their final container size.
type Layout interface {
	AfterLayout(fn func())
}

// LayoutFunc adapts a function to Layout.
type LayoutFunc func(fn func())

func (f LayoutFunc) AfterLayout(fn func()) { f(fn) }

// Immediate is a Layout that runs callbacks synchronously.
var Immediate Layout = LayoutFunc(func(fn func()) { fn() })

// Elements reports whether an element id exists in the rendered page.
type Elements interface {
	Exists(id string) bool
}

type allElements struct{}

func (allElements) Exists(string) bool { return true }

// Session owns a built page, its tab state and its chart registry, and
// renders charts in response to page events. A Session is driven from a
// single event loop and is not safe for concurrent use.
type Session struct {
	page     *Page
	tabs     *Tabs
	registry *Registry
	factory  ChartFactory
	layout   Layout
	elements Elements
	logger   *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithLayout(l Layout) SessionOption {
	return func(s *Session) { s.layout = l }
}

func WithElements(e Elements) SessionOption {
	return func(s *Session) { s.elements = e }
}

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRegistry(r *Registry) SessionOption {
	return func(s *Session) { s.registry = r }
}

// NewSession binds page to factory. Without options callbacks run
// immediately and every element is assumed present.
func NewSession(page *Page, factory ChartFactory, opts ...SessionOption) *Session {
	s := &Session{
		page:     page,
		tabs:     NewTabs(page.TabIDs()...),
		registry: NewRegistry(),
		factory:  factory,
		layout:   Immediate,
		elements: allElements{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Page() *Page         { return s.page }
func (s *Session) Tabs() *Tabs         { return s.tabs }
func (s *Session) Registry() *Registry { return s.registry }

// Start renders every chart once layout has settled.
func (s *Session) Start() {
	s.layout.AfterLayout(func() {
		_ = s.RenderAll()
	})
}

// RenderAll renders each chart section with its current column selection.
// A failing section is logged and does not stop the others.
func (s *Session) RenderAll() error {
	var errs []error
	for _, sec := range s.page.Sections() {
		if !sec.HasChart() {
			continue
		}
		if err := s.render(sec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render (re)draws the chart of one section.
func (s *Session) Render(sectionID string) error {
	sec, err := s.section(sectionID)
	if err != nil {
		return err
	}
	return s.render(sec)
}

func (s *Session) render(sec *Section) error {
	for _, id := range []string{sec.TableID(), sec.CanvasID(), sec.TitleID()} {
		if !s.elements.Exists(id) {
			err := &RenderError{Section: sec.ID, Err: fmt.Errorf("%w: %s", ErrMissingElement, id)}
			s.logger.Error("required elements not found", zap.String("section", sec.ID), zap.String("element", id))
			return err
		}
	}

	cfg, err := BuildChart(sec.Dataset, sec.SelectedColumn)
	if err != nil {
		s.logger.Error("build chart failed", zap.String("section", sec.ID), zap.Error(err))
		return &RenderError{Section: sec.ID, Err: err}
	}

	canvas := sec.CanvasID()
	s.registry.Destroy(canvas)
	chart, err := s.factory.NewChart(canvas, cfg)
	if err != nil {
		s.logger.Error("create chart failed", zap.String("section", sec.ID), zap.Error(err))
		return &RenderError{Section: sec.ID, Err: err}
	}
	s.registry.Put(canvas, chart)
	s.logger.Debug("chart created",
		zap.String("canvas", canvas),
		zap.Stringer("kind", sec.Kind),
		zap.Int("series", len(cfg.Data.Datasets)),
	)
	return nil
}

// SelectColumn changes a bar section's plotted column and redraws it.
// AllColumns plots every column.
func (s *Session) SelectColumn(sectionID string, column int) error {
	sec, err := s.section(sectionID)
	if err != nil {
		return err
	}
	if sec.Kind != KindBar {
		return &RenderError{Section: sec.ID, Err: fmt.Errorf("column selection on %s chart: %w", sec.Kind, ErrColumnOutOfRange)}
	}
	if column < 0 || column >= len(sec.Dataset.Columns) {
		return &RenderError{Section: sec.ID, Err: fmt.Errorf("column %d: %w", column, ErrColumnOutOfRange)}
	}
	s.logger.Debug("column selected", zap.String("section", sec.ID), zap.Int("column", column))
	sec.SelectedColumn = column
	return s.render(sec)
}

// SetTableVisible records the table toggle state.
func (s *Session) SetTableVisible(sectionID string, visible bool) error {
	sec, err := s.section(sectionID)
	if err != nil {
		return err
	}
	sec.TableVisible = visible
	if sec.Controls != nil {
		sec.Controls.ShowTable = visible
	}
	return nil
}

// SetChartVisible records the chart toggle state. Revealing a chart resizes
// it after layout, since it may have been drawn while hidden.
func (s *Session) SetChartVisible(sectionID string, visible bool) error {
	sec, err := s.section(sectionID)
	if err != nil {
		return err
	}
	if !sec.HasChart() {
		return &RenderError{Section: sec.ID, Err: ErrNoChart}
	}
	sec.ChartVisible = visible
	if sec.Controls != nil {
		sec.Controls.ShowChart = visible
	}
	if visible {
		canvas := sec.CanvasID()
		s.layout.AfterLayout(func() {
			s.registry.Resize(canvas)
		})
	}
	return nil
}

// SwitchTab activates tabID and resizes its charts after layout.
func (s *Session) SwitchTab(tabID string) error {
	if err := s.tabs.Activate(tabID); err != nil {
		s.logger.Warn("tab switch rejected", zap.String("tab", tabID), zap.Error(err))
		return err
	}
	var canvases []string
	for _, t := range s.page.Tabs {
		t.Active = t.ID == tabID
		if !t.Active {
			continue
		}
		for _, sec := range t.Sections {
			if sec.HasChart() {
				canvases = append(canvases, sec.CanvasID())
			}
		}
	}
	s.layout.AfterLayout(func() {
		s.registry.Resize(canvases...)
	})
	return nil
}

// Resize resizes every chart, e.g. after the window changed size.
func (s *Session) Resize() {
	s.registry.ResizeAll()
}

// Close destroys all charts.
func (s *Session) Close() {
	s.registry.Close()
}

func (s *Session) section(id string) (*Section, error) {
	sec, ok := s.page.Section(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, id)
	}
	return sec, nil
}
