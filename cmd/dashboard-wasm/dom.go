//go:build js && wasm

package main

import (
	"errors"
	"strconv"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

// Container element ids expected in the shell page.
const (
	tabButtonsID  = "tabButtons"
	tabContentsID = "tabContents"
)

const (
	classActive = "active"
	displayNone = "none"
	displayShow = "block"
)

var errNoContainer = errors.New("tab containers not found")

// dom materializes a page model and routes element events to a session.
type dom struct {
	doc    js.Value
	logger *zap.Logger

	buttons  map[string]js.Value
	panels   map[string]js.Value
	sections []sectionNodes
	funcs    []js.Func
}

type sectionNodes struct {
	section        *dashboard.Section
	tableContainer js.Value
	chartContainer js.Value
	tableToggle    js.Value
	chartToggle    js.Value
	columnSelect   js.Value
}

func newDOM(doc js.Value, logger *zap.Logger) *dom {
	return &dom{
		doc:     doc,
		logger:  logger,
		buttons: make(map[string]js.Value),
		panels:  make(map[string]js.Value),
	}
}

// Exists implements dashboard.Elements.
func (d *dom) Exists(id string) bool {
	el := d.doc.Call("getElementById", id)
	return !el.IsNull() && !el.IsUndefined()
}

func (d *dom) mount(page *dashboard.Page) error {
	buttons := d.byID(tabButtonsID)
	contents := d.byID(tabContentsID)
	if buttons.IsNull() || contents.IsNull() {
		return errNoContainer
	}

	for _, tab := range page.Tabs {
		btn := d.create("button", "tab-button")
		btn.Call("setAttribute", "data-tab", tab.ID)
		btn.Set("textContent", tab.Label)
		buttons.Call("appendChild", btn)
		d.buttons[tab.ID] = btn

		panel := d.create("div", "tab-content")
		panel.Set("id", tab.ID)
		for _, sec := range tab.Sections {
			d.mountSection(panel, sec)
		}
		contents.Call("appendChild", panel)
		d.panels[tab.ID] = panel

		if tab.Active {
			btn.Get("classList").Call("add", classActive)
			panel.Get("classList").Call("add", classActive)
		}
	}
	return nil
}

func (d *dom) mountSection(panel js.Value, sec *dashboard.Section) {
	nodes := sectionNodes{section: sec}

	title := d.create("h3", "chart-title")
	title.Set("id", sec.TitleID())
	title.Set("textContent", sec.Title)
	panel.Call("appendChild", title)

	if c := sec.Controls; c != nil {
		area := d.create("div", "control-area")
		area.Set("id", sec.ControlID())

		nodes.tableToggle = d.checkbox(area, "table-toggle", " Show table", c.ShowTable)
		nodes.chartToggle = d.checkbox(area, "chart-toggle", " Show chart", c.ShowChart)

		if len(c.Columns) > 0 {
			sel := d.create("select", "column-select")
			for _, opt := range c.Columns {
				o := d.doc.Call("createElement", "option")
				o.Set("value", strconv.Itoa(opt.Value))
				o.Set("textContent", opt.Label)
				if opt.Value == sec.SelectedColumn {
					o.Set("selected", true)
				}
				sel.Call("appendChild", o)
			}
			area.Call("appendChild", sel)
			nodes.columnSelect = sel
		}
		panel.Call("appendChild", area)
	}

	if sec.HasChart() {
		container := d.create("div", "chart-container")
		container.Set("id", sec.ChartContainerID())
		canvas := d.doc.Call("createElement", "canvas")
		canvas.Set("id", sec.CanvasID())
		container.Call("appendChild", canvas)
		setDisplay(container, sec.ChartVisible)
		panel.Call("appendChild", container)
		nodes.chartContainer = container
	}

	tableContainer := d.create("div", "table-container")
	tableContainer.Call("appendChild", d.table(sec))
	setDisplay(tableContainer, sec.TableVisible)
	panel.Call("appendChild", tableContainer)
	nodes.tableContainer = tableContainer

	d.sections = append(d.sections, nodes)
}

func (d *dom) table(sec *dashboard.Section) js.Value {
	table := d.create("table", "data-table")
	table.Set("id", sec.TableID())

	thead := d.doc.Call("createElement", "thead")
	hr := d.doc.Call("createElement", "tr")
	for _, h := range sec.Table.Headers {
		th := d.doc.Call("createElement", "th")
		th.Set("textContent", h)
		hr.Call("appendChild", th)
	}
	thead.Call("appendChild", hr)
	table.Call("appendChild", thead)

	tbody := d.doc.Call("createElement", "tbody")
	for _, row := range sec.Table.Rows {
		tr := d.doc.Call("createElement", "tr")
		for _, cell := range row {
			td := d.doc.Call("createElement", "td")
			td.Set("textContent", cell)
			tr.Call("appendChild", td)
		}
		tbody.Call("appendChild", tr)
	}
	table.Call("appendChild", tbody)
	return table
}

func (d *dom) checkbox(parent js.Value, class, text string, checked bool) js.Value {
	label := d.doc.Call("createElement", "label")
	input := d.create("input", class)
	input.Set("type", "checkbox")
	input.Set("checked", checked)
	label.Call("appendChild", input)
	label.Call("appendChild", d.doc.Call("createTextNode", text))
	parent.Call("appendChild", label)
	return input
}

// bind registers the page's event listeners against s.
func (d *dom) bind(s *dashboard.Session) {
	for id, btn := range d.buttons {
		tabID := id
		d.listen(btn, "click", func(js.Value) {
			if err := s.SwitchTab(tabID); err != nil {
				return
			}
			for tid, b := range d.buttons {
				toggleClass(b, classActive, tid == tabID)
				toggleClass(d.panels[tid], classActive, tid == tabID)
			}
		})
	}

	for _, n := range d.sections {
		n := n
		id := n.section.ID
		if !n.tableToggle.IsUndefined() {
			d.listen(n.tableToggle, "change", func(ev js.Value) {
				visible := ev.Get("target").Get("checked").Bool()
				if err := s.SetTableVisible(id, visible); err != nil {
					d.logger.Error("toggle table failed", zap.String("section", id), zap.Error(err))
					return
				}
				setDisplay(n.tableContainer, visible)
			})
		}
		if !n.chartToggle.IsUndefined() {
			d.listen(n.chartToggle, "change", func(ev js.Value) {
				visible := ev.Get("target").Get("checked").Bool()
				setDisplay(n.chartContainer, visible)
				if err := s.SetChartVisible(id, visible); err != nil {
					d.logger.Error("toggle chart failed", zap.String("section", id), zap.Error(err))
				}
			})
		}
		if !n.columnSelect.IsUndefined() {
			d.listen(n.columnSelect, "change", func(ev js.Value) {
				raw := ev.Get("target").Get("value").String()
				col, err := strconv.Atoi(raw)
				if err != nil {
					d.logger.Error("invalid column value", zap.String("section", id), zap.String("value", raw))
					return
				}
				d.logger.Debug("column selected", zap.String("section", id), zap.Int("column", col))
				if err := s.SelectColumn(id, col); err != nil {
					d.logger.Error("select column failed", zap.String("section", id), zap.Error(err))
				}
			})
		}
	}

	d.listen(js.Global(), "resize", func(js.Value) {
		s.Resize()
	})
}

func (d *dom) listen(target js.Value, event string, fn func(ev js.Value)) {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ev := js.Undefined()
		if len(args) > 0 {
			ev = args[0]
		}
		fn(ev)
		return nil
	})
	d.funcs = append(d.funcs, f)
	target.Call("addEventListener", event, f)
}

func (d *dom) byID(id string) js.Value {
	return d.doc.Call("getElementById", id)
}

func (d *dom) create(tag, class string) js.Value {
	el := d.doc.Call("createElement", tag)
	el.Set("className", class)
	return el
}

func setDisplay(el js.Value, visible bool) {
	if el.IsUndefined() {
		return
	}
	if visible {
		el.Get("style").Set("display", displayShow)
		return
	}
	el.Get("style").Set("display", displayNone)
}

func toggleClass(el js.Value, class string, on bool) {
	if el.IsUndefined() {
		return
	}
	el.Get("classList").Call("toggle", class, on)
}
