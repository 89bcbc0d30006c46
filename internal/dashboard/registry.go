package dashboard

import (
	"reflect"
	"sort"
)

// Chart is a live chart instance owned by the charting library.
type Chart interface {
	Resize()
	Destroy()
}

// ChartFactory creates a chart bound to the canvas element canvasID.
type ChartFactory interface {
	NewChart(canvasID string, cfg ChartConfig) (Chart, error)
}

// ChartFactoryFunc adapts a function to ChartFactory.
type ChartFactoryFunc func(canvasID string, cfg ChartConfig) (Chart, error)

func (f ChartFactoryFunc) NewChart(canvasID string, cfg ChartConfig) (Chart, error) {
	return f(canvasID, cfg)
}

// Registry maps canvas ids to their live charts for the lifetime of a page.
// It is not safe for concurrent use.
type Registry struct {
	charts map[string]Chart
}

func NewRegistry() *Registry {
	return &Registry{charts: make(map[string]Chart)}
}

// Get returns the chart drawn on canvasID.
func (r *Registry) Get(canvasID string) (Chart, bool) {
	c, ok := r.charts[canvasID]
	return c, ok
}

// Put stores c for canvasID, destroying any chart it replaces.
func (r *Registry) Put(canvasID string, c Chart) {
	if old, ok := r.charts[canvasID]; ok && !sameChart(old, c) {
		old.Destroy()
	}
	r.charts[canvasID] = c
}

// sameChart compares a and b without panicking on non-comparable dynamic
// types, which are never considered the same.
func sameChart(a, b Chart) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// Destroy destroys and forgets the chart on canvasID. It reports whether one existed.
func (r *Registry) Destroy(canvasID string) bool {
	c, ok := r.charts[canvasID]
	if !ok {
		return false
	}
	c.Destroy()
	delete(r.charts, canvasID)
	return true
}

// Resize resizes the charts on the given canvases; unknown ids are ignored.
func (r *Registry) Resize(canvasIDs ...string) int {
	n := 0
	for _, id := range canvasIDs {
		if c, ok := r.charts[id]; ok {
			c.Resize()
			n++
		}
	}
	return n
}

// ResizeAll resizes every registered chart.
func (r *Registry) ResizeAll() {
	for _, c := range r.charts {
		c.Resize()
	}
}

// IDs returns the registered canvas ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.charts))
	for id := range r.charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	return len(r.charts)
}

// Close destroys all charts.
func (r *Registry) Close() {
	for id, c := range r.charts {
		c.Destroy()
		delete(r.charts, id)
	}
}
