//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

var errNoChartJS = errors.New("global Chart constructor not found")

// chartJS creates Chart.js instances from dashboard chart configs.
type chartJS struct {
	doc    js.Value
	ctor   js.Value
	json   js.Value
	format dashboard.NumberFormat
	logger *zap.Logger
}

func newChartJS(doc js.Value, format dashboard.NumberFormat, logger *zap.Logger) (*chartJS, error) {
	ctor := js.Global().Get("Chart")
	if ctor.Type() != js.TypeFunction {
		return nil, errNoChartJS
	}
	return &chartJS{
		doc:    doc,
		ctor:   ctor,
		json:   js.Global().Get("JSON"),
		format: format,
		logger: logger.Named("chartjs"),
	}, nil
}

// jsChart is a live Chart.js instance plus the Go callbacks its options hold.
type jsChart struct {
	v     js.Value
	funcs []js.Func
}

func (c *jsChart) Resize() {
	c.v.Call("resize")
}

func (c *jsChart) Destroy() {
	c.v.Call("destroy")
	for _, f := range c.funcs {
		f.Release()
	}
	c.funcs = nil
}

func (f *chartJS) NewChart(canvasID string, cfg dashboard.ChartConfig) (dashboard.Chart, error) {
	canvas := f.doc.Call("getElementById", canvasID)
	if canvas.IsNull() {
		return nil, fmt.Errorf("%w: %s", dashboard.ErrMissingElement, canvasID)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode chart config: %w", err)
	}

	c := &jsChart{}
	err = catchJS(func() {
		opts := f.json.Call("parse", string(raw))
		c.funcs = f.attachCallbacks(opts, cfg.Format)
		c.v = f.ctor.New(canvas, opts)
	})
	if err != nil {
		for _, fn := range c.funcs {
			fn.Release()
		}
		f.logger.Warn("chart constructor threw", zap.String("canvas", canvasID), zap.Error(err))
		return nil, fmt.Errorf("new Chart on %s: %w", canvasID, err)
	}
	return c, nil
}

// attachCallbacks installs the tick and tooltip formatters named by format.
func (f *chartJS) attachCallbacks(cfg js.Value, format dashboard.ChartFormat) []js.Func {
	var funcs []js.Func
	opts := cfg.Get("options")

	if format.YTicks != dashboard.TickPlain {
		kind := format.YTicks
		tick := js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) == 0 {
				return ""
			}
			value := args[0].Float()
			return f.format.Format(kind, value, maxTick(args))
		})
		opts.Get("scales").Get("y").Get("ticks").Set("callback", tick)
		funcs = append(funcs, tick)
	}

	if format.Tooltip != dashboard.TooltipPlain {
		kind := format.Tooltip
		label := js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) == 0 {
				return ""
			}
			ctx := args[0]
			name := stringValue(ctx.Get("dataset").Get("label"))
			y := ctx.Get("parsed").Get("y")
			if y.IsNull() || y.IsUndefined() {
				return name
			}
			if kind == dashboard.TooltipPercent {
				return f.format.PercentTooltip(name, y.Float())
			}
			return f.format.Tooltip(name, y.Float())
		})
		plugins := opts.Get("plugins")
		tooltip := js.Global().Get("Object").New()
		callbacks := js.Global().Get("Object").New()
		callbacks.Set("label", label)
		tooltip.Set("callbacks", callbacks)
		plugins.Set("tooltip", tooltip)
		funcs = append(funcs, label)
	}
	return funcs
}

// maxTick returns the largest tick value from a Chart.js tick callback's
// (value, index, ticks) arguments.
func maxTick(args []js.Value) float64 {
	if len(args) < 3 || args[2].Type() != js.TypeObject {
		return 0
	}
	ticks := args[2]
	var (
		m    float64
		seen bool
	)
	for i := 0; i < ticks.Length(); i++ {
		v := ticks.Index(i).Get("value")
		if v.Type() != js.TypeNumber {
			continue
		}
		if f := v.Float(); !seen || f > m {
			m, seen = f, true
		}
	}
	return m
}

// catchJS converts a thrown JS exception into an error.
func catchJS(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if jsErr, ok := r.(js.Error); ok {
			err = jsErr
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
