//go:build js && wasm

// Command dashboard-wasm renders a dataset document in the browser. The page
// names the document in <body data-json-file="...">; tabs, tables and
// Chart.js charts are built from it.
package main

import (
	"context"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
	"github.com/community-scripts/dataset-dashboard/internal/observability"
)

func main() {
	doc := js.Global().Get("document")
	body := doc.Get("body")
	dataset := body.Get("dataset")

	logger, err := observability.NewLoggerWithLevel(stringAttr(dataset, "logLevel"))
	if err != nil {
		js.Global().Get("console").Call("error", "init logger: "+err.Error())
		return
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.Named("dashboard")

	src := stringAttr(dataset, "jsonFile")
	if src == "" {
		logger.Error("no JSON file specified in data-json-file attribute")
		return
	}

	document, err := dashboard.NewLoader(logger).Load(context.Background(), src)
	if err != nil {
		return
	}
	page := dashboard.Build(document)

	d := newDOM(doc, logger)
	if err := d.mount(page); err != nil {
		logger.Error("mount page failed", zap.Error(err))
		return
	}

	locale := js.Global().Get("navigator").Get("language")
	factory, err := newChartJS(doc, dashboard.ParseNumberFormat(stringValue(locale)), logger)
	if err != nil {
		logger.Error("chart library unavailable", zap.Error(err))
		return
	}

	session := dashboard.NewSession(page, factory,
		dashboard.WithLayout(frameLayout{}),
		dashboard.WithElements(d),
		dashboard.WithLogger(logger),
	)
	d.bind(session)
	session.Start()

	logger.Info("dashboard ready",
		zap.String("source", src),
		zap.Int("tabs", len(page.Tabs)),
		zap.Int("sections", len(page.Sections())),
	)

	// Callbacks run on the JS event loop; keep the runtime alive for them.
	select {}
}

func stringAttr(v js.Value, name string) string {
	return stringValue(v.Get(name))
}

func stringValue(v js.Value) string {
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}
