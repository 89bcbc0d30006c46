package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
	"github.com/community-scripts/dataset-dashboard/internal/observability"
)

//go:embed public
var publicFS embed.FS

const (
	listCacheKey = "documents:list"
	listCacheTTL = time.Minute

	wasmBinary = "dashboard.wasm"
	wasmExec   = "wasm_exec.js"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func dataCacheKey(name string) string    { return "data:" + name }
func summaryCacheKey(name string) string { return "summary:" + name }

func documentCacheKeys(name string) []string {
	return []string{dataCacheKey(name), summaryCacheKey(name)}
}

type server struct {
	cfg       Config
	store     *DocumentStore
	cache     *Cache
	notes     *NotesRenderer
	templates *template.Template
	logger    *zap.Logger
	limiter   *RateLimiter

	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	exports        atomic.Int64
	exportsLimited atomic.Int64
}

func newServer(cfg Config, store *DocumentStore, cache *Cache, logger *zap.Logger) (*server, error) {
	tmpl, err := template.ParseFS(publicFS, "public/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &server{
		cfg:       cfg,
		store:     store,
		cache:     cache,
		notes:     NewNotesRenderer(),
		templates: tmpl,
		logger:    observability.OrNop(logger),
		limiter:   NewRateLimiter(cfg.ExportRateLimitRPM, cfg.ExportRateBurst),
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLoggerMiddleware(s.logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	// Workbook exports are not bounded by the request timeout.
	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Get("/", s.handleIndex)
		r.Get("/d/{name}", s.handleDocumentPage)
		r.Get("/data/{file}", s.handleData)
		r.Get("/api/documents", s.handleList)
		r.Get("/api/documents/{name}/summary", s.handleSummary)
	})
	// Exports are rate limited per client IP.
	r.With(rateLimit(s.limiter, s.onExportLimited)).
		Get("/api/documents/{name}/export.xlsx", s.handleExport)

	r.Get("/static/"+wasmBinary, s.serveWasmAsset(wasmBinary))
	r.Get("/static/"+wasmExec, s.serveWasmAsset(wasmExec))
	static, _ := fs.Sub(publicFS, "public/static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"cache":  s.cache.Backend(),
	}
	code := http.StatusOK
	if _, err := s.store.List(); err != nil {
		status["status"] = "degraded"
		status["documents"] = "unreadable"
		code = http.StatusServiceUnavailable
	} else {
		status["documents"] = "ok"
	}
	if s.cfg.EnableRedis {
		if err := s.cache.Ping(ctx); err != nil || s.cache.Backend() != "redis" {
			status["status"] = "degraded"
			status["redis"] = "disconnected"
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "connected"
		}
	}
	writeJSON(w, code, status)
}

type indexPage struct {
	Title     string
	Documents []DocumentInfo
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List()
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, r, http.StatusOK, "index.html", indexPage{Title: s.cfg.PageTitle, Documents: docs})
}

type documentPage struct {
	Title     string
	Name      string
	DataURL   string
	ExportURL string
	Notes     template.HTML
	LogLevel  string
}

type errorPage struct {
	Title   string
	Name    string
	Message string
}

func (s *server) handleDocumentPage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.store.Load(name); err != nil {
		var docErr *dashboard.DocumentError
		switch {
		case errors.As(err, &docErr):
			s.renderPage(w, r, http.StatusUnprocessableEntity, "error.html",
				errorPage{Title: s.cfg.PageTitle, Name: name, Message: docErr.Message})
		case errors.Is(err, dashboard.ErrEmptyDocument):
			s.renderPage(w, r, http.StatusUnprocessableEntity, "error.html",
				errorPage{Title: s.cfg.PageTitle, Name: name, Message: "The document holds no datasets."})
		case errors.Is(err, ErrMalformedDocument):
			s.renderPage(w, r, http.StatusUnprocessableEntity, "error.html",
				errorPage{Title: s.cfg.PageTitle, Name: name, Message: "The document is not valid JSON."})
		case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrInvalidName):
			http.NotFound(w, r)
		default:
			s.logger.Error("load document failed", zap.String("document", name), zap.Error(err))
			s.renderPage(w, r, http.StatusInternalServerError, "error.html",
				errorPage{Title: s.cfg.PageTitle, Name: name, Message: "The document could not be read."})
		}
		return
	}

	page := documentPage{
		Title:     s.cfg.PageTitle + " - " + name,
		Name:      name,
		DataURL:   "/data/" + name + documentExt,
		ExportURL: "/api/documents/" + name + "/export.xlsx",
		LogLevel:  s.cfg.LogLevel,
	}
	if src, ok := s.store.Notes(name); ok {
		notes, err := s.notes.Render(src)
		if err != nil {
			s.logger.Warn("render notes failed", zap.String("document", name), zap.Error(err))
		} else {
			page.Notes = notes
		}
	}
	s.renderPage(w, r, http.StatusOK, "dashboard.html", page)
}

// handleData serves a document's bytes, cached with stale-while-revalidate.
func (s *server) handleData(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if filepath.Ext(file) != documentExt {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimSuffix(file, documentExt)
	key := dataCacheKey(name)
	ctx := r.Context()

	var data json.RawMessage
	if s.cfg.CacheEnabled && s.cache.Get(ctx, key, &data) {
		s.cacheHits.Add(1)
		w.Header().Set("X-Cache", "HIT")
		if s.cache.IsStale(ctx, key) {
			w.Header().Set("X-Cache", "STALE")
			s.refreshInBackground(key, func() (any, error) { return s.rawDocument(name) })
		}
		writeRawJSON(w, data)
		return
	}

	raw, err := s.rawDocument(name)
	if err != nil {
		s.writeDocumentError(w, name, err)
		return
	}
	if s.cfg.CacheEnabled {
		s.cacheMisses.Add(1)
		if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, raw)
}

// rawDocument reads a document and checks it is well-formed JSON, so it can
// be cached as a raw message.
func (s *server) rawDocument(name string) (json.RawMessage, error) {
	raw, err := s.store.Raw(name)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s: %w", name, ErrMalformedDocument)
	}
	return json.RawMessage(raw), nil
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var docs []DocumentInfo
	if s.cfg.CacheEnabled && s.cache.Get(ctx, listCacheKey, &docs) {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, docs)
		return
	}
	docs, err := s.store.List()
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list documents"})
		return
	}
	if docs == nil {
		docs = []DocumentInfo{}
	}
	if s.cfg.CacheEnabled {
		_ = s.cache.Set(ctx, listCacheKey, docs, listCacheTTL)
	}
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, docs)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	key := summaryCacheKey(name)
	ctx := r.Context()

	var summary *DocumentSummary
	if s.cfg.CacheEnabled && s.cache.Get(ctx, key, &summary) {
		s.cacheHits.Add(1)
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, summary)
		return
	}
	doc, err := s.store.Load(name)
	if err != nil {
		s.writeDocumentError(w, name, err)
		return
	}
	summary = Summarize(name, doc)
	if s.cfg.CacheEnabled {
		s.cacheMisses.Add(1)
		_ = s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	}
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := s.store.Load(name)
	if err != nil {
		s.writeDocumentError(w, name, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, doc); err != nil {
		s.logger.Error("export failed", zap.String("document", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}
	s.exports.Add(1)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	_, _ = buf.WriteTo(w)
}

func (s *server) onExportLimited(key string) {
	s.exportsLimited.Add(1)
	s.logger.Warn("export rate limited", zap.String("client", key))
}

// handleMetrics writes Prometheus text format gauges for the documents on disk.
func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List()
	if err != nil {
		http.Error(w, "failed to read documents", http.StatusInternalServerError)
		return
	}

	kinds := make(map[string]int)
	var rows, broken int
	for _, d := range docs {
		doc, err := s.store.Load(d.Name)
		if err != nil {
			broken++
			continue
		}
		for k, n := range doc.CountByKind() {
			kinds[k.String()] += n
		}
		for _, c := range doc.Categories {
			for _, ds := range c.Datasets {
				rows += len(ds.Rows)
			}
		}
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP dashboard_documents Documents available\n")
	fmt.Fprintf(w, "# TYPE dashboard_documents gauge\n")
	fmt.Fprintf(w, "dashboard_documents %d\n\n", len(docs))
	fmt.Fprintf(w, "# HELP dashboard_documents_unreadable Documents that failed to parse\n")
	fmt.Fprintf(w, "# TYPE dashboard_documents_unreadable gauge\n")
	fmt.Fprintf(w, "dashboard_documents_unreadable %d\n\n", broken)
	fmt.Fprintf(w, "# HELP dashboard_datasets Datasets by rendering kind\n")
	fmt.Fprintf(w, "# TYPE dashboard_datasets gauge\n")
	for _, k := range names {
		fmt.Fprintf(w, "dashboard_datasets{kind=%q} %d\n", k, kinds[k])
	}
	fmt.Fprintf(w, "\n# HELP dashboard_rows Dataset rows across all documents\n")
	fmt.Fprintf(w, "# TYPE dashboard_rows gauge\n")
	fmt.Fprintf(w, "dashboard_rows %d\n\n", rows)
	fmt.Fprintf(w, "# HELP dashboard_cache_hits_total Cache hits for documents and summaries\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_hits_total counter\n")
	fmt.Fprintf(w, "dashboard_cache_hits_total %d\n\n", s.cacheHits.Load())
	fmt.Fprintf(w, "# HELP dashboard_cache_misses_total Cache misses for documents and summaries\n")
	fmt.Fprintf(w, "# TYPE dashboard_cache_misses_total counter\n")
	fmt.Fprintf(w, "dashboard_cache_misses_total %d\n\n", s.cacheMisses.Load())
	fmt.Fprintf(w, "# HELP dashboard_exports_total Workbooks exported\n")
	fmt.Fprintf(w, "# TYPE dashboard_exports_total counter\n")
	fmt.Fprintf(w, "dashboard_exports_total %d\n\n", s.exports.Load())
	fmt.Fprintf(w, "# HELP dashboard_exports_rate_limited_total Workbook exports rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE dashboard_exports_rate_limited_total counter\n")
	fmt.Fprintf(w, "dashboard_exports_rate_limited_total %d\n", s.exportsLimited.Load())
}

func (s *server) serveWasmAsset(file string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(s.cfg.WasmDir, file))
	}
}

// refreshInBackground recomputes a stale cache entry unless a refresh for
// key is already running.
func (s *server) refreshInBackground(key string, fetch func() (any, error)) {
	if !s.cache.TryStartRefresh(key) {
		return
	}
	go func() {
		defer s.cache.FinishRefresh(key)
		fresh, err := fetch()
		if err != nil {
			s.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.cache.Set(ctx, key, fresh, s.cfg.CacheTTL)
		s.logger.Debug("background refresh completed", zap.String("key", key))
	}()
}

func (s *server) writeDocumentError(w http.ResponseWriter, name string, err error) {
	var docErr *dashboard.DocumentError
	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
	case errors.As(err, &docErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": docErr.Message})
	case errors.Is(err, dashboard.ErrEmptyDocument):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "document holds no datasets"})
	case errors.Is(err, ErrMalformedDocument):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "document is not valid JSON"})
	default:
		s.logger.Error("document request failed", zap.String("document", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read document"})
	}
}

// renderPage executes an embedded template with the headers the dashboard
// pages are served with.
func (s *server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render template failed", zap.String("template", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Minimal security headers (no cookies anyway)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// runServe starts the HTTP server and the document watcher, and blocks until
// ctx is cancelled.
func runServe(ctx context.Context, cfg Config, logger *zap.Logger) error {
	store := NewDocumentStore(cfg.DocumentsDir, logger.Named("store"))
	cache := NewCache(CacheConfig{
		RedisURL:    cfg.RedisURL,
		EnableRedis: cfg.EnableRedis,
		DefaultTTL:  cfg.CacheTTL,
		Logger:      logger.Named("cache"),
	})
	defer cache.Close()

	srv, err := newServer(cfg, store, cache, logger)
	if err != nil {
		return err
	}

	watcher := NewWatcher(WatchConfig{
		Enabled:  cfg.WatchEnabled,
		Debounce: cfg.WatchDebounce,
	}, store, cache, logger.Named("watcher"))
	if cfg.CacheEnabled {
		go srv.warmupCaches(ctx)
		watcher.OnInvalidate = func(names []string) {
			go srv.warmupCaches(ctx, names...)
		}
	}
	go srv.limiter.cleanupLoop(ctx)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("document watcher not started", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("dashboard listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("documents", cfg.DocumentsDir),
		zap.String("cache", cache.Backend()),
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
