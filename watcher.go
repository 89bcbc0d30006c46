package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchConfig holds configuration for the document watcher
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration // quiet period before a burst of writes is applied
}

// Watcher invalidates cached documents when their files change on disk.
type Watcher struct {
	cfg    WatchConfig
	store  *DocumentStore
	cache  *Cache
	logger *zap.Logger

	pending map[string]bool
	// OnInvalidate, if set, is called with the names dropped by each flush.
	OnInvalidate func(names []string)
}

func NewWatcher(cfg WatchConfig, store *DocumentStore, cache *Cache, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	return &Watcher{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		logger:  logger,
		pending: make(map[string]bool),
	}
}

// Start begins watching the store directory until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.Enabled {
		w.logger.Info("document watcher disabled")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed creating file watcher: %w", err)
	}
	if err := fw.Add(w.store.Dir()); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", w.store.Dir(), err)
	}

	go w.loop(ctx, fw)
	w.logger.Info("document watcher started", zap.String("dir", w.store.Dir()), zap.Duration("debounce", w.cfg.Debounce))
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if w.handle(ev) {
				timer.Reset(w.cfg.Debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// handle records a relevant event and reports whether a flush is needed.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name, ok := w.store.NameFromPath(ev.Name)
	if !ok {
		return false
	}
	w.pending[name] = true
	return true
}

// flush invalidates every pending document.
func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	names := make([]string, 0, len(w.pending))
	for name := range w.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	w.pending = make(map[string]bool)

	var keys []string
	for _, name := range names {
		w.store.Invalidate(name)
		keys = append(keys, documentCacheKeys(name)...)
	}
	keys = append(keys, listCacheKey)
	if w.cache != nil {
		if err := w.cache.Delete(ctx, keys...); err != nil {
			w.logger.Warn("cache invalidation failed", zap.Strings("documents", names), zap.Error(err))
		}
	}
	w.logger.Info("documents changed", zap.Strings("documents", names))
	if w.OnInvalidate != nil {
		w.OnInvalidate(names)
	}
}
