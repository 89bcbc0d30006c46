package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// warmupCaches fills the data and summary keys for names, or for every
// listed document when names is empty, and always refreshes the list key.
// It returns how many keys were written and how many documents failed to load.
func (s *server) warmupCaches(ctx context.Context, names ...string) (warmed, failed int) {
	if !s.cfg.CacheEnabled {
		return 0, 0
	}
	start := time.Now()

	docs, err := s.store.List()
	if err != nil {
		s.logger.Warn("cache warmup: list documents failed", zap.Error(err))
		return 0, 1
	}
	if docs == nil {
		docs = []DocumentInfo{}
	}
	if err := s.cache.Set(ctx, listCacheKey, docs, listCacheTTL); err != nil {
		failed++
	} else {
		warmed++
	}

	if len(names) == 0 {
		for _, d := range docs {
			names = append(names, d.Name)
		}
	}
	s.logger.Info("cache warmup starting", zap.Int("documents", len(names)))

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		raw, err := s.rawDocument(name)
		if err != nil {
			s.logger.Debug("cache warmup: skip data", zap.String("document", name), zap.Error(err))
			failed++
			continue
		}
		if err := s.cache.Set(ctx, dataCacheKey(name), raw, s.cfg.CacheTTL); err != nil {
			failed++
		} else {
			warmed++
		}

		doc, err := s.store.Load(name)
		if err != nil {
			s.logger.Debug("cache warmup: skip summary", zap.String("document", name), zap.Error(err))
			failed++
			continue
		}
		if err := s.cache.Set(ctx, summaryCacheKey(name), Summarize(name, doc), s.cfg.CacheTTL); err != nil {
			failed++
		} else {
			warmed++
		}
	}

	s.logger.Info("cache warmup complete",
		zap.Int("warmed", warmed),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
	return warmed, failed
}
