package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string
	PageTitle  string
	LogLevel   string

	// Documents
	DocumentsDir string // directory holding *.json documents and optional *.md notes
	WasmDir      string // directory holding dashboard.wasm and wasm_exec.js

	// Cache
	RedisURL     string
	EnableRedis  bool
	CacheTTL     time.Duration
	CacheEnabled bool

	// Watcher
	WatchEnabled  bool
	WatchDebounce time.Duration

	// Workbook export budget per client IP; 0 disables limiting
	ExportRateLimitRPM int
	ExportRateBurst    int

	RequestTimeout time.Duration
}

func loadConfig() Config {
	return Config{
		ListenAddr: env("LISTEN_ADDR", ":8080"),
		PageTitle:  env("PAGE_TITLE", "Dataset Dashboard"),
		LogLevel:   env("LOG_LEVEL", "info"),

		DocumentsDir: env("DOCUMENTS_DIR", "static"),
		WasmDir:      env("WASM_DIR", "build"),

		RedisURL:     env("REDIS_URL", ""),
		EnableRedis:  envBool("ENABLE_REDIS", false),
		CacheTTL:     time.Duration(envInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheEnabled: envBool("ENABLE_CACHE", true),

		WatchEnabled:  envBool("WATCH_ENABLED", true),
		WatchDebounce: time.Duration(envInt("WATCH_DEBOUNCE_MS", 250)) * time.Millisecond,

		ExportRateLimitRPM: envInt("EXPORT_RATE_LIMIT_RPM", 10),
		ExportRateBurst:    envInt("EXPORT_RATE_BURST", 5),

		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_MS", 30000)) * time.Millisecond,
	}
}

func env(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var i int
	_, _ = fmt.Sscanf(v, "%d", &i)
	if i == 0 && v != "0" {
		return def
	}
	return i
}
func envBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
