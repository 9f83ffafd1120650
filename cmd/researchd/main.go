package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/productsense/research/api"
	"github.com/productsense/research/cache"
	"github.com/productsense/research/config"
	"github.com/productsense/research/extract"
	"github.com/productsense/research/fetch"
	"github.com/productsense/research/pipeline"
	"github.com/productsense/research/prose"
	"github.com/productsense/research/search"
	"github.com/productsense/research/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("researchd starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Initialise fetch engines ─────────────────────────────────
	// The browser is optional: with RESEARCH_MAX_PAGES=0 the service runs
	// HTTP-only, which is enough for static storefronts.
	var browser *fetch.Browser
	var browserEngine fetch.Engine
	if cfg.Browser.MaxPages > 0 {
		b, err := fetch.NewBrowser(cfg.Browser)
		if err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		browser = b
		browserEngine = fetch.NewRodEngine(b)
		defer browser.Close()
	} else {
		slog.Warn("browser disabled, running HTTP-only")
	}

	memory := fetch.NewDomainMemory(24 * time.Hour)
	defer memory.Stop()

	dispatcher := fetch.NewDispatcher(fetch.NewHTTPEngine(), browserEngine, memory, cfg.Pipeline.BrowserDomains)

	// ── 4. Initialise search backends ───────────────────────────────
	opts := search.Options{
		Denylist: cfg.Search.Denylist,
		Stealth:  cfg.Search.UseBrowser && browserEngine != nil,
	}
	var backends []search.Backend
	for _, name := range cfg.Search.BackendOrder {
		switch name {
		case "google":
			backends = append(backends, search.NewGoogle(dispatcher, opts))
		case "bing":
			backends = append(backends, search.NewBing(dispatcher, opts))
		default:
			slog.Warn("unknown search backend, skipping", "name", name)
		}
	}
	if len(backends) == 0 {
		slog.Error("no usable search backends configured")
		os.Exit(1)
	}
	searcher := search.NewChain(backends...)

	// ── 5. Assemble the pipeline ────────────────────────────────────
	p := pipeline.New(searcher, dispatcher, extract.NewExtractor(), cfg.Pipeline)

	// ── 5b. Record cache ────────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 5c. Storage sinks ───────────────────────────────────────────
	var sinks []store.Sink
	if cfg.Store.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := store.NewPostgresSink(ctx, cfg.Store.PostgresDSN)
		cancel()
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		sinks = append(sinks, pg)
		slog.Info("postgres sink enabled")
	}
	if cfg.Store.WebhookURL != "" {
		sinks = append(sinks, store.NewWebhookSink(cfg.Store.WebhookURL, cfg.Store.WebhookSecret, nil))
		slog.Info("webhook sink enabled", "url", cfg.Store.WebhookURL)
	}

	// ── 5d. Prose generation ────────────────────────────────────────
	var gen prose.Generator
	if cfg.Prose.Enabled && cfg.Prose.APIKey != "" {
		gen = prose.NewOpenAIGenerator(nil, cfg.Prose)
		slog.Info("prose generation enabled", "model", cfg.Prose.Model)
	}

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(api.Deps{
		Pipeline:  p,
		Browser:   browser,
		Cache:     cc,
		Sinks:     sinks,
		Prose:     gen,
		Config:    cfg,
		StartTime: startTime,
	})

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight research runs 10 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// browser.Close() runs via defer: drains page pool and kills Chrome.
	slog.Info("researchd stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
