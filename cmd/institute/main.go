// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/config"
	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/handler"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/logging"
	"github.com/olegiv/institute-cms/internal/middleware"
	"github.com/olegiv/institute-cms/internal/render"
	"github.com/olegiv/institute-cms/internal/scheduler"
	"github.com/olegiv/institute-cms/internal/search"
	"github.com/olegiv/institute-cms/internal/service"
	"github.com/olegiv/institute-cms/internal/session"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/version"
	"github.com/olegiv/institute-cms/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func buildInfo() version.Info {
	return version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
}

const (
	searchRateLimit = 5 // requests per second per IP
	searchBurst     = 10
	loginCleanup    = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "institute - institute website content server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_SESSION_SECRET     Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_DB_PATH            SQLite database path (default: ./data/institute.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_REDIS_URL          Redis URL for the page cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_SEARCH_INDEX_PATH  On-disk search index (default: in memory)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INSTITUTE_WEBHOOK_URLS       Comma-separated webhook endpoints (optional)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Println(buildInfo())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := buildInfo()

	logLevel := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the Event Log database
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedConfig{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
		}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}
	if err := store.SeedDemo(ctx, db, cfg.DemoMode); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}

	queries := store.New(db)
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Cache backend shared by the page cache and the principal loader
	cacheResult, err := cache.NewCacheWithInfo(cache.CacheConfig{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       cfg.CacheTTLDuration(),
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = cacheResult.Cache.Close() }()
	switch {
	case cacheResult.IsFallback:
		slog.Warn("cache initialized", "backend", cacheResult.BackendType, "note", "Redis unavailable, using fallback")
	case cfg.UseRedisCache():
		slog.Info("cache initialized", "backend", cacheResult.BackendType, "url", cache.SanitizeRedisURL(cfg.RedisURL))
	default:
		slog.Info("cache initialized", "backend", cacheResult.BackendType)
	}

	// ContentChanged fan-out
	hooks := hook.NewRegistry(logger)
	contentService := content.NewService(db, logger, content.WithPublisher(content.HookPublisher(hooks, logger)))

	pages := cache.NewPageCache(cacheResult.Cache, cfg.CacheTTLDuration(), logger)
	pages.Subscribe(hooks)

	renderer := render.New()
	index, err := search.Open(cfg.SearchIndexPath, renderer, logger)
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			slog.Error("error closing search index", "error", err)
		}
	}()
	if n, err := index.Rebuild(ctx, queries, time.Now()); err != nil {
		slog.Warn("search index rebuild failed", "error", err)
	} else {
		slog.Info("search index ready", "documents", n)
	}
	index.Subscribe(hooks)

	eventService := service.NewEventService(db, logger)
	eventService.Subscribe(hooks)

	dispatcherCfg := webhook.DefaultConfig()
	dispatcherCfg.Endpoints = cfg.WebhookURLs
	dispatcherCfg.Secret = cfg.WebhookSecret
	dispatcher, err := webhook.NewDispatcher(queries, logger, dispatcherCfg)
	if err != nil {
		return fmt.Errorf("initializing webhooks: %w", err)
	}
	if dispatcher.Enabled() {
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
		debouncer := webhook.NewDebouncer(dispatcher, webhook.DefaultDebounceConfig())
		defer debouncer.Stop()
		webhook.Subscribe(hooks, debouncer)
		slog.Info("webhooks enabled", "endpoints", len(cfg.WebhookURLs))
	}

	sched := scheduler.New(logger)
	jobs := []scheduler.Job{
		scheduler.NoticeGoLiveJob(contentService, time.Now(), time.Now, logger),
		scheduler.RetentionJob(eventService, queries, scheduler.Retention{
			EventLog:   time.Duration(cfg.EventRetentionDays) * 24 * time.Hour,
			Deliveries: time.Duration(cfg.WebhookRetentionDays) * 24 * time.Hour,
		}, time.Now, logger),
	}
	if dispatcher.Enabled() {
		jobs = append(jobs, scheduler.WebhookRetryJob(dispatcher, logger))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("registering job %s: %w", job.Name, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), logger)
	go loginProtection.RunCleanup(ctx, loginCleanup)

	r := handler.NewRouter(handler.RouterConfig{
		Content:         contentService,
		Queries:         queries,
		Sessions:        sessionManager,
		Principals:      middleware.NewPrincipalLoader(sessionManager, queries, cacheResult.Cache, logger),
		LoginProtection: loginProtection,
		SearchLimiter:   middleware.NewIPRateLimiter(searchRateLimit, searchBurst, logger),
		Events:          eventService,
		Scheduler:       sched,
		Pages:           pages,
		Search:          index,
		Renderer:        renderer,
		Health:          handler.NewHealthHandler(db, dataDir, index, versionInfo.Version),
		CSRF: middleware.CSRF(middleware.DefaultCSRFConfig(
			[]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr())),
		Security:  middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment()),
		AccessLog: cfg.IsDevelopment(),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", cfg.ServerAddr(),
			"env", cfg.Env,
			"version", versionInfo.Version,
			"commit", versionInfo.GitCommit,
			"release", versionInfo.IsRelease())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
