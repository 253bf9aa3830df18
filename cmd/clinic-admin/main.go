// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command clinic-admin serves the clinic site's admin panel.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/cache"
	"github.com/olegiv/clinic-admin/internal/config"
	"github.com/olegiv/clinic-admin/internal/geoip"
	"github.com/olegiv/clinic-admin/internal/handler"
	"github.com/olegiv/clinic-admin/internal/i18n"
	"github.com/olegiv/clinic-admin/internal/logging"
	"github.com/olegiv/clinic-admin/internal/manager"
	"github.com/olegiv/clinic-admin/internal/middleware"
	"github.com/olegiv/clinic-admin/internal/render"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/scheduler"
	"github.com/olegiv/clinic-admin/internal/session"
	"github.com/olegiv/clinic-admin/internal/store"
	"github.com/olegiv/clinic-admin/internal/version"
	"github.com/olegiv/clinic-admin/web"
)

// Build-time variables injected via ldflags.
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const (
	// managerIdleTimeout matches the session idle timeout.
	managerIdleTimeout = 2 * time.Hour
	eventRetention     = 30 * 24 * time.Hour
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "clinic-admin - clinic site admin panel\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_API_URL            Clinic API base URL (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_SESSION_SECRET     CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_DB_PATH            SQLite database path (default: ./data/clinic-admin.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_REDIS_URL          Redis URL for shared unread counts (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CLINIC_DISABLED_SECTIONS  Admin sections disabled at startup, comma separated\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
	if *showVersion {
		_, _ = fmt.Printf("clinic-admin %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.LogLevelValue()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.SupportedLanguages)

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

	applied, err := store.Migrate(context.Background(), db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready", "migrations_applied", applied)

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	sessionManager := session.New(db, cfg.IsDevelopment())

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.APITimeout,
		UserAgent: versionInfo.UserAgent("clinic-admin"),
		Logger:    logger.With("component", "apiclient"),
	})
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}
	auth := session.NewAuth(sessionManager, client, logger)
	client.SetTokenSource(auth)
	client.SetObserver(auth)

	registry := resource.Builtin()
	features := handler.NewFeatures(cfg.DisabledSections)
	if disabled := features.Disabled(); len(disabled) > 0 {
		slog.Info("admin sections disabled", "sections", disabled)
	}
	pool := manager.NewPool(client, logger)

	unreadCache, usingRedis := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: 2 * cfg.PollInterval,
	}, logger)
	defer func() { _ = unreadCache.Close() }()
	slog.Info("cache initialized", "redis", usingRedis)

	sched := scheduler.New(unreadCache, cfg.PollInterval, logger)
	sched.Start()
	defer sched.Stop()

	auth.OnEnd(func(_ context.Context, key string) {
		sched.Unwatch(key)
		pool.Release(key)
	})

	queries := store.New(db)
	if err := sched.Schedule("@every 10m", func() {
		if n := pool.Sweep(managerIdleTimeout); n > 0 {
			slog.Debug("released idle admin sessions", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("scheduling manager sweep: %w", err)
	}
	if err := sched.Schedule("@daily", func() {
		n, err := queries.DeleteEventsBefore(context.Background(), time.Now().Add(-eventRetention))
		if err != nil {
			slog.Error("event cleanup failed", "error", err)
			return
		}
		slog.Info("old events deleted", "count", n)
	}); err != nil {
		return fmt.Errorf("scheduling event cleanup: %w", err)
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip disabled", "error", err)
	}
	defer func() { _ = geo.Close() }()
	if geo.Enabled() {
		if err := sched.Schedule("@weekly", func() {
			if err := geo.Reload(); err != nil {
				slog.Warn("geoip reload failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("scheduling geoip reload: %w", err)
		}
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	counter := handler.NewUnreadCounter(client, registry, features)
	authHandler := handler.NewAuthHandler(handler.AuthHandlerConfig{
		Auth:            auth,
		Renderer:        renderer,
		DB:              db,
		LoginProtection: loginProtection,
		Scheduler:       sched,
		Counter:         counter,
		GeoIP:           geo,
		Logger:          logger,
	})
	adminHandler := handler.NewAdminHandler(handler.AdminHandlerConfig{
		Auth:      auth,
		Pool:      pool,
		Registry:  registry,
		Renderer:  renderer,
		DB:        db,
		Scheduler: sched,
		Counter:   counter,
		PageSize:  cfg.PageSize,
		Logger:    logger,
	})
	healthHandler := handler.NewHealthHandler(db, unreadCache, auth, versionInfo)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig(
		[]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr()))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.APITimeout + 15*time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.AdminLanguage(sessionManager))
	r.Use(features.Middleware)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("loading static files: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealth+"/live", healthHandler.Liveness)
	r.Get(handler.RouteHealth+"/ready", healthHandler.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Get(handler.RouteRoot, func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, handler.RouteAdmin, http.StatusSeeOther)
		})
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	r.Route(handler.RouteAdmin, func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.RequireAuth(auth))
		adminHandler.Routes(r)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.APITimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "api", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
