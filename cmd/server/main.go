package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/damacus/iron-shelf/internal/config"
	"github.com/damacus/iron-shelf/internal/handlers"
	"github.com/damacus/iron-shelf/internal/logger"
	"github.com/damacus/iron-shelf/internal/metrics"
	customMiddleware "github.com/damacus/iron-shelf/internal/middleware"
	"github.com/damacus/iron-shelf/internal/renderer"
	"github.com/damacus/iron-shelf/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console", os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := services.NewObjectStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to create object store")
	}

	var usage handlers.UsageReader
	if cfg.Usage.Enabled {
		usageService, err := services.NewUsageService(cfg.Store)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create MinIO admin client")
		}
		usage = usageService
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e := newServer(serverDeps{
		Config:  cfg,
		Logger:  log,
		Store:   store,
		Usage:   usage,
		Metrics: metrics.NewRecorder(registry),
	})

	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("backend", cfg.Store.Backend).
			Str("bucket", cfg.Store.Bucket).
			Str("prefix", cfg.Store.Prefix).
			Msg("starting iron-shelf")
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// serverDeps are the collaborators newServer wires together. Usage is nil
// when the usage widget is disabled; Now overrides the upload clock.
type serverDeps struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   services.ObjectStore
	Usage   handlers.UsageReader
	Metrics *metrics.Recorder
	Now     func() time.Time
}

func newServer(deps serverDeps) *echo.Echo {
	cfg := deps.Config
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRecorder(nil)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Services
	files := services.NewFileService(deps.Store, services.FileServiceOptions{
		Prefix: cfg.Store.Prefix,
		URLs:   services.NewPublicURLs(services.PublicBaseURL(cfg.Store)),
		Retry: services.RetryPolicy{
			Attempts:   cfg.Rename.DeleteAttempts,
			Backoff:    cfg.Rename.DeleteBackoff,
			MaxBackoff: cfg.Rename.DeleteMaxBackoff,
		},
		Metrics: deps.Metrics,
		Logger:  deps.Logger.With().Str("component", "files").Logger(),
		Now:     deps.Now,
	})
	gate := services.NewOperationGate()
	filesHandler := handlers.NewFilesHandler(files, gate, deps.Logger, handlers.FilesHandlerOptions{
		UsageEnabled:   deps.Usage != nil,
		MaxUploadBytes: cfg.Server.UploadMaxBytes,
	})
	apiHandler := handlers.NewAPIHandler(files, gate, deps.Logger)

	// Middleware
	e.Use(customMiddleware.RequestLogger(deps.Logger))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders(customMiddleware.OriginOf(services.PublicBaseURL(cfg.Store))))
	if cfg.Server.UIUsername != "" {
		e.Use(customMiddleware.BasicAuth(cfg.Server.UIUsername, cfg.Server.UIPassword))
	}
	// Before CSRF, which may parse a form body looking for the token.
	e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.Server.UploadMaxBytes, 10) + "B"))
	e.Use(customMiddleware.CSRF())

	// Template Renderer
	e.Renderer = renderer.New()

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))

	// File manager
	e.GET("/", filesHandler.Index)
	e.GET("/files", filesHandler.Grid)
	e.GET("/files/rename", filesHandler.RenameForm)
	e.POST("/files/upload", filesHandler.Upload)
	e.POST("/files/rename", filesHandler.Rename)
	e.POST("/files/delete", filesHandler.Delete)

	// JSON API
	e.GET("/api/files", apiHandler.List)
	e.POST("/api/files", apiHandler.Upload)
	e.POST("/api/files/rename", apiHandler.Rename)
	e.DELETE("/api/files", apiHandler.Delete)

	if deps.Usage != nil {
		usageHandler := handlers.NewUsageHandler(deps.Usage, deps.Logger)
		e.GET("/api/usage/widget", usageHandler.GetUsageWidget)
	}

	return e
}
