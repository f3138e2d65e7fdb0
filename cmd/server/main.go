package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardforge/internal/api"
	"github.com/youruser/cardforge/internal/catalog"
	"github.com/youruser/cardforge/internal/config"
	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/logging"
	"github.com/youruser/cardforge/internal/metrics"
	"github.com/youruser/cardforge/internal/render"
)

func main() {
	configPath := flag.String("config", "cardforge.yaml", "path to YAML or TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, closer := logging.NewLogger(cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Layouts are optional; a missing directory just means no named layouts.
	layouts := layout.NewStore(cfg.Render.LayoutsDir, cfg.Render.LayoutPattern, logger)
	if err := layouts.Reload(); err != nil {
		logger.Warn("failed to load layouts at startup", "error", err)
	}
	if cfg.Render.WatchLayouts {
		go func() {
			if err := layouts.Watch(ctx); err != nil {
				logger.Warn("layout watcher stopped", "error", err)
			}
		}()
	}

	images := imagepkg.NewLoader(cfg.Render.ImageTimeout, cfg.Render.ImageCacheSize)
	renderer := render.New(render.NewFontCache(cfg.Render.FontsDir), images, logger)

	h := api.NewHandler(api.Handler{
		Renderer: renderer,
		Layouts:  layouts,
		Catalog:  catalog.NewMetadataClient(cfg.Catalog.BaseURL, cfg.Catalog.PageURL, cfg.Catalog.Timeout, cfg.Catalog.RetryMax),
		Ratings:  catalog.NewRatingClient(cfg.Ratings.BaseURL, cfg.Ratings.Timeout, cfg.Ratings.RetryMax, logger),
		Logger:   logger,
		Options: api.Options{
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
			MaxRecords:     cfg.Batch.MaxRecords,
			RetryDelay:     cfg.Batch.RetryDelay,
			MaxRetries:     cfg.Batch.MaxRetries,
		},
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))
	api.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "listen", cfg.Server.Listen, "layouts", len(layouts.Names()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
