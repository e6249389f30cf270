package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fireview/internal/analytics"
	"fireview/internal/config"
	"fireview/internal/providers/firerisk"
	"fireview/internal/timezone"
	"fireview/internal/viewer"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humagin"
	"github.com/gin-gonic/gin"
)

// App encapsulates application dependencies
type App struct {
	engine    *gin.Engine
	api       huma.API
	logger    *slog.Logger
	session   *viewer.Session
	analytics analytics.Service
}

// NewApp creates a new application with injected dependencies
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	index, err := cfg.ViewerIndex()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.ViewerMode()
	if err != nil {
		return nil, err
	}
	scales, err := cfg.Palettes()
	if err != nil {
		return nil, err
	}

	client := firerisk.NewClient(cfg.API.BaseURL, logger, firerisk.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))

	zones, err := timezone.NewResolver()
	if err != nil {
		// Popups still work without a local time
		logger.Warn("timezone lookup disabled", "error", err)
	}

	session, err := viewer.NewSession(client, viewer.Options{
		Index:  index,
		Mode:   mode,
		Scales: scales,
		Zones:  zones,
	}, logger)
	if err != nil {
		return nil, err
	}

	return newApp(cfg.Server.GinMode, session, analytics.NewService(client, logger), logger), nil
}

func newApp(ginMode string, session *viewer.Session, svc analytics.Service, logger *slog.Logger) *App {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	config := huma.DefaultConfig("Fireview API", "1.0.0")
	config.Info.Description = "Fire-risk forecast viewer: overlay, tooltip and analytics for one map session"
	config.Servers = []*huma.Server{
		{URL: "http://localhost:8080", Description: "Development server"},
	}

	api := humagin.New(engine, config)

	app := &App{
		engine:    engine,
		api:       api,
		logger:    logger,
		session:   session,
		analytics: svc,
	}

	session.Events().Subscribe(func(ev viewer.Event) {
		logger.Debug("viewer event", "kind", ev.Kind, "error", ev.Error)
	})

	logger.Info("application initialized")

	app.registerRoutes()

	return app
}

// Run starts the HTTP server and shuts it down when ctx is done
func (app *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		app.session.Close()
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	app.session.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
