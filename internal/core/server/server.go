// Package server wires the routes, middleware and probes into one HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/bikeshare"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/config"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/executor"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/health"
	middleware "github.com/mohammed-shakir/spatial-priorities-api/internal/core/middleware"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/core/pipeline"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/docs"
	"github.com/mohammed-shakir/spatial-priorities-api/internal/sidewalk"
)

// Deps are the collaborators the handler tree is built from. Metrics may be
// nil when metrics are disabled.
type Deps struct {
	Executor executor.Interface
	Metrics  http.Handler
}

// NewHandler builds the full route tree. Every path, docs included, is
// mounted under cfg.URLRoot.
func NewHandler(cfg config.Config, logger *slog.Logger, deps Deps) (http.Handler, error) {
	doc, err := docs.Load(cfg.URLRoot)
	if err != nil {
		return nil, err
	}
	pipe := pipeline.New(deps.Executor)

	api := chi.NewRouter()
	api.Mount("/indego", bikeshare.Routes(logger, bikeshare.New(pipe, cfg.BikeshareDBURL)))
	api.Mount("/sidewalk", sidewalk.Routes(logger, sidewalk.New(pipe, cfg.SidewalkDBURL)))
	api.Get("/openapi.json", doc.Handler())
	api.Get("/openapi.yaml", doc.Handler())
	api.Get("/healthz", health.Liveness())
	api.Get("/readyz", health.Readiness(deps.Executor, []health.Dataset{
		{Name: "bikeshare", URI: cfg.BikeshareDBURL},
		{Name: "sidewalk", URI: cfg.SidewalkDBURL},
	}))
	if deps.Metrics != nil {
		api.Handle("/metrics", deps.Metrics)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	if cfg.URLRoot == "" {
		r.Mount("/", api)
	} else {
		r.Mount(cfg.URLRoot, api)
	}
	return r, nil
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	h, err := NewHandler(cfg, logger, deps)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr, "url_root", cfg.URLRoot)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
