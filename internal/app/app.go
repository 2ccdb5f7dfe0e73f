package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codex-k8s/gemini-check-mcp-server/internal/config"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/http/health"
)

// App controls the HTTP server lifecycle.
type App struct {
	baseCtx         context.Context
	server          *http.Server
	health          *health.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New initializes the HTTP server with the MCP handler and health endpoints.
func New(baseCtx context.Context, httpCfg config.HTTPConfig, handler http.Handler, logger *slog.Logger, shutdownTimeout time.Duration, probes ...health.Probe) (*App, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	if baseCtx == nil {
		return nil, fmt.Errorf("base context is nil")
	}

	healthHandler := health.New(probes...)
	mux := http.NewServeMux()
	mux.Handle(httpCfg.Path, handler)
	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)

	srv := &http.Server{
		Addr:         httpCfg.Listen,
		Handler:      mux,
		ReadTimeout:  orDefault(httpCfg.ReadTimeout, 15*time.Second),
		WriteTimeout: orDefault(httpCfg.WriteTimeout, 60*time.Second),
		IdleTimeout:  orDefault(httpCfg.IdleTimeout, 60*time.Second),
	}

	return &App{
		baseCtx:         baseCtx,
		server:          srv,
		health:          healthHandler,
		logger:          logger,
		shutdownTimeout: orDefault(shutdownTimeout, 10*time.Second),
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.health.SetReady()
		if a.logger != nil {
			a.logger.Info("http server started", "addr", a.server.Addr)
		}
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		if a.logger != nil {
			a.logger.Info("shutdown requested")
		}
		return a.shutdown()
	case err := <-errCh:
		a.health.SetNotReady()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if a.logger != nil {
			a.logger.Error("http server error", "error", err)
		}
		return err
	}
}

func (a *App) shutdown() error {
	a.health.SetNotReady()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.baseCtx), a.shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func orDefault(value, def time.Duration) time.Duration {
	if value <= 0 {
		return def
	}
	return value
}
