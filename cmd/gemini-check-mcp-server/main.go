package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/gemini-check-mcp-server/internal/app"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/audit"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/config"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/executil"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/gemini"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/log"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/server"
	"github.com/codex-k8s/gemini-check-mcp-server/internal/startup"
)

var version = "dev"

func main() {
	transport := flag.String("transport", "", "Override GEMINI_MCP_TRANSPORT (stdio or http)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Transport = *transport
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
	}

	logger := log.New(cfg.LogLevel, os.Stderr)

	controller := &gemini.Controller{
		Launcher:        executil.Exec{},
		Command:         cfg.Command,
		Timeout:         gemini.DefaultTimeout,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
	}

	builder := server.Builder{
		Name:    server.ToolName,
		Version: version,
		Checker: controller,
		Logger:  logger,
		Audit:   audit.New(logger),
	}
	mcpServer, err := builder.Build()
	if err != nil {
		logger.Error("build server failed", "error", err)
		os.Exit(1)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		logger.Warn("shutdown requested", "signal", sig.String())
		cancel()
	}()

	startup.Preflight(baseCtx, cfg.Command, logger)

	switch cfg.Transport {
	case config.TransportStdio:
		err = runStdio(baseCtx, mcpServer)
	default:
		err = runHTTP(baseCtx, cfg, mcpServer, logger)
	}
	if err != nil {
		logger.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

func runStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runHTTP(ctx context.Context, cfg config.Config, server *mcp.Server, logger *slog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless: cfg.HTTP.Stateless,
	})

	commandProbe := func() error {
		_, err := startup.LookPath(cfg.Command)
		return err
	}
	application, err := app.New(ctx, cfg.HTTP, handler, logger, cfg.ShutdownTimeout, commandProbe)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
