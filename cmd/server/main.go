package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/baxromumarov/page-diff/internal/api"
	"github.com/baxromumarov/page-diff/internal/config"
	"github.com/baxromumarov/page-diff/internal/core"
	"github.com/baxromumarov/page-diff/internal/httpx"
	"github.com/baxromumarov/page-diff/internal/observability"
)

func main() {
	cfg, err := config.Load(os.Getenv("PAGEDIFF_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	fetcher := httpx.NewCollyFetcher(httpx.Options{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout,
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
		RespectRobots: cfg.Fetch.RespectRobots,
	})

	compare := core.NewCompareService(fetcher, core.Options{
		ContextLines: cfg.Diff.ContextLines,
		DefaultMode:  cfg.Mode(),
	})

	srv := api.NewServer(compare, observability.NewStats(), cfg.Server.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.ListenAndServe(ctx, cfg.Server.Addr, srv.Router(), cfg.Server.ShutdownTimeout); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
