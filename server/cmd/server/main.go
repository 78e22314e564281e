package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/synthetics/pkg/types"
	"github.com/obsidianstack/synthetics/server/internal/api"
	"github.com/obsidianstack/synthetics/server/internal/app"
	"github.com/obsidianstack/synthetics/server/internal/auth"
	"github.com/obsidianstack/synthetics/server/internal/config"
	"github.com/obsidianstack/synthetics/server/internal/connectors"
	"github.com/obsidianstack/synthetics/server/internal/settings"
	"github.com/obsidianstack/synthetics/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("synthetics-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"registry", cfg.Server.Registry.Driver,
		"connectors", cfg.Server.Connectors.Source,
		"settings", cfg.Server.Settings.Path,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg.Server, logger)
	if err != nil {
		slog.Error("failed to build default alert service", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	// WebSocket hub: pushes default rule status to UI clients.
	hub := ws.New(a.Service, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	if cfg.Server.ShouldSetupOnStart() {
		rules, err := a.Service.SetupDefaultAlerts(ctx)
		if err != nil {
			// Partial failures are retried by the next update; keep serving.
			slog.Error("default alert setup incomplete", "err", err)
		}
		hub.Notify(rules)
	}

	if cfg.Server.Settings.Watch {
		go func() {
			err := settings.Watch(ctx, a.Settings.Path(), func(*types.Settings) {
				slog.Info("settings changed, updating default alerts")
				rules, err := a.Service.UpdateDefaultAlerts(ctx)
				if err != nil {
					slog.Error("default alert update incomplete", "err", err)
				}
				hub.Notify(rules)
			})
			if err != nil {
				slog.Error("settings watch stopped", "err", err)
			}
		}()
	}

	handler := api.New(api.Deps{
		Alerts:     a.Service,
		Settings:   a.Settings,
		Connectors: a.Connectors,
		Sender:     connectors.NewDeliverer(),
		Auth: auth.APIKey(
			cfg.Server.Auth.Mode,
			cfg.Server.Auth.EffectiveHeader(),
			cfg.Server.Auth.Key(),
		),
		Hub:     hub,
		Metrics: promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{}),
		Logger:  logger,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("synthetics-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
