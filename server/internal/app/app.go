// Package app builds the default-alert service and its collaborators from the
// server configuration. Both the server and alertctl start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/obsidianstack/synthetics/server/internal/alerts"
	"github.com/obsidianstack/synthetics/server/internal/config"
	"github.com/obsidianstack/synthetics/server/internal/connectors"
	"github.com/obsidianstack/synthetics/server/internal/events"
	"github.com/obsidianstack/synthetics/server/internal/rules"
	"github.com/obsidianstack/synthetics/server/internal/settings"
)

// App holds the wired service and the resources it owns.
type App struct {
	Service    *alerts.Service
	Rules      rules.Registry
	Connectors connectors.Registry
	Settings   *settings.File
	Metrics    *prometheus.Registry

	closers []func()
}

// Build opens the registry, the connector source and the event publisher
// described by cfg. The caller must Close the returned App.
func Build(ctx context.Context, cfg config.ServerConfig, log *slog.Logger) (*App, error) {
	a := &App{
		Settings: settings.NewFile(cfg.Settings.Path),
		Metrics:  prometheus.NewRegistry(),
	}
	a.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg, err := openRegistry(ctx, cfg.Registry, a)
	if err != nil {
		return nil, err
	}
	a.Rules = reg
	a.Connectors = newConnectors(cfg.Connectors)

	opts := []alerts.Option{
		alerts.WithLogger(log),
		alerts.WithMetrics(alerts.NewMetrics(a.Metrics)),
	}
	if url := cfg.Events.NATSURL(); url != "" {
		pub, err := events.Connect(url)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, alerts.WithPublisher(pub, cfg.Events.SubjectPrefix))
		log.Info("publishing default alert events", "subject_prefix", cfg.Events.SubjectPrefix)
	}

	a.Service = alerts.NewService(a.Rules, a.Connectors, a.Settings, opts...)
	return a, nil
}

// Close releases the registry connection and the event publisher.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openRegistry(ctx context.Context, cfg config.RegistryConfig, a *App) (rules.Registry, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := rules.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() }) //nolint:errcheck
		return db, nil
	case "postgres":
		dsn := cfg.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("app: %s is empty", cfg.DSNEnv)
		}
		db, err := rules.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	case "memory", "":
		return rules.NewMemory(), nil
	}
	return nil, fmt.Errorf("app: unknown registry driver %q", cfg.Driver)
}

func newConnectors(cfg config.ConnectorsConfig) connectors.Registry {
	if cfg.Source == "http" {
		return connectors.NewHTTP(cfg.Endpoint, cfg.EffectiveHeader(), cfg.APIKey(), cfg.Timeout)
	}
	return connectors.NewStatic(cfg.Static)
}
