// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-habit-challenge/internal/bootstrap"
	"github.com/AccelByte/extend-habit-challenge/internal/config"
	"github.com/AccelByte/extend-habit-challenge/internal/server"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/handler"
	"github.com/AccelByte/extend-habit-challenge/pkg/scheduler"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	store             service.Store
	engine            *engine.Engine
	scheduler         *scheduler.Scheduler
	httpServer        *server.HTTPServer
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance.
//
// Components are initialized in dependency order:
// 1. Store backend (redis, postgres or memory)
// 2. Recompute engine and catalog seed
// 3. Scheduler
// 4. Servers (HTTP API, gRPC health, metrics)
// 5. Telemetry
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	store, err := bootstrap.InitStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s store: %w", cfg.StoreBackend, err)
	}
	app.store = store

	app.engine = bootstrap.InitEngine(store)
	if err := bootstrap.InitCatalog(ctx, cfg, store, app.engine); err != nil {
		app.closeStore()
		return nil, err
	}

	app.scheduler = bootstrap.InitScheduler(cfg, store, app.engine)

	health := service.NewHealthChecker(cfg.StoreBackend, store)
	challengeHandler := handler.NewChallengeHandler(app.engine, store, store, health, handler.Config{
		DefaultTZOffsetMinutes: cfg.DefaultTZOffsetMinutes,
		RequestTimeout:         cfg.RequestTimeout,
	})

	app.httpServer = server.NewHTTPServer(server.HTTPConfig{
		Port:           cfg.HTTPPort,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, challengeHandler)
	if err := app.httpServer.Setup(); err != nil {
		app.closeStore()
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, health)
	if err := app.grpcServer.Setup(); err != nil {
		app.closeStore()
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		app.closeStore()
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, server.TelemetryConfig{
			ServiceName:    cfg.ServiceName,
			Environment:    cfg.Environment,
			ZipkinEndpoint: cfg.ZipkinEndpoint,
		})
		if err != nil {
			app.closeStore()
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logrus.Errorf("%s store close error: %v", a.cfg.StoreBackend, err)
	}
}
