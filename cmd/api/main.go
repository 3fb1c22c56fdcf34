package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/oceanclean/oceanclean/internal/adapters/auth"
	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	"github.com/oceanclean/oceanclean/internal/adapters/drawing"
	"github.com/oceanclean/oceanclean/internal/adapters/http"
	"github.com/oceanclean/oceanclean/internal/bootstrap"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
	"github.com/oceanclean/oceanclean/internal/pkg/config"
	"github.com/oceanclean/oceanclean/internal/pkg/logging"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
	"github.com/oceanclean/oceanclean/internal/pkg/telemetry"
	"github.com/oceanclean/oceanclean/internal/workflows"
)

func main() {
	cfg, err := config.Load("oceanclean-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Store, database, cache, NATS
	res, err := bootstrap.Open(ctx, cfg, "oceanclean-api")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer res.Close()

	// Repos
	mapRepo := docstore.NewMapRepo(res.Store)
	userRepo := docstore.NewUserRepo(res.Store)
	statsRepo := docstore.NewStatisticsRepo(res.Store)
	controlRepo := docstore.NewControlRepo(res.Store)

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	// Use cases
	cache := res.CacheService()
	mapSvc := usecases.NewMapService(mapRepo)
	statsSvc := usecases.NewStatisticsService(statsRepo, cache)
	authSvc := usecases.NewAuthService(userRepo, tokens)
	controlSvc := usecases.NewControlService(controlRepo, mapRepo, res.Publisher, usecases.VideoURLs{
		Raw: cfg.Video.RawURL,
		AI:  cfg.Video.AIURL,
	})
	sessionSvc := usecases.NewSessionService(mapRepo, func() ports.DrawingSurface {
		return drawing.New(drawing.Options{})
	}, cfg.Sessions.IdleTimeout)
	go sessionSvc.Run(ctx)

	// Drive ramps run on the controller worker when Temporal is enabled
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			log.Fatalf("temporal client: %v", err)
		}
		defer tc.Close()
		controlSvc.UseRamps(workflows.NewScheduler(tc, cfg.Temporal.TaskQueue))
	} else {
		local := usecases.NewLocalRampScheduler(controlSvc)
		defer local.Stop()
		controlSvc.UseRamps(local)
	}

	// Drop cached statistics when the robot writes new readings
	if cache != nil {
		sub, err := statsSvc.Watch(ctx, nil)
		if err != nil {
			slog.Warn("statistics watch failed", "error", err)
		} else {
			defer sub.Close()
		}
	}

	if res.DB != nil {
		go reportPoolStats(ctx, res)
	}

	deps := &http.Dependencies{
		Maps:       mapSvc,
		Sessions:   sessionSvc,
		Statistics: statsSvc,
		Auth:       authSvc,
		Control:    controlSvc,
		Store:      res.Store,
		NATS:       res.NATS,
		DB:         res.DB,
		Cache:      res.Cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "OceanClean API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Store.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	sessionSvc.Shutdown()

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, res *bootstrap.Resources) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(res.DB.Pool.Stat())
		}
	}
}
