package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chat-orchestrator/internal/adapter/chat_http"
	"chat-orchestrator/internal/di"
	"chat-orchestrator/internal/infra"
	"chat-orchestrator/internal/infra/config"
	"chat-orchestrator/internal/infra/logger"
	"chat-orchestrator/internal/infra/telemetry"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Telemetry
	if cfg.OTel.Enabled {
		shutdown, err := telemetry.Setup(context.Background(), cfg.OTel.ExporterHost)
		if err != nil {
			slog.Warn("telemetry setup failed, continuing without exporters", "error", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				shutdown(ctx)
			}()
		}
	}

	// 3. Initialize Logger
	log := logger.NewWithOTel(cfg.OTel.Enabled)
	slog.SetDefault(log)

	// 4. Initialize DB
	dbPool, err := infra.NewPostgresDB(context.Background(), cfg.DB.DSN(), infra.PoolConfig{
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 5. Wire Components
	components := di.NewApplicationComponents(cfg, dbPool, log)

	// 6. Start Worker
	components.Worker.Start()
	defer func() {
		log.Info("Stopping worker...")
		components.Worker.Stop()
	}()

	// 7. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if cfg.OTel.Enabled {
		e.Use(chat_http.OTelStatusMiddleware("chat-orchestrator"))
	}

	// 8. Register Handlers
	var blobs chat_http.BlobArchiver
	if components.Blobs != nil {
		blobs = components.Blobs
	}
	handler := chat_http.NewHandler(
		components.Orchestrator,
		components.Profiles,
		components.History,
		components.IndexUsecase,
		components.DocRepo,
		blobs,
		dbPool,
		log,
	)
	handler.Register(e)

	// 9. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("Starting server", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
