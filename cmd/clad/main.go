// Command clad is the command-line-assistant daemon. It owns the
// database, the backend HTTP client, authorization, audit, and the
// Unix-socket bus the client talks to.
//
// STARTUP SEQUENCE:
//  1. Load configuration
//  2. Initialize structured logging
//  3. Open the history database and run migrations
//  4. Establish session cache (Redis with in-memory fallback)
//  5. Construct the backend HTTP client
//  6. Construct the audit logger and its worker pool
//  7. Wire session, authz, and the three bus services
//  8. Start the health endpoint
//  9. Start the bus server and block until shutdown
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhel-lightspeed/command-line-assistant/internal/audit"
	"github.com/rhel-lightspeed/command-line-assistant/internal/authz"
	"github.com/rhel-lightspeed/command-line-assistant/internal/backend"
	"github.com/rhel-lightspeed/command-line-assistant/internal/busserver"
	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
	"github.com/rhel-lightspeed/command-line-assistant/internal/healthz"
	"github.com/rhel-lightspeed/command-line-assistant/internal/session"
	"github.com/rhel-lightspeed/command-line-assistant/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)
	slog.Info("audit policy at startup", "question", cfg.Logging.Question, "responses", cfg.Logging.Responses, "audit_verbose", cfg.Logging.AuditVerbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.History.Database)
	if err != nil {
		slog.Error("failed to open history database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var cache session.Cache
	if cfg.Redis.Enabled {
		cache = session.NewCacheFromConfig(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
	} else {
		cache = session.NewMemoryCache()
	}
	sessions := session.NewService(store, cache)

	backendClient := backend.New(cfg.Backend, logger)

	auditLogger, err := audit.New(cfg.Logging)
	if err != nil {
		slog.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer auditLogger.Shutdown()

	authorizer := authz.New(sessions, auditLogger.Denied)

	status := healthz.NewStatus()
	status.SetStorageReady(true)

	bus := busserver.New(cfg.Bus.SocketPath, logger)
	busserver.NewChatService(store, sessions, authorizer, backendClient, auditLogger).Register(bus)
	busserver.NewHistoryService(store, authorizer, auditLogger).Register(bus)
	busserver.NewUserService(sessions, authorizer).Register(bus)
	status.SetBusReady(true)

	var healthSrv *healthz.Server
	if cfg.HealthEndpoint.Enabled {
		healthSrv = healthz.New(cfg.HealthEndpoint.Addr, status)
		go func() {
			if err := healthSrv.Run(ctx); err != nil {
				slog.Warn("health endpoint stopped", "error", err)
			}
		}()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down daemon")
		cancel()
	}()

	slog.Info("starting bus server", "socket", cfg.Bus.SocketPath)
	if err := bus.Run(ctx); err != nil {
		slog.Error("bus server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("daemon shutdown complete")
}

func logLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
