package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/bridge"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/gateway"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/server"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/config"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/services"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/platform/logger"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/platform/telemetry"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/plugins/postgres"
	redisPlugin "github.com/Mathieux83/Liste-Courses-sub000/internal/plugins/redis"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()
	if cfg.Service.NodeID == "" {
		cfg.Service.NodeID = uuid.NewString()
	}

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application", "node_id", cfg.Service.NodeID)

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	listeRepo := postgres.NewListeRepo(pdb)
	articleRepo := postgres.NewArticleRepo(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb, cfg.Sync.PresenceTTL)
	eventBridge := redisPlugin.NewRedisEventBridge(rdb, log, cfg.Redis.BridgeChannel, cfg.Service.NodeID)

	// Core
	gw := gateway.New(log, presStore, cfg.Sync.PresenceTTL)
	txManager := postgres.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	notifier := services.NewNotifier(log, gw, eventBridge)
	listeSvc := services.NewListeService(log, listeRepo, articleRepo, notifier, txManager)

	// Cross-node fan-out
	relay := bridge.NewWorker(log, eventBridge, gw)
	if err := relay.Run(ctx); err != nil {
		log.Error("bridge worker failed to start", "err", err)
		return
	}

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, tokenSvc, listeSvc, gw)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
