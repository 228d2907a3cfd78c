package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/api"
	"github.com/d60-Lab/post-policy/internal/api/handler"
	"github.com/d60-Lab/post-policy/internal/repository"
	"github.com/d60-Lab/post-policy/internal/service"
	"github.com/d60-Lab/post-policy/pkg/database"
	"github.com/d60-Lab/post-policy/pkg/logger"
	"github.com/d60-Lab/post-policy/pkg/trace"
)

// @title Post Policy API
// @version 1.0
// @description Group-acknowledgment policies attached to forum posts.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Server.Mode)
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTrace, err := trace.Init(ctx, "post-policy", cfg.Trace.Endpoint)
	if err != nil {
		logger.Warn("trace init failed", zap.Error(err))
	} else {
		defer func() { _ = shutdownTrace(context.Background()) }()
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, notifications and snapshot cache degraded", zap.Error(err))
	}

	notifier := service.NewRedisNotifier(rdb)
	reconciler := service.NewReconciler(db, cfg.Policy)
	projector := service.NewProjector(db, rdb, cfg.Policy)
	acceptance := service.NewAcceptanceService(db, cfg.Policy, notifier)
	posts := service.NewPostService(repository.NewPostRepository(db), reconciler, projector)

	sweeper := service.NewRenewalSweeper(db, cfg.Policy, notifier)
	stopSweeper := sweeper.Start()

	h := handler.New(cfg, acceptance, posts, repository.NewUserRepository(db))
	router := api.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	_ = stopSweeper(context.Background())

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = srv.Shutdown(shutCtx)
}
