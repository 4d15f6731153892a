package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"guardianangel/config"
	"guardianangel/internal/database"
	"guardianangel/internal/ratelimit"
	"guardianangel/internal/router"
	"guardianangel/internal/service"
	"guardianangel/pkg/cloudinary"
	"guardianangel/pkg/payment"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func newGateway(cfg config.PaymentConfig) payment.Gateway {
	if cfg.Provider == "stub" {
		return payment.NewStubGateway(cfg.WebhookSecret)
	}
	return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.WebhookSecret, nil)
}

func newCooldownStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (ratelimit.Store, func()) {
	if cfg.Addr == "" {
		logger.Info("chat cool-down uses in-process store")
		return ratelimit.NewMemoryStore(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal("redis", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	logger.Info("chat cool-down uses redis", zap.String("addr", cfg.Addr))
	return ratelimit.NewRedisStore(client), func() { client.Close() }
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := newLogger(cfg.Server.Env)
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := newCooldownStore(ctx, cfg.Redis, logger)
	defer closeStore()

	var media service.AttachmentStore
	if cfg.Cloudinary.CloudName != "" {
		cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			logger.Fatal("cloudinary", zap.Error(err))
		}
		media = cloud
	} else {
		logger.Warn("attachments disabled: set CLOUDINARY_CLOUD_NAME to enable")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logger.Info("payments configured",
		zap.String("mode", string(cfg.Payment.Mode)),
		zap.String("provider", cfg.Payment.Provider),
		zap.Bool("webhook_secret", cfg.Payment.WebhookSecret != ""))

	engine := router.Setup(cfg, db, router.Deps{
		Gateway:       newGateway(cfg.Payment),
		CooldownStore: store,
		Media:         media,
		FCM:           service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath, logger),
		Mailer:        service.NewMailer(&cfg.Mail, logger),
		Registry:      reg,
		Log:           logger,
		Done:          ctx.Done(),
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server stopped")
}
