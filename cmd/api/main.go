package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/api/handler"
	"github.com/sanosuguru/go-seat-booking/internal/api/middleware"
	"github.com/sanosuguru/go-seat-booking/internal/api/router"
	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/config"
	"github.com/sanosuguru/go-seat-booking/internal/infrastructure/rabbitmq"
	"github.com/sanosuguru/go-seat-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-booking/internal/infrastructure/sqlstore"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-booking/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定の読み込みに失敗しました", zap.Error(err))
	}
	logger.Init(cfg.Env)
	defer logger.Sync()

	m := metrics.Init()

	// データベース
	db, err := sqlstore.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続エラー", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.Driver != config.DriverSQLite {
		if err := sqlstore.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
	}
	logger.Info("データベース接続完了", zap.String("driver", cfg.Database.Driver))

	healthChecks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return sqlstore.Ping(ctx, db) },
	}

	// Redis は任意。使えなければレート制限と監査ロックなしで動く
	var (
		limiter middleware.Limiter
		locker  worker.Locker
	)
	if cfg.Redis.Enabled {
		rc := redis.NewClient(&cfg.Redis)
		defer rc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redis.Ping(ctx, rc)
		cancel()
		if err != nil {
			logger.Warn("Redisに接続できないためレート制限と監査ロックを無効にします", zap.Error(err))
		} else {
			limiter = redis.NewRateLimiter(rc, cfg.RateLimit.Requests, cfg.RateLimit.Window)
			locker = redis.NewLockManager(rc, m)
			healthChecks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, rc) }
			logger.Info("Redis接続完了", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// サービス
	eventRepo := sqlstore.NewEventRepository(db)
	inventory := sqlstore.NewInventoryRepository(db)
	registry := sqlstore.NewReservationRepository(db)
	txManager := sqlstore.NewTxManager(db, sqlstore.TxOptions(&cfg.Database))

	bookingOpts := []application.BookingOption{application.WithMetrics(m)}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Warn("RabbitMQに接続できないため予約通知を無効にします", zap.Error(err))
		} else {
			defer publisher.Close()
			bookingOpts = append(bookingOpts, application.WithNotifier(publisher))
			logger.Info("RabbitMQ接続完了")
		}
	}

	eventService := application.NewEventService(eventRepo, registry, nil)
	bookingService := application.NewBookingService(txManager, inventory, registry, bookingOpts...)

	e := router.New(router.Handlers{
		Event:   handler.NewEventHandler(eventService),
		Booking: handler.NewBookingHandler(bookingService),
		Health:  handler.NewHealthHandler(healthChecks),
	}, router.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		Limiter:     limiter,
		Metrics:     m,
		MetricsAuth: cfg.Metrics,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// 在庫監査ワーカー
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	auditor := worker.NewInventoryAuditor(
		application.NewInventoryAuditService(inventory), locker,
		cfg.Audit.Interval, cfg.Audit.LockTTL, m,
	)
	go auditor.Start(ctx)

	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")
	auditor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
