package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/api"
	"github.com/sanosuguru/go-venue-reservation/internal/api/handler"
	custommiddleware "github.com/sanosuguru/go-venue-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-venue-reservation/internal/application"
	"github.com/sanosuguru/go-venue-reservation/internal/config"
	"github.com/sanosuguru/go-venue-reservation/internal/infrastructure/notify"
	"github.com/sanosuguru/go-venue-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-venue-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-venue-reservation/internal/worker"
)

const availabilityCacheTTL = 30 * time.Second

func main() {
	cfg := config.Load()
	defer logger.Sync()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis
	redisClient, err := redisinfra.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Redis接続に失敗", zap.Error(err))
	}
	defer redisClient.Close()

	// リポジトリとインフラ
	txManager := postgres.NewTxManager(db)
	reservationRepo := postgres.NewReservationRepository(db)
	venueRepo := postgres.NewVenueRepository(db)
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	// ライフサイクルイベントバス
	bus := application.NewChannelBus(cfg.Booking.EventBuffer)

	// アプリケーションサービス
	bookingService := application.NewBookingService(
		txManager, reservationRepo, venueRepo,
		lockManager, availabilityCache, bus,
		cfg.Booking.MaxAdvance,
	)
	venueService := application.NewVenueService(
		venueRepo, reservationRepo, availabilityCache, availabilityCacheTTL,
	)

	// リマインダー配送
	scheduler := notify.NewRedisScheduler(redisClient)
	var sender notify.Sender
	if cfg.SendGrid.APIKey != "" {
		sender = notify.NewSendGridSender(&cfg.SendGrid)
	} else {
		sender = notify.NewNopSender()
	}

	// バックグラウンドワーカー
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	reminderWorker := worker.NewReminderWorker(
		bus.Events(), scheduler, reservationRepo,
		cfg.Booking.ReminderLead, cfg.Booking.ExternalTimeout,
	)
	dispatcher := worker.NewReminderDispatcher(scheduler, sender, cfg.Booking.DispatchInterval)
	sweeper := worker.NewCompletionSweeper(bookingService, cfg.Booking.SweepInterval)
	go reminderWorker.Start(workerCtx)
	go dispatcher.Start(workerCtx)
	go sweeper.Start(workerCtx)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommiddleware.SetupMiddleware(e)
	e.Use(custommiddleware.PrometheusMiddleware(m))

	// ハンドラー
	healthHandler := handler.NewHealthHandler()
	venueHandler := handler.NewVenueHandler(venueService)
	reservationHandler := handler.NewReservationHandler(bookingService)

	// ルーティング
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.POST("/venues", venueHandler.Create)
	v1.GET("/venues", venueHandler.List)
	v1.GET("/venues/:id", venueHandler.GetByID)
	v1.GET("/venues/:id/availability", venueHandler.Availability)

	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations", reservationHandler.GetUserReservations)
	v1.GET("/reservations/:id", reservationHandler.GetByID)
	v1.POST("/reservations/:id/confirm", reservationHandler.Confirm)
	v1.POST("/reservations/:id/cancel", reservationHandler.Cancel)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommiddleware.MetricsBasicAuth())

	// サーバー起動
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("サーバー起動", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動に失敗", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("シャットダウン開始")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンに失敗", zap.Error(err))
	}

	// ワーカー停止。バスを閉じ、リマインダーワーカーが残イベントを
	// 処理し切って自然終了するのを待つ
	sweeper.Stop()
	dispatcher.Stop()
	bus.Close()
	reminderWorker.Wait()
	cancelWorkers()

	logger.Info("シャットダウン完了")
}
