package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-venue-reservation/internal/api"
	"github.com/sanosuguru/go-venue-reservation/internal/api/handler"
	"github.com/sanosuguru/go-venue-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-venue-reservation/internal/application"
	"github.com/sanosuguru/go-venue-reservation/internal/config"
	"github.com/sanosuguru/go-venue-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-venue-reservation/internal/infrastructure/redis"
)

var (
	testServer  *TestServer
	testDB      *sqlx.DB
	redisClient *redis.Client
)

// TestMain はE2Eテストのエントリポイント
// パッケージ全体で1回だけサーバーを起動することで高速化
func TestMain(m *testing.M) {
	cfg := config.Load()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		os.Exit(0) // DB未起動時はスキップ
	}
	testDB = db

	if err := postgres.RunMigrations(db.DB, "../migrations"); err != nil {
		db.Close()
		os.Exit(0)
	}

	// Redis接続
	rc, err := redisinfra.NewClient(&cfg.Redis)
	if err != nil {
		db.Close()
		os.Exit(0) // Redis未起動時はスキップ
	}
	redisClient = rc

	// サービス初期化
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	venueRepo := postgres.NewVenueRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	txManager := postgres.NewTxManager(db)

	bus := application.NewChannelBus(cfg.Booking.EventBuffer)
	bookingService := application.NewBookingService(
		txManager, reservationRepo, venueRepo,
		lockManager, availabilityCache, bus,
		cfg.Booking.MaxAdvance,
	)
	venueService := application.NewVenueService(
		venueRepo, reservationRepo, availabilityCache, time.Second,
	)

	venueHandler := handler.NewVenueHandler(venueService)
	reservationHandler := handler.NewReservationHandler(bookingService)
	healthHandler := handler.NewHealthHandler()

	// Echo セットアップ
	e := echo.New()
	e.Validator = api.NewValidator()
	middleware.SetupMiddleware(e)

	e.GET("/health", healthHandler.Check)

	v1 := e.Group("/api/v1")
	v1.POST("/venues", venueHandler.Create)
	v1.GET("/venues", venueHandler.List)
	v1.GET("/venues/:id", venueHandler.GetByID)
	v1.GET("/venues/:id/availability", venueHandler.Availability)

	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations", reservationHandler.GetUserReservations)
	v1.GET("/reservations/:id", reservationHandler.GetByID)
	v1.POST("/reservations/:id/confirm", reservationHandler.Confirm)
	v1.POST("/reservations/:id/cancel", reservationHandler.Cancel)

	testServer = &TestServer{Echo: e}

	// テスト実行
	code := m.Run()

	// 最終クリーンアップ
	cleanupTables()
	bus.Close()
	redisClient.Close()
	db.Close()

	os.Exit(code)
}

// cleanupTables はテーブルとキャッシュをクリーンアップ
func cleanupTables() {
	testDB.Exec("TRUNCATE TABLE reservations, venues RESTART IDENTITY CASCADE")
	redisClient.FlushDB(context.Background())
}

// getTestServer は共有サーバーを取得（テスト前にテーブルをクリーンアップ）
func getTestServer(t *testing.T) *TestServer {
	t.Helper()
	if testServer == nil {
		t.Skip("テスト環境が利用できません")
	}
	cleanupTables()
	return testServer
}
