package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	appconfig "arena-ledger-system/config"
	"arena-ledger-system/handlers"
	"arena-ledger-system/ledger"
	"arena-ledger-system/middleware"
	"arena-ledger-system/models"
	"arena-ledger-system/services"
	"arena-ledger-system/utils"
	"arena-ledger-system/workers"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := appconfig.Load(os.Getenv("CONFIG_PATH"))
	if cfg.Business.LedgerMaxAttempts > 0 {
		ledger.MaxAttempts = cfg.Business.LedgerMaxAttempts
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // banner uploads only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if allowedOrigins == "" {
		log.Println("⚠️  server.allowed_origins not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	originsList := strings.Split(allowedOrigins, ",")
	for i, origin := range originsList {
		originsList[i] = strings.TrimSpace(origin)
	}
	originsString := strings.Join(originsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     originsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		log.Fatal("database DSN not set (database.dsn or DATABASE_URL)")
	}

	if err := utils.InitStorage(cfg.Storage); err != nil {
		log.Fatal("failed to initialize storage client:", err)
	}

	// TranslateError maps duplicate-key violations to gorm.ErrDuplicatedKey,
	// which the ledger store turns into a retryable conflict.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.PortalUser{},
		&models.Match{},
		&models.MatchEntry{},
		&models.FundRequest{},
		&models.LedgerEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := ledger.NewGormStore(db)

	attemptTTL := time.Duration(cfg.Business.AttemptTTLMinutes) * time.Minute
	var attempts services.AttemptStore
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		attempts = services.NewRedisAttemptStore(rdb, attemptTTL)
		log.Println("✅ Redis attempt store connected")
	} else {
		attempts = services.NewMemoryAttemptStore(attemptTTL)
		log.Println("⚠️  Using in-memory attempt store (single instance only)")
	}

	userService := services.NewUserService(store, db)
	matchService := services.NewMatchService(store, db)
	enrollService := services.NewEnrollmentService(store, db)
	walletService := services.NewWalletService(store, db, cfg.Business)
	adminService := services.NewAdminService(store, db)
	eventService := services.NewEventService(db)
	rewardService := services.NewRewardGateService(store, attempts, enrollService, services.SimulatedAdProvider{}, cfg.Business)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers.StartDailyResetJob(db)
	workers.StartMatchStatusJob(db, matchService)

	if cfg.Kafka.Enabled {
		producer, err := workers.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("failed to create kafka producer:", err)
		}
		defer producer.Close()
		workers.StartOutboxSender(db, producer, cfg.Kafka.Topic)
		log.Println("✅ Ledger event outbox publishing to Kafka")
	}

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupUserRoutes(app, userService, eventService)
	handlers.SetupMatchRoutes(app, matchService, enrollService)
	handlers.SetupWalletRoutes(app, walletService, adminService)
	handlers.SetupRewardRoutes(app, rewardService)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost%s", addr)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", originsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
