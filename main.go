package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"qdispatch/application/counters"
	"qdispatch/application/health"
	"qdispatch/application/queues"
	"qdispatch/application/tickets"
	"qdispatch/common"
	"qdispatch/middleware"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	z := NewLogger()
	defer z.Sync()

	db, err := setupDatabase()
	if err != nil {
		log.Fatal("Failed to setup database:", err)
	}

	r := SetupRouter(db, z)

	srv := &http.Server{
		Addr:         env("HTTP_ADDR", ":8080"),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 55 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		z.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	z.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func NewLogger() *zap.Logger {
	var zapLogger *zap.Logger
	var err error

	if env("APP_ENV", "dev") == "dev" {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}

	return zapLogger
}

// setupDatabase opens the store: sqlite by default (shared in-memory
// for dev), mysql when DB_DRIVER=mysql with a DSN from DB_DSN.
func setupDatabase() (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var db *gorm.DB
	var err error

	switch env("DB_DRIVER", "sqlite") {
	case "mysql":
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("DB_DSN is required for the mysql driver")
		}
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mysql database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

	default:
		dsn := env("DB_DSN", "file::memory:?cache=shared")
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect sqlite database: %w", err)
		}

		// Sqlite allows one writer; a single pooled connection keeps
		// transactions serialized instead of failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&common.Queue{}, &common.Counter{}, &common.Ticket{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func SetupRouter(db *gorm.DB, z *zap.Logger) *gin.Engine {
	if env("APP_ENV", "dev") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestInit())
	r.Use(middleware.ResponseInit(z))

	healthRepo := health.NewRepository(db)
	healthSvc := health.NewService(healthRepo)
	healthHandler := health.NewHandler(healthSvc)

	queueRepo := queues.NewRepository(db)
	queueSvc := queues.NewService(queueRepo, z)
	queueHandler := queues.NewHandler(queueSvc)

	counterRepo := counters.NewRepository(db)
	counterSvc := counters.NewService(counterRepo, queueRepo, z)
	counterHandler := counters.NewHandler(counterSvc)

	ticketRepo := tickets.NewRepository(db)
	ticketSvc := tickets.NewService(ticketRepo, counterRepo, queueRepo, z)
	ticketHandler := tickets.NewHandler(ticketSvc)

	api := r.Group("")
	healthHandler.RegisterRoutes(api)
	queueHandler.RegisterRoutes(api)
	counterHandler.RegisterRoutes(api)
	ticketHandler.RegisterRoutes(api)

	return r
}
