package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"pairgo/backend/internal/api/handler"
	"pairgo/backend/internal/chathub"
	"pairgo/backend/internal/config"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/reports"
	"pairgo/backend/internal/storage"
	"pairgo/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: "",
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Profile{},
		&models.Match{},
		&models.Report{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting PairGo Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewService(db, rdb)

	hub := chathub.NewHub(s, cfg.DirectoryMatching)

	reportService := reports.NewService(s)
	if cfg.TelegramToken != "" {
		alerts, err := telegram.NewAlertService(cfg.TelegramToken, cfg.TelegramAdminChat)
		if err != nil {
			log.Printf("Warning: Telegram alerts disabled: %v", err)
		} else {
			reportService.SetNotifier(alerts)
		}
	}
	hub.SetReportSink(reportService)

	r := gin.Default()
	h := handler.NewHandler(hub, cfg.JWTSecret)

	r.GET("/token", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/healthz", h.Healthz)
	r.GET("/stats", h.GetStats)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("Listening on %s", cfg.HTTPAddr)
	log.Fatal(server.ListenAndServe())
}
