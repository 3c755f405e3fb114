package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"pairgo/backend/internal/config"
	"pairgo/backend/internal/reports"
	"pairgo/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	storageSvc := storage.NewService(db, rdb)
	reportSvc := reports.NewService(storageSvc)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin ban <user_id> [duration_in_hours]")
			os.Exit(1)
		}
		userID := os.Args[2]
		var duration int
		if len(os.Args) > 3 {
			var err error
			duration, err = strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
		}
		if err := banUser(storageSvc, userID, duration); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %s has been banned.\n", userID)
	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unban <user_id>")
			os.Exit(1)
		}
		userID := os.Args[2]
		if err := unbanUser(storageSvc, userID); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %s has been unbanned.\n", userID)
	case "confirm-report":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin confirm-report <report_id>")
			os.Exit(1)
		}
		reportIDStr := os.Args[2]
		reportID, err := strconv.Atoi(reportIDStr)
		if err != nil {
			fmt.Println("Invalid report ID. Please provide an integer.")
			os.Exit(1)
		}
		if err := reportSvc.ConfirmReport(uint(reportID)); err != nil {
			log.Fatalf("Error confirming report: %v", err)
		}
		fmt.Printf("Report %s has been confirmed.\n", reportIDStr)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func banUser(s storage.Storage, userID string, durationHours int) error {
	profile, err := s.GetProfile(context.Background(), userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	duration := config.BanLevel3Duration
	if durationHours > 0 {
		duration = time.Duration(durationHours) * time.Hour
	}
	profile.IsBlocked = true
	profile.BlockEndsAt = time.Now().Add(duration).Unix()
	if err := s.UpdateProfile(profile); err != nil {
		return err
	}
	return s.SetBanned(userID, duration)
}

func unbanUser(s storage.Storage, userID string) error {
	profile, err := s.GetProfile(context.Background(), userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	profile.IsBlocked = false
	profile.BlockEndsAt = 0
	if err := s.UpdateProfile(profile); err != nil {
		return err
	}
	return s.ClearBan(userID)
}
