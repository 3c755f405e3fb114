// Package reports provides the core logic for handling user reports,
// including reputation management and applying restrictions.
package reports

import (
	"context"
	"errors"
	"log"
	"time"

	"pairgo/backend/internal/config"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"
)

// Notifier pushes an operational alert about a new report, e.g. to the admin
// Telegram chat.
type Notifier interface {
	NotifyReport(report *models.Report) error
}

// Service handles the business logic for reports.
type Service struct {
	Storage  storage.Storage
	Notifier Notifier
}

// NewService creates a new report service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

func (s *Service) SetNotifier(n Notifier) {
	s.Notifier = n
}

// HandleReport persists a new report, applies the reputation penalty for its
// reason class, and checks whether the reported user crossed a ban threshold.
// Alert delivery is best effort.
func (s *Service) HandleReport(report *models.Report) error {
	if err := s.Storage.SaveReport(report); err != nil {
		return err
	}

	if weight := config.ReportWeights[report.Reason]; weight > 0 {
		if err := s.Storage.UpdateReputation(report.ReportedID, -weight); err != nil {
			return err
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyReport(report); err != nil {
			log.Printf("WARNING: Failed to send report alert: %v", err)
		}
	}

	return s.CheckForBan(report.ReportedID)
}

// CheckForBan bans a user whose reputation fell below the threshold or who
// collected too many reports inside the frequency window.
func (s *Service) CheckForBan(userID string) error {
	profile, err := s.Storage.GetProfile(context.Background(), userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}

	// Threshold ban
	if profile.Reputation < config.BanThresholdReputation {
		return s.applyBan(profile)
	}

	// Frequency ban
	recent, err := s.Storage.CountRecentReports(userID, time.Now().Add(-config.BanFrequencyWindow))
	if err != nil {
		return err
	}
	if recent > config.BanThresholdFrequency {
		return s.applyBan(profile)
	}

	return nil
}

// ConfirmReport marks a report as valid and rewards the reporter.
func (s *Service) ConfirmReport(id uint) error {
	report, err := s.Storage.GetReportByID(id)
	if err != nil {
		return err
	}
	if report == nil {
		return errors.New("report not found")
	}
	return s.Storage.UpdateReputation(report.ReporterID, config.ConfirmedReportReward)
}

func (s *Service) applyBan(profile *models.Profile) error {
	level := 1
	if profile.LastBanAt > 0 {
		if time.Since(time.Unix(profile.LastBanAt, 0)) < 7*24*time.Hour {
			level = 2
		} else if time.Since(time.Unix(profile.LastBanAt, 0)) < 30*24*time.Hour {
			level = 3
		}
	}

	duration := banDuration(level)
	profile.IsBlocked = true
	profile.BlockEndsAt = time.Now().Add(duration).Unix()
	profile.BlockLevel = level
	profile.LastBanAt = time.Now().Unix()

	if err := s.Storage.UpdateProfile(profile); err != nil {
		return err
	}
	return s.Storage.SetBanned(profile.ID, duration)
}

func banDuration(level int) time.Duration {
	switch level {
	case 1:
		return config.BanLevel1Duration
	case 2:
		return config.BanLevel2Duration
	default:
		return config.BanLevel3Duration
	}
}
