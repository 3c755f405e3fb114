package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"pairgo/backend/internal/config"
	"pairgo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the persistence surface consumed by the hub, the matchmaker and
// the report service: the profile directory, match records, reports, and the
// Redis-backed online/ban/queue state.
type Storage interface {
	// Profile directory
	EnsureProfile(userID string) (*models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(profile *models.Profile) error
	UpdateReputation(userID string, delta int) error
	ListOnlineProfiles(ctx context.Context, excludeID string) ([]models.Profile, error)
	GetBlockedIDs(ctx context.Context, reporterID string) ([]string, error)

	// Online / ban state
	IsOnline(ctx context.Context, userID string) (bool, error)
	SetOnline(userID string) error
	SetOffline(userID string) error
	IsBanned(userID string) (bool, error)
	SetBanned(userID string, d time.Duration) error
	ClearBan(userID string) error

	// Match records
	SaveMatch(ctx context.Context, match *models.Match) error
	CloseMatch(matchID, reason string) error
	HasActiveMatch(ctx context.Context, userID string) (bool, error)

	// Search queue mirror (operational visibility only; the in-memory
	// waiting queue is authoritative)
	AddToSearchQueue(userID string) error
	RemoveFromSearchQueue(userID string) error

	// Reports
	SaveReport(report *models.Report) error
	GetReportByID(id uint) (*models.Report, error)
	CountRecentReports(userID string, since time.Time) (int64, error)

	// Events
	PublishEvent(event string, payload any) error
}

const (
	onlineSetKey   = "online_users"
	searchQueueKey = "search_queue"
	eventsChannel  = "events"
)

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService Constructor
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// EnsureProfile loads the profile for userID, creating a default row on
// first contact.
func (s *Service) EnsureProfile(userID string) (*models.Profile, error) {
	var profile models.Profile

	defaults := models.Profile{
		ID:         userID,
		Reputation: config.InitialReputation,
	}

	result := s.DB.Where("id = ?", userID).FirstOrCreate(&profile, defaults)
	if result.Error != nil {
		log.Printf("ERROR: Failed to ensure profile for %s: %v", userID, result.Error)
		return nil, result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("INFO: New profile %s created on first contact.", userID)
	}

	return &profile, nil
}

// GetProfile returns the profile for userID, or nil without error when the
// user is unknown to the directory.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile

	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Service) UpdateProfile(profile *models.Profile) error {
	return s.DB.Save(profile).Error
}

// UpdateReputation applies a delta to the user's reputation score.
func (s *Service) UpdateReputation(userID string, delta int) error {
	return s.DB.Model(&models.Profile{}).
		Where("id = ?", userID).
		Update("reputation", gorm.Expr("reputation + ?", delta)).Error
}

// ListOnlineProfiles returns the directory's candidate pool: every profile
// currently marked online in Redis, excluding the requester and blocked rows.
func (s *Service) ListOnlineProfiles(ctx context.Context, excludeID string) ([]models.Profile, error) {
	onlineIDs, err := s.Redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(onlineIDs))
	for _, id := range onlineIDs {
		if id != excludeID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var profiles []models.Profile
	err = s.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Where("is_blocked = ?", false).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetBlockedIDs returns the IDs of every user the reporter has reported.
// The matchmaker excludes them from the reporter's candidate pool.
func (s *Service) GetBlockedIDs(ctx context.Context, reporterID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ?", reporterID).
		Distinct().
		Pluck("reported_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// IsOnline reports whether userID is in the Redis online set.
func (s *Service) IsOnline(ctx context.Context, userID string) (bool, error) {
	return s.Redis.SIsMember(ctx, onlineSetKey, userID).Result()
}

func (s *Service) SetOnline(userID string) error {
	return s.Redis.SAdd(s.Ctx, onlineSetKey, userID).Err()
}

func (s *Service) SetOffline(userID string) error {
	return s.Redis.SRem(s.Ctx, onlineSetKey, userID).Err()
}

// IsBanned checks the ban key in Redis.
func (s *Service) IsBanned(userID string) (bool, error) {
	key := "ban:" + userID
	status, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// SetBanned writes the ban key with the given expiry.
func (s *Service) SetBanned(userID string, d time.Duration) error {
	return s.Redis.Set(s.Ctx, "ban:"+userID, "active", d).Err()
}

// ClearBan removes the ban key.
func (s *Service) ClearBan(userID string) error {
	return s.Redis.Del(s.Ctx, "ban:"+userID).Err()
}

// SaveMatch persists a match row and mirrors the active pairing into Redis
// guard keys, so other processes can see the pairing before reading Postgres.
func (s *Service) SaveMatch(ctx context.Context, match *models.Match) error {
	if err := s.DB.WithContext(ctx).Save(match).Error; err != nil {
		log.Printf("ERROR: Failed to save match %s: %v", match.MatchID, err)
		return err
	}

	if match.IsActive {
		if err := s.Redis.MSet(ctx,
			"pair:"+match.UserAID, match.UserBID,
			"pair:"+match.UserBID, match.UserAID,
		).Err(); err != nil {
			log.Printf("WARNING: Failed to set pair guard keys for match %s: %v", match.MatchID, err)
		}
	}
	return nil
}

// CloseMatch marks a match row inactive and clears its guard keys.
func (s *Service) CloseMatch(matchID, reason string) error {
	var match models.Match
	if err := s.DB.Where("match_id = ?", matchID).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	err := s.DB.Model(&models.Match{}).
		Where("match_id = ?", matchID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   gorm.Expr("NOW()"),
			"end_reason": reason,
		}).Error
	if err != nil {
		return err
	}

	if err := s.Redis.Del(s.Ctx, "pair:"+match.UserAID, "pair:"+match.UserBID).Err(); err != nil {
		log.Printf("WARNING: Failed to clear pair guard keys for match %s: %v", matchID, err)
	}
	return nil
}

// HasActiveMatch reports whether a persisted active pairing exists for the
// user. The Redis guard key answers first; Postgres is the fallback when the
// key is absent.
func (s *Service) HasActiveMatch(ctx context.Context, userID string) (bool, error) {
	_, err := s.Redis.Get(ctx, "pair:"+userID).Result()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return false, err
	}

	var count int64
	err = s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("is_active = ?", true).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddToSearchQueue mirrors a waiting user into Redis.
func (s *Service) AddToSearchQueue(userID string) error {
	return s.Redis.SAdd(s.Ctx, searchQueueKey, userID).Err()
}

// RemoveFromSearchQueue removes a user from the Redis mirror.
func (s *Service) RemoveFromSearchQueue(userID string) error {
	return s.Redis.SRem(s.Ctx, searchQueueKey, userID).Err()
}

func (s *Service) SaveReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = "new"
	}

	result := s.DB.Create(report)
	if result.Error != nil {
		log.Printf("ERROR: Failed to save report against %s: %v", report.ReportedID, result.Error)
		return result.Error
	}
	return nil
}

// GetReportByID returns the report with the given row ID, or nil without
// error when it does not exist.
func (s *Service) GetReportByID(id uint) (*models.Report, error) {
	var report models.Report

	err := s.DB.First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// CountRecentReports counts reports filed against userID since the cutoff.
func (s *Service) CountRecentReports(userID string, since time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Report{}).
		Where("reported_id = ?", userID).
		Where("created_at > ?", since).
		Count(&count).Error
	return count, err
}

// PublishEvent publishes an operational event to the Redis events channel.
func (s *Service) PublishEvent(event string, payload any) error {
	body, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, eventsChannel, string(body)).Err()
}
