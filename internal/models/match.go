package models

import "time"

// Match is the persisted record of one pairing between two users.
// A row with IsActive=true mirrors an entry in the in-memory pairing table;
// the matchmaker writes it before a pairing is announced and the lifecycle
// handler closes it on teardown.
type Match struct {
	// MatchID is the unique identifier for the pairing (UUID).
	MatchID string `gorm:"primaryKey"`
	// UserAID is the anonymous ID of the requester.
	UserAID string `gorm:"index"`
	// UserBID is the anonymous ID of the selected candidate.
	UserBID string `gorm:"index"`
	// IsActive indicates whether the pairing is still live.
	IsActive bool
	// StartedAt is when the matchmaker committed the pairing.
	StartedAt time.Time
	// EndedAt is when the pairing was torn down.
	EndedAt time.Time
	// EndReason records why the pairing ended ("user_left", "disconnected", "reported").
	EndReason string
}
