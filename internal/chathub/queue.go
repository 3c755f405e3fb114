package chathub

import (
	"time"

	"pairgo/backend/internal/models"
)

// WaitingEntry is one queued match request: the requesting connection plus
// the preference snapshot captured at enqueue time.
type WaitingEntry struct {
	UserID      string
	Client      Client
	Preferences models.Preferences
	EnqueuedAt  time.Time
}

// WaitingQueue is the unordered set of users waiting for a partner, keyed by
// user id so membership checks and removals are O(1). At most one entry per
// user. Not safe for concurrent use on its own: the Hub serializes access.
type WaitingQueue struct {
	entries map[string]WaitingEntry
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{entries: make(map[string]WaitingEntry)}
}

// Enqueue adds or refreshes the waiting entry for userID. Re-requesting
// overwrites the stale entry with the new preferences and timestamp.
func (q *WaitingQueue) Enqueue(userID string, c Client, prefs models.Preferences) {
	q.entries[userID] = WaitingEntry{
		UserID:      userID,
		Client:      c,
		Preferences: prefs,
		EnqueuedAt:  time.Now(),
	}
}

// Cancel removes the user's entry if present. Idempotent.
func (q *WaitingQueue) Cancel(userID string) {
	delete(q.entries, userID)
}

// Remove deletes the user's entry; used by the matchmaker and lifecycle paths.
func (q *WaitingQueue) Remove(userID string) {
	delete(q.entries, userID)
}

// Get returns the waiting entry for userID.
func (q *WaitingQueue) Get(userID string) (WaitingEntry, bool) {
	entry, ok := q.entries[userID]
	return entry, ok
}

// Contains reports whether userID is currently waiting.
func (q *WaitingQueue) Contains(userID string) bool {
	_, ok := q.entries[userID]
	return ok
}

// SnapshotExcluding returns every waiting entry except userID's own, in
// arbitrary order.
func (q *WaitingQueue) SnapshotExcluding(userID string) []WaitingEntry {
	snapshot := make([]WaitingEntry, 0, len(q.entries))
	for id, entry := range q.entries {
		if id == userID {
			continue
		}
		snapshot = append(snapshot, entry)
	}
	return snapshot
}

func (q *WaitingQueue) Len() int {
	return len(q.entries)
}
