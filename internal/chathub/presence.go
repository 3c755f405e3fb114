package chathub

import "time"

// PresenceEntry binds a user to their one current connection.
type PresenceEntry struct {
	UserID       string
	Client       Client
	LastActiveAt time.Time
}

// PresenceRegistry maps each user id to its active connection. It holds at
// most one entry per user; registering again supersedes the old connection.
// Not safe for concurrent use on its own: the Hub serializes access.
type PresenceRegistry struct {
	entries map[string]PresenceEntry
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{entries: make(map[string]PresenceEntry)}
}

// Register stores the connection for userID, returning the superseded client
// when the user was already present. Last register wins.
func (r *PresenceRegistry) Register(userID string, c Client) (Client, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	old, existed := r.entries[userID]
	r.entries[userID] = PresenceEntry{UserID: userID, Client: c, LastActiveAt: time.Now()}
	if existed && old.Client != c {
		return old.Client, nil
	}
	return nil, nil
}

// Lookup returns the current connection for userID.
func (r *PresenceRegistry) Lookup(userID string) (Client, bool) {
	entry, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return entry.Client, true
}

// Touch refreshes the user's last-activity timestamp.
func (r *PresenceRegistry) Touch(userID string) {
	if entry, ok := r.entries[userID]; ok {
		entry.LastActiveAt = time.Now()
		r.entries[userID] = entry
	}
}

// Remove deletes and returns the entry for userID.
func (r *PresenceRegistry) Remove(userID string) (PresenceEntry, bool) {
	entry, ok := r.entries[userID]
	if ok {
		delete(r.entries, userID)
	}
	return entry, ok
}

// UserIDForClient reverse-looks-up the user owning the given connection.
// A superseded connection no longer resolves to its user.
func (r *PresenceRegistry) UserIDForClient(c Client) (string, bool) {
	for id, entry := range r.entries {
		if entry.Client == c {
			return id, true
		}
	}
	return "", false
}

func (r *PresenceRegistry) Len() int {
	return len(r.entries)
}
