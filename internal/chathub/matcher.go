package chathub

import (
	"context"
	"log"
	"math/rand"
	"time"

	"pairgo/backend/internal/config"
	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"

	"github.com/google/uuid"
)

// Matchmaker finds partners for waiting users. A match attempt runs in three
// phases: snapshot the queue under the hub lock, consult the directory with
// the lock released, then re-acquire the lock to re-validate and commit. The
// directory round-trips are bounded by config.DirectoryTimeout; on expiry the
// attempt fails as retryable and the requester stays queued.
type Matchmaker struct {
	hub     *Hub
	storage storage.Storage

	// directoryMode augments the candidate pool with online directory
	// profiles and cross-checks persisted match records.
	directoryMode bool
}

// NewMatchmaker creates a matchmaker bound to the hub's registries.
func NewMatchmaker(hub *Hub, s storage.Storage, directoryMode bool) *Matchmaker {
	return &Matchmaker{hub: hub, storage: s, directoryMode: directoryMode}
}

// AttemptMatch runs one match attempt for a user already in the waiting
// queue. On success both participants leave the queue, the pairing is
// committed in memory and persisted, and both connections receive a
// match_found event. With no eligible candidate the requester stays queued
// and ErrNoEligibleCandidates is returned.
func (m *Matchmaker) AttemptMatch(ctx context.Context, userID string) error {
	m.hub.mu.Lock()
	entry, waiting := m.hub.queue.Get(userID)
	if !waiting {
		// Cancelled or matched since enqueue.
		m.hub.mu.Unlock()
		return nil
	}
	snapshot := m.hub.queue.SnapshotExcluding(userID)
	m.hub.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, config.DirectoryTimeout)
	defer cancel()

	survivors, err := m.eligibleCandidates(ctx, entry, snapshot)
	if err != nil {
		return err
	}
	if len(survivors) == 0 {
		return ErrNoEligibleCandidates
	}

	// Uniform-random selection: shuffle, then commit takes the first
	// survivor that is still eligible.
	rand.Shuffle(len(survivors), func(i, j int) {
		survivors[i], survivors[j] = survivors[j], survivors[i]
	})

	return m.commit(ctx, entry, survivors)
}

// eligibleCandidates re-validates the requester against the directory and
// returns the candidate ids passing every exclusion and preference filter.
func (m *Matchmaker) eligibleCandidates(ctx context.Context, req WaitingEntry, snapshot []WaitingEntry) ([]string, error) {
	online, err := m.storage.IsOnline(ctx, req.UserID)
	if err != nil {
		return nil, ErrDirectoryUnavailable
	}
	if !online {
		m.dropFromQueue(req.UserID)
		return nil, ErrNotRegistered
	}
	if m.directoryMode {
		pairedElsewhere, err := m.storage.HasActiveMatch(ctx, req.UserID)
		if err != nil {
			return nil, ErrDirectoryUnavailable
		}
		if pairedElsewhere {
			m.dropFromQueue(req.UserID)
			return nil, ErrAlreadyInChat
		}
	}

	blockedIDs, err := m.storage.GetBlockedIDs(ctx, req.UserID)
	if err != nil {
		return nil, ErrDirectoryUnavailable
	}
	blocked := make(map[string]bool, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = true
	}

	pool := make([]string, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))
	for _, cand := range snapshot {
		if !seen[cand.UserID] {
			seen[cand.UserID] = true
			pool = append(pool, cand.UserID)
		}
	}

	// Profiles are needed for attribute filtering and for directory-sourced
	// candidates; with wildcard preferences in queue-only mode the directory
	// is not consulted at all.
	needProfiles := m.directoryMode || !req.Preferences.AnyGender() || !req.Preferences.AnyInterests()
	profiles := make(map[string]*models.Profile)
	if needProfiles {
		list, err := m.storage.ListOnlineProfiles(ctx, req.UserID)
		if err != nil {
			return nil, ErrDirectoryUnavailable
		}
		for i := range list {
			p := &list[i]
			profiles[p.ID] = p
			if m.directoryMode && !seen[p.ID] {
				seen[p.ID] = true
				pool = append(pool, p.ID)
			}
		}
	}

	survivors := make([]string, 0, len(pool))
	for _, id := range pool {
		if blocked[id] {
			continue
		}
		if m.directoryMode {
			// Persisted records guard against pairings this process
			// does not know about.
			paired, err := m.storage.HasActiveMatch(ctx, id)
			if err != nil {
				return nil, ErrDirectoryUnavailable
			}
			if paired {
				continue
			}
		}
		if !matchesPreferences(req.Preferences, profiles[id]) {
			continue
		}
		survivors = append(survivors, id)
	}
	return survivors, nil
}

// commit re-validates under the hub lock and installs the pairing with the
// first still-eligible survivor, then persists the match record before
// announcing the result to either side.
func (m *Matchmaker) commit(ctx context.Context, req WaitingEntry, survivors []string) error {
	m.hub.mu.Lock()

	// A cancel_search racing this attempt wins if it removed the entry
	// first: the requester observes the cancellation, not a match.
	if !m.hub.queue.Contains(req.UserID) {
		m.hub.mu.Unlock()
		return nil
	}
	if _, paired := m.hub.pairs.PartnerOf(req.UserID); paired {
		m.hub.queue.Remove(req.UserID)
		m.hub.mu.Unlock()
		return ErrAlreadyInChat
	}

	var partnerID string
	var partnerClient Client
	for _, cand := range survivors {
		if cand == req.UserID {
			continue
		}
		if _, paired := m.hub.pairs.PartnerOf(cand); paired {
			continue
		}
		client, connected := m.hub.presence.Lookup(cand)
		if !connected {
			continue
		}
		if !m.hub.queue.Contains(cand) && !m.directoryMode {
			continue
		}
		partnerID = cand
		partnerClient = client
		break
	}
	if partnerID == "" {
		m.hub.mu.Unlock()
		return ErrNoEligibleCandidates
	}

	matchID := uuid.New().String()
	if err := m.hub.pairs.Pair(req.UserID, partnerID, matchID); err != nil {
		m.hub.mu.Unlock()
		return err
	}
	partnerEntry, partnerWasQueued := m.hub.queue.Get(partnerID)
	m.hub.queue.Remove(req.UserID)
	m.hub.queue.Remove(partnerID)
	requesterClient, _ := m.hub.presence.Lookup(req.UserID)
	m.hub.mu.Unlock()

	match := &models.Match{
		MatchID:   matchID,
		UserAID:   req.UserID,
		UserBID:   partnerID,
		IsActive:  true,
		StartedAt: time.Now(),
	}
	if err := m.storage.SaveMatch(ctx, match); err != nil {
		m.rollback(req, partnerEntry, partnerWasQueued, matchID)
		return ErrDirectoryUnavailable
	}

	// The pairing may have been torn down while the record was being
	// written (a participant disconnected). Announce only if intact.
	m.hub.mu.Lock()
	current, stillPaired := m.hub.pairs.Get(req.UserID)
	intact := stillPaired && current.MatchID == matchID
	if !intact {
		if _, registered := m.hub.presence.Lookup(req.UserID); registered {
			m.hub.queue.Enqueue(req.UserID, req.Client, req.Preferences)
		}
	}
	m.hub.mu.Unlock()
	if !intact {
		if err := m.storage.CloseMatch(matchID, ReasonDisconnected); err != nil {
			log.Printf("WARNING: Failed to close aborted match %s: %v", matchID, err)
		}
		return ErrNoEligibleCandidates
	}

	if requesterClient != nil {
		m.hub.deliver(requesterClient, models.ServerEvent{Type: models.EventMatchFound, PartnerID: partnerID})
	}
	m.hub.deliver(partnerClient, models.ServerEvent{Type: models.EventMatchFound, PartnerID: req.UserID})

	if err := m.storage.RemoveFromSearchQueue(req.UserID); err != nil {
		log.Printf("WARNING: Failed to remove %s from the search queue mirror: %v", req.UserID, err)
	}
	if err := m.storage.RemoveFromSearchQueue(partnerID); err != nil {
		log.Printf("WARNING: Failed to remove %s from the search queue mirror: %v", partnerID, err)
	}
	if err := m.storage.PublishEvent(models.EventMatchFound, map[string]string{
		"matchId": matchID,
		"userA":   req.UserID,
		"userB":   partnerID,
	}); err != nil {
		log.Printf("WARNING: Failed to publish match_found for match %s: %v", matchID, err)
	}

	log.Printf("Match found: %s and %s (match %s)", req.UserID, partnerID, matchID)
	return nil
}

// rollback undoes an in-memory pairing whose match record could not be
// written. Both participants return to the waiting queue if still connected;
// only the requester sees the retryable error.
func (m *Matchmaker) rollback(req WaitingEntry, partnerEntry WaitingEntry, partnerWasQueued bool, matchID string) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()

	if current, ok := m.hub.pairs.Get(req.UserID); ok && current.MatchID == matchID {
		m.hub.pairs.Unpair(req.UserID)
	}
	if _, registered := m.hub.presence.Lookup(req.UserID); registered {
		m.hub.queue.Enqueue(req.UserID, req.Client, req.Preferences)
	}
	if partnerWasQueued {
		if _, registered := m.hub.presence.Lookup(partnerEntry.UserID); registered {
			m.hub.queue.Enqueue(partnerEntry.UserID, partnerEntry.Client, partnerEntry.Preferences)
		}
	}
}

func (m *Matchmaker) dropFromQueue(userID string) {
	m.hub.mu.Lock()
	m.hub.queue.Remove(userID)
	m.hub.mu.Unlock()
}

// matchesPreferences applies the requester's filters to the candidate.
// Filters are requester-directed only: the candidate's own preferences are
// not consulted.
func matchesPreferences(prefs models.Preferences, candidate *models.Profile) bool {
	if !prefs.AnyGender() {
		if candidate == nil || candidate.Gender != prefs.Gender {
			return false
		}
	}
	if !prefs.AnyInterests() {
		if candidate == nil {
			return false
		}
		shared := false
		for _, want := range prefs.Interests {
			for _, have := range candidate.Interests {
				if want == have {
					shared = true
					break
				}
			}
			if shared {
				break
			}
		}
		if !shared {
			return false
		}
	}
	return true
}
