package chathub

// Pairing is one direction of an active pairing, carrying the id of the
// persisted match record it belongs to.
type Pairing struct {
	PartnerID string
	MatchID   string
}

// PairingTable is the symmetric map of active pairings: user X maps to Y iff
// Y maps to X, and both directions are always inserted and removed together.
// Not safe for concurrent use on its own: the Hub serializes access.
type PairingTable struct {
	pairings map[string]Pairing
}

func NewPairingTable() *PairingTable {
	return &PairingTable{pairings: make(map[string]Pairing)}
}

// Pair inserts both directions of a pairing. It fails if the two ids are the
// same user or either side already has a partner, leaving the table unchanged.
func (t *PairingTable) Pair(userA, userB, matchID string) error {
	if userA == "" || userB == "" {
		return ErrEmptyUserID
	}
	if userA == userB {
		return ErrAlreadyPaired
	}
	if _, ok := t.pairings[userA]; ok {
		return ErrAlreadyPaired
	}
	if _, ok := t.pairings[userB]; ok {
		return ErrAlreadyPaired
	}

	t.pairings[userA] = Pairing{PartnerID: userB, MatchID: matchID}
	t.pairings[userB] = Pairing{PartnerID: userA, MatchID: matchID}
	return nil
}

// Get returns the user's directed pairing entry.
func (t *PairingTable) Get(userID string) (Pairing, bool) {
	p, ok := t.pairings[userID]
	return p, ok
}

// PartnerOf returns the current partner of userID.
func (t *PairingTable) PartnerOf(userID string) (string, bool) {
	p, ok := t.pairings[userID]
	if !ok {
		return "", false
	}
	return p.PartnerID, true
}

// Unpair removes both directions of the user's pairing and returns it.
// Idempotent: unpaired users yield ok=false.
func (t *PairingTable) Unpair(userID string) (Pairing, bool) {
	p, ok := t.pairings[userID]
	if !ok {
		return Pairing{}, false
	}
	delete(t.pairings, userID)
	delete(t.pairings, p.PartnerID)
	return p, true
}

// Len returns the number of active pairings (not directed entries).
func (t *PairingTable) Len() int {
	return len(t.pairings) / 2
}
