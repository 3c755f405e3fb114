package chathub

import (
	"context"
	"errors"
	"log"
	"sync"

	"pairgo/backend/internal/models"
	"pairgo/backend/internal/storage"
)

// Chat-end reasons carried on chat_ended events and match records.
const (
	ReasonUserLeft     = "user_left"
	ReasonDisconnected = "disconnected"
	ReasonReported     = "reported"
)

// ReportSink receives user reports raised over the socket. Wired to the
// reports service at bootstrap; when nil, reports are persisted directly.
type ReportSink interface {
	HandleReport(report *models.Report) error
}

// Hub owns the presence registry, the waiting queue and the pairing table.
// One mutex guards the three structures as a unit, so no interleaving can
// leave a user simultaneously waiting and paired, or a pairing half-inserted.
// External calls (directory, match records) are never made while the lock is
// held; the matchmaker snapshots state, releases, and re-validates on commit.
type Hub struct {
	mu       sync.Mutex
	presence *PresenceRegistry
	queue    *WaitingQueue
	pairs    *PairingTable

	Storage storage.Storage
	Reports ReportSink

	matcher *Matchmaker
}

// NewHub creates a hub backed by the given storage. When directoryMatching
// is true, the matchmaker augments the waiting queue with online profiles
// from the directory.
func NewHub(s storage.Storage, directoryMatching bool) *Hub {
	h := &Hub{
		presence: NewPresenceRegistry(),
		queue:    NewWaitingQueue(),
		pairs:    NewPairingTable(),
		Storage:  s,
	}
	h.matcher = NewMatchmaker(h, s, directoryMatching)
	return h
}

func (h *Hub) SetReportSink(sink ReportSink) {
	h.Reports = sink
}

// Dispatch routes one inbound event to its core operation and sends the
// acknowledgment back on the originating connection. Called from the
// connection's read pump.
func (h *Hub) Dispatch(c Client, ev models.ClientEvent) {
	switch ev.Type {
	case models.EventRegister:
		h.ack(c, ev.Type, h.Register(ev.UserID, c))

	case models.EventFindMatch:
		err := h.FindMatch(c.GetUserID(), ev.Preferences)
		if errors.Is(err, ErrNoEligibleCandidates) {
			// Silent wait: the requester stays queued.
			err = nil
		}
		h.ack(c, ev.Type, err)

	case models.EventCancelSearch:
		h.CancelSearch(c.GetUserID())
		h.ack(c, ev.Type, nil)

	case models.EventSendMessage:
		h.ack(c, ev.Type, h.RelayMessage(c.GetUserID(), ev.To, ev.Message))

	case models.EventTyping:
		h.RelayTyping(c.GetUserID(), ev.PartnerID, ev.IsTyping)

	case models.EventEndChat:
		reason := ev.Reason
		if reason == "" {
			reason = ReasonUserLeft
		}
		h.EndChat(c.GetUserID(), ev.PartnerID, reason)
		h.ack(c, ev.Type, nil)

	case models.EventReport:
		h.ack(c, ev.Type, h.Report(c.GetUserID(), ev.PartnerID, ev.Reason))

	default:
		h.ack(c, ev.Type, ErrBadEvent)
	}
}

// Register binds userID to the connection. A prior connection for the same
// user is superseded and closed without notification (last register wins).
// Banned users are rejected before any state is touched.
func (h *Hub) Register(userID string, c Client) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if userID != c.GetUserID() {
		return ErrBadEvent
	}

	banned, err := h.Storage.IsBanned(userID)
	if err != nil {
		return ErrDirectoryUnavailable
	}
	if banned {
		return ErrBanned
	}
	if _, err := h.Storage.EnsureProfile(userID); err != nil {
		return ErrDirectoryUnavailable
	}

	h.mu.Lock()
	superseded, err := h.presence.Register(userID, c)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	if superseded != nil {
		superseded.Close()
	}
	if err := h.Storage.SetOnline(userID); err != nil {
		log.Printf("WARNING: Failed to mark %s online: %v", userID, err)
	}

	log.Printf("Registered user %s", userID)
	return nil
}

// FindMatch enqueues the user and runs one match attempt. Re-requesting
// while already waiting refreshes the entry instead of erroring; requesting
// while paired is rejected.
func (h *Hub) FindMatch(userID string, prefs models.Preferences) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	h.mu.Lock()
	client, registered := h.presence.Lookup(userID)
	if !registered {
		h.mu.Unlock()
		return ErrNotRegistered
	}
	if _, paired := h.pairs.PartnerOf(userID); paired {
		h.mu.Unlock()
		return ErrAlreadyInChat
	}
	h.presence.Touch(userID)
	h.queue.Enqueue(userID, client, prefs)
	h.mu.Unlock()

	if err := h.Storage.AddToSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to mirror %s into the search queue: %v", userID, err)
	}

	return h.matcher.AttemptMatch(context.Background(), userID)
}

// CancelSearch removes the user from the waiting queue. Idempotent.
func (h *Hub) CancelSearch(userID string) {
	h.mu.Lock()
	h.queue.Cancel(userID)
	h.mu.Unlock()

	if err := h.Storage.RemoveFromSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to remove %s from the search queue mirror: %v", userID, err)
	}
}

// RelayMessage delivers a message to the recipient's current connection.
// Best effort: no queueing for offline recipients.
func (h *Hub) RelayMessage(fromID, toID, message string) error {
	if toID == "" {
		return ErrEmptyUserID
	}

	h.mu.Lock()
	recipient, online := h.presence.Lookup(toID)
	h.presence.Touch(fromID)
	h.mu.Unlock()

	if !online {
		return ErrRecipientNotFound
	}
	h.deliver(recipient, models.ServerEvent{
		Type:    models.EventReceiveMessage,
		From:    fromID,
		Message: message,
	})
	return nil
}

// RelayTyping forwards a typing signal. Fire and forget: silently dropped
// when the recipient is offline.
func (h *Hub) RelayTyping(fromID, toID string, isTyping bool) {
	h.mu.Lock()
	recipient, online := h.presence.Lookup(toID)
	h.mu.Unlock()

	if !online {
		return
	}
	h.deliver(recipient, models.ServerEvent{
		Type:     models.EventPartnerTyping,
		From:     fromID,
		IsTyping: isTyping,
	})
}

// EndChat tears down the pairing between userID and partnerID and notifies
// the partner with the supplied reason. Ending a pairing that does not exist
// (or no longer matches partnerID) is a no-op.
func (h *Hub) EndChat(userID, partnerID, reason string) {
	h.mu.Lock()
	partner, paired := h.pairs.PartnerOf(userID)
	if !paired || (partnerID != "" && partner != partnerID) {
		h.mu.Unlock()
		return
	}
	pairing, _ := h.pairs.Unpair(userID)
	partnerClient, partnerOnline := h.presence.Lookup(pairing.PartnerID)
	h.mu.Unlock()

	if partnerOnline {
		h.deliver(partnerClient, models.ServerEvent{Type: models.EventChatEnded, Reason: reason})
	}
	h.closeMatchRecord(pairing.MatchID, reason)
	log.Printf("Chat ended between %s and %s (%s)", userID, pairing.PartnerID, reason)
}

// Disconnect unwinds a dropped connection from all three registries and
// notifies any affected partner. A superseded or never-registered connection
// resolves to no user and is a no-op.
func (h *Hub) Disconnect(c Client) {
	h.mu.Lock()
	userID, ok := h.presence.UserIDForClient(c)
	if !ok {
		h.mu.Unlock()
		return
	}
	h.presence.Remove(userID)
	h.queue.Remove(userID)
	pairing, paired := h.pairs.Unpair(userID)

	var partnerClient Client
	var partnerOnline bool
	if paired {
		partnerClient, partnerOnline = h.presence.Lookup(pairing.PartnerID)
	}
	h.mu.Unlock()

	if paired {
		if partnerOnline {
			h.deliver(partnerClient, models.ServerEvent{
				Type:   models.EventChatEnded,
				Reason: ReasonDisconnected,
			})
		}
		h.closeMatchRecord(pairing.MatchID, ReasonDisconnected)
	}
	if err := h.Storage.SetOffline(userID); err != nil {
		log.Printf("WARNING: Failed to mark %s offline: %v", userID, err)
	}
	if err := h.Storage.RemoveFromSearchQueue(userID); err != nil {
		log.Printf("WARNING: Failed to remove %s from the search queue mirror: %v", userID, err)
	}

	log.Printf("User %s disconnected", userID)
}

// Report files a report against reportedID and, when the two are currently
// paired, ends the chat with reason "reported".
func (h *Hub) Report(reporterID, reportedID, reason string) error {
	if reportedID == "" {
		return ErrEmptyUserID
	}

	h.mu.Lock()
	var matchID string
	pairing, paired := h.pairs.Get(reporterID)
	paired = paired && pairing.PartnerID == reportedID
	if paired {
		matchID = pairing.MatchID
	}
	h.mu.Unlock()

	report := &models.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		MatchID:    matchID,
		Reason:     reason,
	}

	var err error
	if h.Reports != nil {
		err = h.Reports.HandleReport(report)
	} else {
		err = h.Storage.SaveReport(report)
	}
	if err != nil {
		return ErrDirectoryUnavailable
	}

	if paired {
		h.EndChat(reporterID, reportedID, ReasonReported)
	}
	return nil
}

// Stats is the operational snapshot served on /stats.
type Stats struct {
	Connections int `json:"connections"`
	Waiting     int `json:"waiting"`
	ActivePairs int `json:"active_pairs"`
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Connections: h.presence.Len(),
		Waiting:     h.queue.Len(),
		ActivePairs: h.pairs.Len(),
	}
}

// deliver pushes an event onto the client's send channel without blocking
// the hub: a connection with a full buffer loses the event.
func (h *Hub) deliver(c Client, ev models.ServerEvent) {
	select {
	case c.GetSendChannel() <- ev:
	default:
		log.Printf("Dropping %s event for %s: send buffer full", ev.Type, c.GetUserID())
	}
}

func (h *Hub) ack(c Client, op string, err error) {
	if err != nil {
		h.deliver(c, models.Nack(op, err))
		return
	}
	h.deliver(c, models.Ack(op))
}

func (h *Hub) closeMatchRecord(matchID, reason string) {
	if err := h.Storage.CloseMatch(matchID, reason); err != nil {
		log.Printf("WARNING: Failed to close match %s: %v", matchID, err)
	}
	if err := h.Storage.PublishEvent(models.EventChatEnded, map[string]string{
		"matchId": matchID,
		"reason":  reason,
	}); err != nil {
		log.Printf("WARNING: Failed to publish chat_ended for match %s: %v", matchID, err)
	}
}
