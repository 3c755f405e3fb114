package chathub_test

import (
	"errors"
	"testing"

	"pairgo/backend/internal/chathub"
	"pairgo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// pairUsers registers two users and pairs them through the matchmaker.
func pairUsers(t *testing.T, h *chathub.Hub, idA, idB string) (*mockClient, *mockClient) {
	t.Helper()
	a := registerUser(t, h, idA)
	b := registerUser(t, h, idB)
	assert.ErrorIs(t, h.FindMatch(idA, models.Preferences{}), chathub.ErrNoEligibleCandidates)
	assert.NoError(t, h.FindMatch(idB, models.Preferences{}))
	a.drain()
	b.drain()
	return a, b
}

func TestRegisterRejectsEmptyUserID(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)

	err := h.Register("", newMockClient(""))
	assert.ErrorIs(t, err, chathub.ErrEmptyUserID)
	assert.Equal(t, 0, h.Stats().Connections)
}

func TestRegisterRejectsMismatchedUserID(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)

	err := h.Register("alice", newMockClient("mallory"))
	assert.ErrorIs(t, err, chathub.ErrBadEvent)
}

func TestRegisterRejectsBannedUser(t *testing.T) {
	s := new(MockStorage)
	s.On("IsBanned", "alice").Return(true, nil)
	permissiveDefaults(s)
	h := chathub.NewHub(s, false)

	err := h.Register("alice", newMockClient("alice"))
	assert.ErrorIs(t, err, chathub.ErrBanned)
	assert.Equal(t, 0, h.Stats().Connections)
}

func TestRegisterSupersedesPriorConnection(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)

	old := registerUser(t, h, "alice")
	fresh := registerUser(t, h, "alice")

	assert.True(t, old.closed, "superseded connection must be closed")
	assert.False(t, fresh.closed)
	assert.Equal(t, 1, h.Stats().Connections)

	// Traffic lands on the new connection only.
	registerUser(t, h, "bob")
	assert.NoError(t, h.RelayMessage("bob", "alice", "hi"))
	assert.Empty(t, old.eventsOfType(models.EventReceiveMessage))
	assert.Len(t, fresh.eventsOfType(models.EventReceiveMessage), 1)
}

func TestFindMatchRequiresRegistration(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)

	err := h.FindMatch("ghost", models.Preferences{})
	assert.ErrorIs(t, err, chathub.ErrNotRegistered)
}

func TestFindMatchRejectsPairedUser(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	pairUsers(t, h, "alice", "bob")

	err := h.FindMatch("alice", models.Preferences{})
	assert.ErrorIs(t, err, chathub.ErrAlreadyInChat)
	assert.Equal(t, 0, h.Stats().Waiting)
}

func TestCancelSearchIsIdempotent(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	registerUser(t, h, "alice")

	assert.ErrorIs(t, h.FindMatch("alice", models.Preferences{}), chathub.ErrNoEligibleCandidates)
	h.CancelSearch("alice")
	h.CancelSearch("alice")
	h.CancelSearch("never-searched")

	assert.Equal(t, 0, h.Stats().Waiting)
}

func TestRelayMessageToOfflineRecipient(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	registerUser(t, h, "alice")

	err := h.RelayMessage("alice", "ghost", "anyone there?")
	assert.ErrorIs(t, err, chathub.ErrRecipientNotFound)
}

func TestRelayMessageDelivers(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	registerUser(t, h, "alice")
	bob := registerUser(t, h, "bob")

	assert.NoError(t, h.RelayMessage("alice", "bob", "hello"))

	events := bob.eventsOfType(models.EventReceiveMessage)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "alice", events[0].From)
		assert.Equal(t, "hello", events[0].Message)
	}
}

func TestRelayTypingIsSilentWhenOffline(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	alice := registerUser(t, h, "alice")

	h.RelayTyping("alice", "ghost", true)
	assert.Empty(t, alice.drain())
}

func TestRelayTypingDelivers(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	registerUser(t, h, "alice")
	bob := registerUser(t, h, "bob")

	h.RelayTyping("alice", "bob", true)

	events := bob.eventsOfType(models.EventPartnerTyping)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "alice", events[0].From)
		assert.True(t, events[0].IsTyping)
	}
}

func TestEndChatNotifiesPartnerOnce(t *testing.T) {
	s := newPermissiveStorage()
	h := chathub.NewHub(s, false)
	_, bob := pairUsers(t, h, "alice", "bob")

	h.EndChat("alice", "bob", chathub.ReasonUserLeft)

	events := bob.eventsOfType(models.EventChatEnded)
	if assert.Len(t, events, 1) {
		assert.Equal(t, chathub.ReasonUserLeft, events[0].Reason)
	}
	assert.Equal(t, 0, h.Stats().ActivePairs)
	s.AssertCalled(t, "CloseMatch", mock.Anything, chathub.ReasonUserLeft)

	// Ending an already-ended chat is a no-op.
	h.EndChat("alice", "bob", chathub.ReasonUserLeft)
	assert.Empty(t, bob.eventsOfType(models.EventChatEnded))
}

func TestEndChatIgnoresWrongPartner(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	_, bob := pairUsers(t, h, "alice", "bob")

	h.EndChat("alice", "carol", chathub.ReasonUserLeft)

	assert.Empty(t, bob.eventsOfType(models.EventChatEnded))
	assert.Equal(t, 1, h.Stats().ActivePairs)
}

func TestDisconnectUnwindsAllState(t *testing.T) {
	s := newPermissiveStorage()
	h := chathub.NewHub(s, false)
	alice, bob := pairUsers(t, h, "alice", "bob")

	h.Disconnect(alice)

	events := bob.eventsOfType(models.EventChatEnded)
	if assert.Len(t, events, 1) {
		assert.Equal(t, chathub.ReasonDisconnected, events[0].Reason)
	}
	stats := h.Stats()
	assert.Equal(t, 1, stats.Connections)
	assert.Equal(t, 0, stats.Waiting)
	assert.Equal(t, 0, stats.ActivePairs)
	s.AssertCalled(t, "SetOffline", "alice")
	s.AssertCalled(t, "CloseMatch", mock.Anything, chathub.ReasonDisconnected)
}

func TestDisconnectWhileWaitingLeavesQueue(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	alice := registerUser(t, h, "alice")

	assert.ErrorIs(t, h.FindMatch("alice", models.Preferences{}), chathub.ErrNoEligibleCandidates)
	h.Disconnect(alice)

	stats := h.Stats()
	assert.Equal(t, 0, stats.Connections)
	assert.Equal(t, 0, stats.Waiting)
}

func TestDisconnectOfSupersededConnectionIsNoOp(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	old := registerUser(t, h, "alice")
	registerUser(t, h, "alice")

	h.Disconnect(old)

	// The stale close must not evict the live connection.
	assert.Equal(t, 1, h.Stats().Connections)
}

func TestReportFilesAndEndsChat(t *testing.T) {
	s := newPermissiveStorage()
	h := chathub.NewHub(s, false)
	_, bob := pairUsers(t, h, "alice", "bob")

	assert.NoError(t, h.Report("alice", "bob", "Medium"))

	events := bob.eventsOfType(models.EventChatEnded)
	if assert.Len(t, events, 1) {
		assert.Equal(t, chathub.ReasonReported, events[0].Reason)
	}
	assert.Equal(t, 0, h.Stats().ActivePairs)
	s.AssertCalled(t, "SaveReport", mock.MatchedBy(func(r *models.Report) bool {
		return r.ReporterID == "alice" && r.ReportedID == "bob" && r.MatchID != ""
	}))
}

type captureSink struct {
	reports []*models.Report
	err     error
}

func (c *captureSink) HandleReport(r *models.Report) error {
	c.reports = append(c.reports, r)
	return c.err
}

func TestReportRoutesThroughSink(t *testing.T) {
	s := newPermissiveStorage()
	h := chathub.NewHub(s, false)
	sink := &captureSink{}
	h.SetReportSink(sink)
	registerUser(t, h, "alice")

	// Reports do not require an active pairing.
	assert.NoError(t, h.Report("alice", "bob", "Low"))

	if assert.Len(t, sink.reports, 1) {
		assert.Equal(t, "alice", sink.reports[0].ReporterID)
		assert.Empty(t, sink.reports[0].MatchID)
	}
	s.AssertNotCalled(t, "SaveReport", mock.Anything)
}

func TestReportSinkFailureIsRetryable(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	h.SetReportSink(&captureSink{err: errors.New("postgres down")})
	_, bob := pairUsers(t, h, "alice", "bob")

	err := h.Report("alice", "bob", "Low")
	assert.ErrorIs(t, err, chathub.ErrDirectoryUnavailable)

	// The chat survives a failed report.
	assert.Equal(t, 1, h.Stats().ActivePairs)
	assert.Empty(t, bob.eventsOfType(models.EventChatEnded))
}

func TestDispatchAcksOperations(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	alice := newMockClient("alice")

	h.Dispatch(alice, models.ClientEvent{Type: models.EventRegister, UserID: "alice"})
	acks := alice.eventsOfType(models.EventAck)
	if assert.Len(t, acks, 1) {
		assert.Equal(t, models.EventRegister, acks[0].Op)
		assert.True(t, acks[0].OK)
	}

	// find_match with nobody waiting acks success: the requester waits silently.
	h.Dispatch(alice, models.ClientEvent{Type: models.EventFindMatch})
	acks = alice.eventsOfType(models.EventAck)
	if assert.Len(t, acks, 1) {
		assert.Equal(t, models.EventFindMatch, acks[0].Op)
		assert.True(t, acks[0].OK)
	}
}

func TestDispatchNacksFailures(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	alice := newMockClient("alice")

	// send_message to an offline recipient nacks with the error text.
	h.Dispatch(alice, models.ClientEvent{Type: models.EventSendMessage, To: "bob", Message: "hi"})
	acks := alice.eventsOfType(models.EventAck)
	if assert.Len(t, acks, 1) {
		assert.False(t, acks[0].OK)
		assert.Equal(t, chathub.ErrRecipientNotFound.Error(), acks[0].Error)
	}

	h.Dispatch(alice, models.ClientEvent{Type: "no_such_event"})
	acks = alice.eventsOfType(models.EventAck)
	if assert.Len(t, acks, 1) {
		assert.False(t, acks[0].OK)
		assert.Equal(t, chathub.ErrBadEvent.Error(), acks[0].Error)
	}
}

func TestDispatchTypingSendsNoAck(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)
	alice := registerUser(t, h, "alice")

	h.Dispatch(alice, models.ClientEvent{Type: models.EventTyping, PartnerID: "ghost", IsTyping: true})
	assert.Empty(t, alice.drain())
}

func TestStatsSnapshot(t *testing.T) {
	h := chathub.NewHub(newPermissiveStorage(), false)

	pairUsers(t, h, "alice", "bob")
	registerUser(t, h, "carol")
	assert.ErrorIs(t, h.FindMatch("carol", models.Preferences{}), chathub.ErrNoEligibleCandidates)

	stats := h.Stats()
	assert.Equal(t, 3, stats.Connections)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, 1, stats.ActivePairs)
}
