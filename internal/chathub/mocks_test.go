package chathub_test

import (
	"context"
	"time"

	"pairgo/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface,
// using testify/mock for flexible expectation setting.
type MockStorage struct {
	mock.Mock
}

// Profile directory

func (m *MockStorage) EnsureProfile(userID string) (*models.Profile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockStorage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockStorage) UpdateProfile(profile *models.Profile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockStorage) UpdateReputation(userID string, delta int) error {
	args := m.Called(userID, delta)
	return args.Error(0)
}

func (m *MockStorage) ListOnlineProfiles(ctx context.Context, excludeID string) ([]models.Profile, error) {
	args := m.Called(ctx, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *MockStorage) GetBlockedIDs(ctx context.Context, reporterID string) ([]string, error) {
	args := m.Called(ctx, reporterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Online / ban state

func (m *MockStorage) IsOnline(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SetOnline(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) SetOffline(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) IsBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SetBanned(userID string, d time.Duration) error {
	args := m.Called(userID, d)
	return args.Error(0)
}

func (m *MockStorage) ClearBan(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// Match records

func (m *MockStorage) SaveMatch(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockStorage) CloseMatch(matchID, reason string) error {
	args := m.Called(matchID, reason)
	return args.Error(0)
}

func (m *MockStorage) HasActiveMatch(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// Search queue mirror

func (m *MockStorage) AddToSearchQueue(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveFromSearchQueue(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// Reports

func (m *MockStorage) SaveReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) GetReportByID(id uint) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) CountRecentReports(userID string, since time.Time) (int64, error) {
	args := m.Called(userID, since)
	return args.Get(0).(int64), args.Error(1)
}

// Events

func (m *MockStorage) PublishEvent(event string, payload any) error {
	args := m.Called(event, payload)
	return args.Error(0)
}

// newPermissiveStorage returns a mock whose calls all succeed, for tests
// asserting on hub state rather than storage traffic.
func newPermissiveStorage() *MockStorage {
	s := new(MockStorage)
	permissiveDefaults(s)
	return s
}

// permissiveDefaults appends happy-path fallbacks for every Storage method.
// Expectations registered before this call take precedence, so tests that
// need a specific return or failure set it first and then fill in the rest.
func permissiveDefaults(s *MockStorage) {
	s.On("IsBanned", mock.Anything).Return(false, nil).Maybe()
	s.On("EnsureProfile", mock.Anything).Return(&models.Profile{}, nil).Maybe()
	s.On("SetOnline", mock.Anything).Return(nil).Maybe()
	s.On("SetOffline", mock.Anything).Return(nil).Maybe()
	s.On("IsOnline", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	s.On("GetBlockedIDs", mock.Anything, mock.Anything).Return([]string{}, nil).Maybe()
	s.On("ListOnlineProfiles", mock.Anything, mock.Anything).Return([]models.Profile{}, nil).Maybe()
	s.On("HasActiveMatch", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	s.On("SaveMatch", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("CloseMatch", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("AddToSearchQueue", mock.Anything).Return(nil).Maybe()
	s.On("RemoveFromSearchQueue", mock.Anything).Return(nil).Maybe()
	s.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("SaveReport", mock.Anything).Return(nil).Maybe()
}

// mockClient is a channel-backed test double for the chathub.Client interface.
type mockClient struct {
	userID string
	send   chan models.ServerEvent
	closed bool
}

func newMockClient(userID string) *mockClient {
	return &mockClient{
		userID: userID,
		send:   make(chan models.ServerEvent, 32), // buffered to prevent blocking in tests
	}
}

func (c *mockClient) GetUserID() string { return c.userID }

func (c *mockClient) GetSendChannel() chan<- models.ServerEvent { return c.send }

func (c *mockClient) Run() {}

func (c *mockClient) Close() { c.closed = true }

// drain returns every event delivered so far.
func (c *mockClient) drain() []models.ServerEvent {
	var events []models.ServerEvent
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// eventsOfType filters the drained events by type.
func (c *mockClient) eventsOfType(eventType string) []models.ServerEvent {
	var matched []models.ServerEvent
	for _, ev := range c.drain() {
		if ev.Type == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}
