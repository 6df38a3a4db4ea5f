package dispatch

import (
	"context"
	"sync"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ==========================
// In-memory store
// ==========================

type memoryStore struct {
	mu            sync.Mutex
	preferences   map[uuid.UUID]*models.UserNotificationPreference
	templates     map[string][]*models.NotificationTemplate
	notifications map[uuid.UUID]*models.Notification
	order         []uuid.UUID
	updates       []models.Status

	prefErr   error
	tmplErr   error
	createErr error
	updateErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		preferences:   map[uuid.UUID]*models.UserNotificationPreference{},
		templates:     map[string][]*models.NotificationTemplate{},
		notifications: map[uuid.UUID]*models.Notification{},
	}
}

func (s *memoryStore) GetPreference(_ context.Context, userID uuid.UUID) (*models.UserNotificationPreference, error) {
	if s.prefErr != nil {
		return nil, s.prefErr
	}
	return s.preferences[userID], nil
}

func (s *memoryStore) ActiveTemplates(_ context.Context, eventType string) ([]*models.NotificationTemplate, error) {
	if s.tmplErr != nil {
		return nil, s.tmplErr
	}
	var out []*models.NotificationTemplate
	for _, t := range s.templates[eventType] {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *n
	s.notifications[n.ID] = &cp
	s.order = append(s.order, n.ID)
	return nil
}

func (s *memoryStore) UpdateNotificationStatus(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, n.Status)
	if s.updateErr != nil {
		return s.updateErr
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *memoryStore) GetNotification(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, errors.NewNotificationNotFoundError(id.String())
	}
	cp := *n
	return &cp, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// ==========================
// Mock collaborators
// ==========================

type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) IsUserConnected(userID uuid.UUID) bool {
	return m.Called(userID).Bool(0)
}

func (m *MockPresence) SendRealtime(ctx context.Context, userID uuid.UUID, payload interface{}) bool {
	return m.Called(ctx, userID, payload).Bool(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	return m.Called(ctx, token, title, body, data).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexNotification(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}
