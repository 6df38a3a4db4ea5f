package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/store"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *MockStore) ListNotifications(ctx context.Context, f store.NotificationFilter) ([]*models.Notification, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]*models.Notification)
	return out, args.Error(1)
}

func (m *MockStore) ListUserNotifications(ctx context.Context, userID uuid.UUID, page store.Page) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, page)
	out, _ := args.Get(0).([]*models.Notification)
	return out, args.Error(1)
}

func (m *MockStore) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, now, limit)
	out, _ := args.Get(0).([]*models.Notification)
	return out, args.Error(1)
}

func (m *MockStore) ListTemplates(ctx context.Context, page store.Page) ([]*models.NotificationTemplate, error) {
	args := m.Called(ctx, page)
	out, _ := args.Get(0).([]*models.NotificationTemplate)
	return out, args.Error(1)
}

func (m *MockStore) TemplatesByEventType(ctx context.Context, eventType string) ([]*models.NotificationTemplate, error) {
	args := m.Called(ctx, eventType)
	out, _ := args.Get(0).([]*models.NotificationTemplate)
	return out, args.Error(1)
}

func (m *MockStore) GetTemplate(ctx context.Context, id uuid.UUID) (*models.NotificationTemplate, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.NotificationTemplate)
	return t, args.Error(1)
}

func (m *MockStore) CreateTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStore) UpdateTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) GetPreference(ctx context.Context, userID uuid.UUID) (*models.UserNotificationPreference, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*models.UserNotificationPreference)
	return p, args.Error(1)
}

func (m *MockStore) CreatePreference(ctx context.Context, p *models.UserNotificationPreference) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) UpdatePreference(ctx context.Context, p *models.UserNotificationPreference) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) UpsertPushToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationPreference, error) {
	args := m.Called(ctx, userID, token)
	p, _ := args.Get(0).(*models.UserNotificationPreference)
	return p, args.Error(1)
}

type MockResender struct {
	mock.Mock
}

func (m *MockResender) Resend(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q string, page store.Page) (*store.SearchResult, error) {
	args := m.Called(ctx, q, page)
	r, _ := args.Get(0).(*store.SearchResult)
	return r, args.Error(1)
}

// ==========================
// Helpers
// ==========================

var fixedNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) (*MockStore, *MockResender, http.Handler) {
	t.Helper()
	st := &MockStore{}
	rs := &MockResender{}
	srv := NewServer(st, rs, opts, logger.NewTestLogger(t))
	srv.now = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		st.AssertExpectations(t)
		rs.AssertExpectations(t)
	})
	return st, rs, srv.Router()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func strPtr(s string) *string { return &s }

// ==========================
// Health & readiness
// ==========================

func TestHealthEndpoints(t *testing.T) {
	_, _, h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","time":"2026-03-04T10:00:00Z"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"notifications"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]ReadinessCheck
		wantCode int
	}{
		{
			name:     "all healthy",
			checks:   map[string]ReadinessCheck{"postgres": func(context.Context) error { return nil }},
			wantCode: http.StatusOK,
		},
		{
			name: "redis down",
			checks: map[string]ReadinessCheck{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return stderrors.New("connection refused") },
			},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, h := newTestServer(t, Options{Checks: tt.checks})
			rec := do(t, h, http.MethodGet, "/ready", "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, rec.Body.String(), "connection refused")
			}
		})
	}
}

func TestMountAddsRoutes(t *testing.T) {
	_, _, h := newTestServer(t, Options{Mount: func(r chi.Router) {
		r.Get("/ws/stats", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}})
	assert.Equal(t, http.StatusTeapot, do(t, h, http.MethodGet, "/ws/stats", "").Code)
}

// ==========================
// Notifications
// ==========================

func TestListNotifications_Filters(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	userID := uuid.New()
	status := models.StatusFailed

	st.On("ListNotifications", mock.Anything, store.NotificationFilter{
		UserID: &userID,
		Status: &status,
		Page:   store.Page{Skip: 10, Limit: 5},
	}).Return([]*models.Notification{{ID: uuid.New(), UserID: userID, Status: status, Data: models.NewData()}}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/notifications/?user_id="+userID.String()+"&status=failed&skip=10&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "failed", out[0]["status"])
}

func TestListNotifications_DefaultPage(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	st.On("ListNotifications", mock.Anything, store.NotificationFilter{Page: store.Page{Limit: 100}}).
		Return([]*models.Notification{}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListNotifications_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown status", "status=lost"},
		{"bad user id", "user_id=42"},
		{"negative skip", "skip=-1"},
		{"zero limit", "limit=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, h := newTestServer(t, Options{})
			rec := do(t, h, http.MethodGet, "/api/v1/notifications/?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, strings.HasPrefix(detail(t, rec), "Invalid request: "))
		})
	}
}

func TestGetNotification(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	found := uuid.New()
	missing := uuid.New()

	st.On("GetNotification", mock.Anything, found).
		Return(&models.Notification{ID: found, Channel: models.ChannelPush, Body: "hola", Data: models.NewData()}, nil)
	st.On("GetNotification", mock.Anything, missing).
		Return(nil, apperrors.NewNotificationNotFoundError(missing.String()))

	rec := do(t, h, http.MethodGet, "/api/v1/notifications/"+found.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notification_type":"push"`)

	rec = do(t, h, http.MethodGet, "/api/v1/notifications/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Notification not found", detail(t, rec))

	rec = do(t, h, http.MethodGet, "/api/v1/notifications/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserNotifications_DefaultLimit(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	userID := uuid.New()
	st.On("ListUserNotifications", mock.Anything, userID, store.Page{Limit: 50}).
		Return([]*models.Notification{}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/notifications/user/"+userID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDueRetries(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{"default limit", "", 100},
		{"explicit limit", "?limit=25", 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _, h := newTestServer(t, Options{})
			due := &models.Notification{ID: uuid.New(), Status: models.StatusRetrying, RetryCount: 1, Data: models.NewData()}
			st.On("ListDueRetries", mock.Anything, fixedNow, tt.wantLimit).Return([]*models.Notification{due}, nil)

			rec := do(t, h, http.MethodGet, "/api/v1/notifications/due-retries"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var out []map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			require.Len(t, out, 1)
			assert.Equal(t, due.ID.String(), out[0]["id"])
			assert.Equal(t, "retrying", out[0]["status"])
		})
	}
}

func TestDueRetries_BadLimit(t *testing.T) {
	_, _, h := newTestServer(t, Options{})
	rec := do(t, h, http.MethodGet, "/api/v1/notifications/due-retries?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreFailureIs500(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	st.On("ListNotifications", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewQueryExecutionFailedError("list notifications", stderrors.New("boom")))

	rec := do(t, h, http.MethodGet, "/api/v1/notifications/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database query execution error", detail(t, rec))
}

func TestRetryNotification(t *testing.T) {
	tests := []struct {
		name     string
		result   *models.Notification
		err      error
		wantCode int
	}{
		{
			name:     "retrying notification is resent",
			result:   &models.Notification{Status: models.StatusSent, Data: models.NewData()},
			wantCode: http.StatusOK,
		},
		{
			name:     "sent notification is not retryable",
			err:      apperrors.NewNotificationNotRetryableError("x", "sent"),
			wantCode: http.StatusConflict,
		},
		{
			name:     "unknown notification",
			err:      apperrors.NewNotificationNotFoundError("x"),
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rs, h := newTestServer(t, Options{})
			id := uuid.New()
			rs.On("Resend", mock.Anything, id).Return(tt.result, tt.err)

			rec := do(t, h, http.MethodPost, "/api/v1/notifications/"+id.String()+"/retry", "")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestSearchNotifications(t *testing.T) {
	t.Run("index not configured", func(t *testing.T) {
		_, _, h := newTestServer(t, Options{})
		rec := do(t, h, http.MethodGet, "/api/v1/notifications/search?q=Lot1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("query forwarded", func(t *testing.T) {
		searcher := &MockSearcher{}
		searcher.On("Search", mock.Anything, "Lot1", store.Page{Limit: 20}).
			Return(&store.SearchResult{Total: 1, Notifications: []*models.Notification{{Data: models.NewData()}}}, nil)
		_, _, h := newTestServer(t, Options{Searcher: searcher})

		rec := do(t, h, http.MethodGet, "/api/v1/notifications/search?q=Lot1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		searcher.AssertExpectations(t)
	})

	t.Run("index failure", func(t *testing.T) {
		searcher := &MockSearcher{}
		searcher.On("Search", mock.Anything, "", store.Page{Limit: 20}).
			Return(nil, apperrors.NewSearchQueryFailedError(stderrors.New("cluster red")))
		_, _, h := newTestServer(t, Options{Searcher: searcher})

		rec := do(t, h, http.MethodGet, "/api/v1/notifications/search", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

// ==========================
// Templates
// ==========================

func TestCreateTemplate(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	st.On("CreateTemplate", mock.Anything, mock.MatchedBy(func(tm *models.NotificationTemplate) bool {
		return tm.EventType == "RESERVATION_CONFIRMED" &&
			tm.Channel == models.ChannelPush &&
			tm.Active &&
			tm.Priority == models.PriorityNormal &&
			*tm.TitleTemplate == "Reserva confirmada"
	})).Return(nil)

	rec := do(t, h, http.MethodPost, "/api/v1/templates/", `{
		"event_type": "RESERVATION_CONFIRMED",
		"notification_type": "push",
		"title_template": "Reserva confirmada",
		"body_template": "Tu reserva en {parking_name} está confirmada"
	}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_active":true`)
}

func TestCreateTemplate_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantCode   int
		wantDetail string
	}{
		{
			name:       "missing body",
			body:       `{"event_type":"X","notification_type":"email"}`,
			wantCode:   http.StatusBadRequest,
			wantDetail: "Template validation failed: ",
		},
		{
			name:       "unknown channel",
			body:       `{"event_type":"X","notification_type":"sms","body_template":"hi"}`,
			wantCode:   http.StatusBadRequest,
			wantDetail: "Template validation failed: ",
		},
		{
			name:       "not json",
			body:       `nope`,
			wantCode:   http.StatusBadRequest,
			wantDetail: "Invalid request: ",
		},
		{
			name:       "duplicate pair",
			body:       `{"event_type":"X","notification_type":"email","body_template":"hi"}`,
			storeErr:   apperrors.NewTemplateAlreadyExistsError("X", "email"),
			wantCode:   http.StatusBadRequest,
			wantDetail: "Template already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _, h := newTestServer(t, Options{})
			if tt.storeErr != nil {
				st.On("CreateTemplate", mock.Anything, mock.Anything).Return(tt.storeErr)
			}
			rec := do(t, h, http.MethodPost, "/api/v1/templates/", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.True(t, strings.HasPrefix(detail(t, rec), tt.wantDetail), detail(t, rec))
		})
	}
}

func TestTemplatesByEventType(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	st.On("TemplatesByEventType", mock.Anything, "PAYMENT_SUCCESS").
		Return([]*models.NotificationTemplate{{EventType: "PAYMENT_SUCCESS", Channel: models.ChannelEmail}}, nil)
	st.On("TemplatesByEventType", mock.Anything, "NOPE").
		Return([]*models.NotificationTemplate{}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/templates/PAYMENT_SUCCESS", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/templates/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No templates found for event type: NOPE", detail(t, rec))
}

func TestUpdateTemplate_MergesFields(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	id := uuid.New()
	existing := &models.NotificationTemplate{
		ID:              id,
		EventType:       "PAYMENT_SUCCESS",
		Channel:         models.ChannelEmail,
		SubjectTemplate: strPtr("Pago recibido"),
		BodyTemplate:    "old",
		Priority:        models.PriorityNormal,
		Active:          true,
	}
	st.On("GetTemplate", mock.Anything, id).Return(existing, nil)
	st.On("UpdateTemplate", mock.Anything, mock.MatchedBy(func(tm *models.NotificationTemplate) bool {
		return tm.BodyTemplate == "new {amount}" &&
			*tm.SubjectTemplate == "Pago recibido" &&
			tm.Priority == models.PriorityHigh &&
			!tm.Active
	})).Return(nil)

	rec := do(t, h, http.MethodPut, "/api/v1/templates/"+id.String(),
		`{"body_template":"new {amount}","priority":"high","is_active":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateTemplate_InvalidPriority(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	id := uuid.New()
	st.On("GetTemplate", mock.Anything, id).Return(&models.NotificationTemplate{ID: id, BodyTemplate: "b"}, nil)

	rec := do(t, h, http.MethodPut, "/api/v1/templates/"+id.String(), `{"priority":"whenever"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTemplate(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	id := uuid.New()
	missing := uuid.New()
	st.On("DeleteTemplate", mock.Anything, id).Return(nil)
	st.On("DeleteTemplate", mock.Anything, missing).Return(apperrors.NewTemplateNotFoundError("id: " + missing.String()))

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/templates/"+id.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/v1/templates/"+missing.String(), "").Code)
}

// ==========================
// Preferences
// ==========================

func TestGetPreference(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	known := uuid.New()
	unknown := uuid.New()
	st.On("GetPreference", mock.Anything, known).
		Return(&models.UserNotificationPreference{UserID: known, EmailEnabled: true}, nil)
	st.On("GetPreference", mock.Anything, unknown).Return(nil, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/preferences/"+known.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/preferences/"+unknown.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User preferences not found", detail(t, rec))
}

func TestCreatePreference_Defaults(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	userID := uuid.New()
	st.On("CreatePreference", mock.Anything, mock.MatchedBy(func(p *models.UserNotificationPreference) bool {
		return p.UserID == userID && p.EmailEnabled && !p.PushEnabled &&
			p.EventPreferences["RESERVATION_REMINDER"]["push"]
	})).Return(nil)

	rec := do(t, h, http.MethodPost, "/api/v1/preferences/",
		`{"user_id":"`+userID.String()+`","push_enabled":false,"event_preferences":{"RESERVATION_REMINDER":{"push":true}}}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreatePreference_Rejected(t *testing.T) {
	t.Run("missing user", func(t *testing.T) {
		_, _, h := newTestServer(t, Options{})
		rec := do(t, h, http.MethodPost, "/api/v1/preferences/", `{"email_enabled":true}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already exists", func(t *testing.T) {
		st, _, h := newTestServer(t, Options{})
		userID := uuid.New()
		st.On("CreatePreference", mock.Anything, mock.Anything).
			Return(apperrors.NewPreferenceAlreadyExistsError(userID.String()))
		rec := do(t, h, http.MethodPost, "/api/v1/preferences/", `{"user_id":"`+userID.String()+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.HasPrefix(detail(t, rec), "Preferences already exist for this user"))
	})
}

func TestUpdatePreference_Merges(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	userID := uuid.New()
	st.On("GetPreference", mock.Anything, userID).Return(&models.UserNotificationPreference{
		UserID:       userID,
		PushToken:    strPtr("old-token"),
		EmailEnabled: true,
		PushEnabled:  true,
	}, nil)
	st.On("UpdatePreference", mock.Anything, mock.MatchedBy(func(p *models.UserNotificationPreference) bool {
		return !p.EmailEnabled && p.PushEnabled && *p.PushToken == "old-token"
	})).Return(nil)

	rec := do(t, h, http.MethodPut, "/api/v1/preferences/"+userID.String(), `{"email_enabled":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdatePushToken(t *testing.T) {
	st, _, h := newTestServer(t, Options{})
	userID := uuid.New()
	st.On("UpsertPushToken", mock.Anything, userID, "fcm-abc").
		Return(&models.UserNotificationPreference{UserID: userID}, nil)

	rec := do(t, h, http.MethodPut, "/api/v1/preferences/"+userID.String()+"/fcm-token?fcm_token=fcm-abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"FCM token updated successfully","user_id":"`+userID.String()+`"}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/v1/preferences/"+userID.String()+"/fcm-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
