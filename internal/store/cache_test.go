package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPreference(userID uuid.UUID) *models.UserNotificationPreference {
	token := "tkn"
	return &models.UserNotificationPreference{
		ID:               uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		UserID:           userID,
		PushToken:        &token,
		EmailEnabled:     true,
		PushEnabled:      false,
		EventPreferences: models.EventPreferences{},
		CreatedAt:        fixedNow,
		UpdatedAt:        fixedNow,
	}
}

func preferenceRows(p *models.UserNotificationPreference) *sqlmock.Rows {
	return sqlmock.NewRows(preferenceCols).AddRow(
		p.ID.String(), p.UserID.String(), *p.PushToken, p.EmailEnabled, p.PushEnabled, []byte(`{}`), p.CreatedAt, p.UpdatedAt,
	)
}

// ==========================
// Cache-aside reads
// ==========================

func TestCachedStore_GetPreference_MissThenFill(t *testing.T) {
	s, mock, _ := newTestStore(t)
	redisClient, redisMock := redismock.NewClientMock()
	cs := NewCachedStore(s, redisClient, 0, logger.NewTestLogger(t))

	userID := uuid.New()
	want := testPreference(userID)
	cachedData, err := json.Marshal(want)
	require.NoError(t, err)

	redisMock.ExpectGet("pref:" + userID.String()).RedisNil()
	mock.ExpectQuery(`FROM user_notification_preferences WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(preferenceRows(want))
	redisMock.ExpectSet("pref:"+userID.String(), cachedData, 5*time.Minute).SetVal("OK")

	got, err := cs.GetPreference(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_GetPreference_Hit(t *testing.T) {
	s, mock, _ := newTestStore(t)
	redisClient, redisMock := redismock.NewClientMock()
	cs := NewCachedStore(s, redisClient, 0, logger.NewTestLogger(t))

	userID := uuid.New()
	want := testPreference(userID)
	cachedData, _ := json.Marshal(want)
	redisMock.ExpectGet("pref:" + userID.String()).SetVal(string(cachedData))

	got, err := cs.GetPreference(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.False(t, got.PushEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_GetPreference_AbsentNotCached(t *testing.T) {
	s, mock, _ := newTestStore(t)
	redisClient, redisMock := redismock.NewClientMock()
	cs := NewCachedStore(s, redisClient, 0, logger.NewTestLogger(t))

	userID := uuid.New()
	redisMock.ExpectGet("pref:" + userID.String()).RedisNil()
	mock.ExpectQuery(`FROM user_notification_preferences`).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(preferenceCols))

	got, err := cs.GetPreference(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCachedStore_RedisDownFallsThrough(t *testing.T) {
	s, mock, _ := newTestStore(t)
	redisClient, redisMock := redismock.NewClientMock()
	cs := NewCachedStore(s, redisClient, 0, logger.NewTestLogger(t))

	id := uuid.New()
	title := "Pago"
	want := []*models.NotificationTemplate{{
		ID: id, EventType: "PAYMENT_SUCCESS", Channel: models.ChannelPush, TitleTemplate: &title,
		BodyTemplate: "Body", Priority: models.PriorityNormal, Active: true, CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}}
	cachedData, _ := json.Marshal(want)

	redisMock.ExpectGet("tmpl:PAYMENT_SUCCESS").SetErr(fmt.Errorf("connection refused"))
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("PAYMENT_SUCCESS").
		WillReturnRows(sqlmock.NewRows(templateCols).
			AddRow(id.String(), "PAYMENT_SUCCESS", "push", nil, "Pago", "Body", "normal", true, fixedNow, fixedNow))
	redisMock.ExpectSet("tmpl:PAYMENT_SUCCESS", cachedData, 5*time.Minute).SetErr(fmt.Errorf("connection refused"))

	ts, err := cs.ActiveTemplates(context.Background(), "PAYMENT_SUCCESS")
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, want, ts)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// ==========================
// Invalidation
// ==========================

func newMiniredisStore(t *testing.T) (*CachedStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	s, mock, _ := newTestStore(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewCachedStore(s, rdb, time.Minute, logger.NewTestLogger(t)), mock, mr
}

func TestCachedStore_TemplatesCachedUntilWrite(t *testing.T) {
	cs, mock, mr := newMiniredisStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM notification_templates`).WithArgs("EMAIL_WELCOME").
		WillReturnRows(sqlmock.NewRows(templateCols).
			AddRow(uuid.New().String(), "EMAIL_WELCOME", "email", "Hola", nil, "Bienvenido {name}", "normal", true, fixedNow, fixedNow))

	first, err := cs.ActiveTemplates(ctx, "EMAIL_WELCOME")
	require.NoError(t, err)
	second, err := cs.ActiveTemplates(ctx, "EMAIL_WELCOME")
	require.NoError(t, err)
	assert.Equal(t, first[0].BodyTemplate, second[0].BodyTemplate)
	assert.True(t, mr.Exists("tmpl:EMAIL_WELCOME"))
	assert.Equal(t, time.Minute, mr.TTL("tmpl:EMAIL_WELCOME"))

	mock.ExpectExec(`INSERT INTO notification_templates`).WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, cs.CreateTemplate(ctx, &models.NotificationTemplate{
		EventType: "EMAIL_WELCOME", Channel: models.ChannelPush, BodyTemplate: "Hola", Active: true,
	}))
	assert.False(t, mr.Exists("tmpl:EMAIL_WELCOME"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_DeleteTemplateInvalidatesEventType(t *testing.T) {
	cs, mock, mr := newMiniredisStore(t)
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, mr.Set("tmpl:PAYMENT_FAILED", "[]"))

	mock.ExpectQuery(`FROM notification_templates WHERE id = \$1`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(templateCols).
			AddRow(id.String(), "PAYMENT_FAILED", "email", nil, nil, "Body", "normal", true, fixedNow, fixedNow))
	mock.ExpectExec(`DELETE FROM notification_templates`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, cs.DeleteTemplate(ctx, id))
	assert.False(t, mr.Exists("tmpl:PAYMENT_FAILED"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_PushTokenInvalidatesPreference(t *testing.T) {
	cs, mock, mr := newMiniredisStore(t)
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, mr.Set("pref:"+userID.String(), `{}`))

	mock.ExpectQuery(`ON CONFLICT \(user_id\)`).
		WillReturnRows(preferenceRows(testPreference(userID)))

	_, err := cs.UpsertPushToken(ctx, userID, "tkn")
	require.NoError(t, err)
	assert.False(t, mr.Exists("pref:"+userID.String()))
}
