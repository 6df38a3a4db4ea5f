package dispatch

import (
	"testing"
	"time"

	"notification-dispatcher/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Sequence(t *testing.T) {
	policy := NewRetryPolicy(60 * time.Second)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	n := &models.Notification{Status: models.StatusPending, MaxRetries: 3, Data: models.NewData()}

	policy.Fail(n, "smtp down", t0)
	assert.Equal(t, models.StatusRetrying, n.Status)
	assert.Equal(t, 1, n.RetryCount)
	require.NotNil(t, n.NextRetryAt)
	assert.Equal(t, t0.Add(60*time.Second), *n.NextRetryAt)
	assert.Equal(t, "smtp down", *n.ErrorMessage)

	t1 := t0.Add(time.Minute)
	policy.Fail(n, "still down", t1)
	assert.Equal(t, models.StatusRetrying, n.Status)
	assert.Equal(t, 2, n.RetryCount)
	assert.Equal(t, t1.Add(120*time.Second), *n.NextRetryAt)
	assert.Equal(t, "still down", *n.ErrorMessage)

	t2 := t1.Add(2 * time.Minute)
	policy.Fail(n, "gave up", t2)
	assert.Equal(t, models.StatusFailed, n.Status)
	assert.Equal(t, 3, n.RetryCount)
	assert.Nil(t, n.NextRetryAt)
	assert.Equal(t, "gave up", *n.ErrorMessage)
}

func TestRetryPolicy_NeverExceedsMax(t *testing.T) {
	policy := NewRetryPolicy(time.Second)
	n := &models.Notification{MaxRetries: 1, RetryCount: 1, Status: models.StatusFailed}

	policy.Fail(n, "again", time.Now())
	assert.Equal(t, 1, n.RetryCount)
	assert.Equal(t, models.StatusFailed, n.Status)
}

func TestNewRetryPolicy_Default(t *testing.T) {
	assert.Equal(t, DefaultRetryDelay, NewRetryPolicy(0).BaseDelay)
}

func TestMarkSent(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	retryAt := now.Add(time.Minute)
	n := &models.Notification{Status: models.StatusRetrying, NextRetryAt: &retryAt, Data: models.NewData()}

	MarkSent(n, models.SentViaSocket, now)
	assert.Equal(t, models.StatusSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, now, *n.SentAt)
	assert.Nil(t, n.NextRetryAt)

	via, ok := n.Data.Get(models.DataKeySentVia)
	require.True(t, ok)
	assert.Equal(t, "websocket", via.String())
}
