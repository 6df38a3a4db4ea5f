package dispatch

import (
	"time"

	"notification-dispatcher/internal/models"
)

const DefaultRetryDelay = 60 * time.Second

// RetryPolicy drives the pending/retrying/failed transitions after a send
// failure. The backoff is linear: the n-th failure schedules the next
// attempt BaseDelay*n after it.
type RetryPolicy struct {
	BaseDelay time.Duration
}

func NewRetryPolicy(baseDelay time.Duration) RetryPolicy {
	if baseDelay <= 0 {
		baseDelay = DefaultRetryDelay
	}
	return RetryPolicy{BaseDelay: baseDelay}
}

// Fail records one failed attempt on n.
func (p RetryPolicy) Fail(n *models.Notification, errMsg string, now time.Time) {
	n.RetryCount++
	if n.RetryCount > n.MaxRetries {
		n.RetryCount = n.MaxRetries
	}

	if n.RetryCount < n.MaxRetries {
		next := now.Add(p.BaseDelay * time.Duration(n.RetryCount))
		n.Status = models.StatusRetrying
		n.NextRetryAt = &next
	} else {
		n.Status = models.StatusFailed
		n.NextRetryAt = nil
	}

	msg := errMsg
	n.ErrorMessage = &msg
	n.UpdatedAt = now
}

// MarkSent records a successful delivery and the transport that carried it.
func MarkSent(n *models.Notification, via string, now time.Time) {
	n.Status = models.StatusSent
	n.SentAt = &now
	n.NextRetryAt = nil
	n.Data.SetString(models.DataKeySentVia, via)
	n.UpdatedAt = now
}
