package delivery

import (
	"context"
	stderrors "errors"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/delivery/email"
	"notification-dispatcher/internal/delivery/push"

	"github.com/sony/gobreaker"
)

type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureLimit uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     10 * time.Second,
		Timeout:      1 * time.Minute,
		FailureLimit: 3,
	}
}

func BreakerSettingsFromConfig(cfg config.BreakerConfig) BreakerSettings {
	s := DefaultBreakerSettings()
	if cfg.MaxRequests > 0 {
		s.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		s.Interval = config.GetDuration(cfg.Interval)
	}
	if cfg.Timeout > 0 {
		s.Timeout = config.GetDuration(cfg.Timeout)
	}
	if cfg.FailureLimit > 0 {
		s.FailureLimit = cfg.FailureLimit
	}
	return s
}

// NewCircuitBreaker builds a breaker that trips after FailureLimit failures
// within one Interval. Unregistered push tokens are the recipient's
// problem, not the transport's, and do not count as failures.
func NewCircuitBreaker(name string, s BreakerSettings, log logger.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= s.FailureLimit
		},
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, push.ErrTokenUnregistered)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("circuit breaker state changed", map[string]interface{}{
				"sender": name,
				"from":   from.String(),
				"to":     to.String(),
			})
		},
	}
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker(settings)
}

func breakerError(name string, err error) error {
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.NewSenderCircuitOpenError(name, err)
	}
	return err
}

// BreakerEmailSender guards an email sender with a circuit breaker.
type BreakerEmailSender struct {
	next email.Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerEmailSender(next email.Sender, s BreakerSettings, log logger.Logger) *BreakerEmailSender {
	return &BreakerEmailSender{next: next, cb: NewCircuitBreaker("email", s, log)}
}

func (b *BreakerEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, to, subject, htmlBody)
	})
	return breakerError("email", err)
}

func (b *BreakerEmailSender) State() gobreaker.State { return b.cb.State() }

// BreakerPushSender guards a push sender with a circuit breaker.
type BreakerPushSender struct {
	next push.Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerPushSender(next push.Sender, s BreakerSettings, log logger.Logger) *BreakerPushSender {
	return &BreakerPushSender{next: next, cb: NewCircuitBreaker("push", s, log)}
}

func (b *BreakerPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, token, title, body, data)
	})
	return breakerError("push", err)
}

func (b *BreakerPushSender) State() gobreaker.State { return b.cb.State() }
