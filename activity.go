package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates the audited auth events.
type ActivityEventType string

const (
	ActivityVerificationRequested ActivityEventType = "account.verification.requested"
	ActivityAccountCreated        ActivityEventType = "account.created"
	ActivityLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityAvatarUpdated         ActivityEventType = "account.avatar.updated"
)

// ActivityEvent describes something that happened to an account. AccountID
// is empty until the account exists.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives audit events. Sinks are best effort: a failing sink is
// logged and never fails the request that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func (d Dependencies) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := d.Activity.Record(ctx, event); err != nil {
		d.Logger.Warn("activity sink failed", "event", string(event.EventType), "error", err)
	}
}

// NewLogActivitySink writes every event to the logger at info level.
func NewLogActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := []any{
			"event", string(event.EventType),
			"account_id", event.AccountID,
			"email", event.Email,
			"occurred_at", event.OccurredAt,
		}
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}
