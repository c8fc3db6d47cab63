// Package events publishes security events for downstream consumers such as
// the notification service that emails reset links.
package events

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
	"github.com/google/uuid"
)

const (
	// Source is stamped into every envelope.
	Source = "security-service"

	// DefaultTopic carries password lifecycle events.
	DefaultTopic = "security.password.events"

	TypePasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	TypePasswordResetCompleted = "PASSWORD_RESET_COMPLETED"
)

// Publisher sends one event. key is used for partitioning, normally the user id.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// Envelope is the wire format of every event.
type Envelope struct {
	EventType string    `json:"eventType"`
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
	Metadata  Metadata  `json:"metadata"`
}

type Metadata struct {
	CorrelationID string `json:"correlationId"`
	Source        string `json:"source"`
}

// NewEnvelope wraps payload, taking the correlation id from the request id in ctx.
func NewEnvelope(ctx context.Context, eventType string, payload any, now time.Time) Envelope {
	return Envelope{
		EventType: eventType,
		EventID:   uuid.NewString(),
		Timestamp: now.UTC(),
		Payload:   payload,
		Metadata: Metadata{
			CorrelationID: slogx.RequestID(ctx),
			Source:        Source,
		},
	}
}

// PasswordResetRequested is the payload of TypePasswordResetRequested. It
// carries the plaintext secret so the consumer can build the email.
type PasswordResetRequested struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ResetURL   string    `json:"resetUrl"`
}

// PasswordResetCompleted is the payload of TypePasswordResetCompleted.
type PasswordResetCompleted struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	CompletedAt time.Time `json:"completedAt"`
}

// LogPublisher writes events to the context logger instead of a broker. It
// is used when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	env := NewEnvelope(ctx, eventType, payload, time.Now())
	slogx.FromContext(ctx).Info("event published",
		"event_type", env.EventType,
		"event_id", env.EventID,
		"key", key,
	)
	return nil
}
