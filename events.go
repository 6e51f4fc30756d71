package userservice

import (
	"context"
	"time"
)

// Topics this service publishes to or consumes from.
const (
	TopicUserStatusEvents = "user-status-events"
	TopicUserEvents       = "user-events"
	TopicUserActivity     = "active"
)

// Event type labels carried in message attributes.
const (
	EventTypeUserStatusChanged = "UserStatusChanged"
	EventTypeUserRegistered    = "UserRegistered"
	EventTypeUserLoggedIn      = "UserLoggedIn"
)

// UserStatusChangedEvent announces a moderation status transition. Consumers
// key their blocklists off userId, so the publisher keys messages by it too.
type UserStatusChangedEvent struct {
	UserID    string    `json:"userId"`
	OldStatus string    `json:"oldStatus,omitempty"`
	NewStatus string    `json:"newStatus"`
	Timestamp time.Time `json:"timestamp"`
}

// UserRegisteredEvent announces a new account.
type UserRegisteredEvent struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLoggedInEvent announces a successful login.
type UserLoggedInEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// UserActivityEvent is the heartbeat shape consumed from the activity topic.
type UserActivityEvent struct {
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// EventProducer is the outbound messaging surface. Implementations must be
// safe to call from commit callbacks.
type EventProducer interface {
	PublishUserStatusChanged(ctx context.Context, event UserStatusChangedEvent) error
	PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error
	PublishUserLoggedIn(ctx context.Context, event UserLoggedInEvent) error
}

type noopEventProducer struct{}

func (noopEventProducer) PublishUserStatusChanged(context.Context, UserStatusChangedEvent) error {
	return nil
}

func (noopEventProducer) PublishUserRegistered(context.Context, UserRegisteredEvent) error {
	return nil
}

func (noopEventProducer) PublishUserLoggedIn(context.Context, UserLoggedInEvent) error {
	return nil
}

// NoopEventProducer drops every event. Useful in tests and local setups
// without a broker.
func NoopEventProducer() EventProducer {
	return noopEventProducer{}
}

func normalizeEventProducer(producer EventProducer) EventProducer {
	if producer == nil {
		return noopEventProducer{}
	}
	return producer
}
