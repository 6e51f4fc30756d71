package userservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// ActivityEventHandler consumes user activity heartbeats from the activity
// topic and advances last_active at most once per user per minute.
type ActivityEventHandler struct {
	users  Users
	guard  *IdempotencyGuard
	logger Logger
}

// NewActivityEventHandler wires the handler to its store and guard.
func NewActivityEventHandler(users Users, guard *IdempotencyGuard, logger Logger) *ActivityEventHandler {
	if logger == nil {
		logger = defLogger{prefix: "ACTIVITY"}
	}
	return &ActivityEventHandler{
		users:  users,
		guard:  guard,
		logger: logger,
	}
}

type activityEnvelope struct {
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

func (e activityEnvelope) validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required),
		validation.Field(&e.Timestamp, validation.Required),
	)
}

// Handle processes one raw activity message. Malformed payloads are dropped
// with a warning, they would never succeed on redelivery. Store failures are
// returned so the broker redelivers.
func (h *ActivityEventHandler) Handle(ctx context.Context, payload []byte) error {
	var envelope activityEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode activity event: %w", err)
	}

	if err := envelope.validate(); err != nil {
		h.logger.Warn("activity event missing fields, dropping: %v", err)
		return nil
	}

	userID, err := uuid.Parse(envelope.UserID)
	if err != nil {
		h.logger.Warn("activity event carries malformed user id %q, dropping", envelope.UserID)
		return nil
	}

	occurredAt, err := time.Parse(time.RFC3339, envelope.Timestamp)
	if err != nil {
		h.logger.Warn("activity event carries malformed timestamp %q, dropping", envelope.Timestamp)
		return nil
	}

	key := ActivityIdempotencyKey(userID, occurredAt)

	processed, err := h.guard.IsProcessed(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if processed {
		h.logger.Debug("activity event %s already processed, skipping", key)
		return nil
	}

	applied, err := h.users.UpdateLastActive(ctx, userID, occurredAt.UTC())
	if err != nil {
		return fmt.Errorf("update last active: %w", err)
	}
	if !applied {
		h.logger.Debug("activity event for %s older than stored last_active, no write", userID)
	}

	if err := h.guard.MarkProcessed(ctx, key, EventTypeUserActivity, string(payload)); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return nil
}
