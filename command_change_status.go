package userservice

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangeUserStatusMessage struct {
	UserID    uuid.UUID  `json:"user_id"`
	NewStatus UserStatus `json:"new_status"`
	Reason    string     `json:"reason,omitempty"`
}

func (e ChangeUserStatusMessage) Type() string { return "user.status.change" }

// ChangeUserStatusHandler applies moderation status transitions. The status
// event publishes only after the row update commits.
type ChangeUserStatusHandler struct {
	repo     RepositoryManager
	producer EventProducer
	notifier *Notifier
	logger   Logger
	now      func() time.Time
}

func NewChangeUserStatusHandler(repo RepositoryManager, producer EventProducer, notifier *Notifier, logger Logger) *ChangeUserStatusHandler {
	if logger == nil {
		logger = defLogger{prefix: "STATUS"}
	}
	if notifier == nil {
		notifier = NewNotifier(logger)
	}
	return &ChangeUserStatusHandler{
		repo:     repo,
		producer: normalizeEventProducer(producer),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *ChangeUserStatusHandler) Execute(ctx context.Context, event ChangeUserStatusMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during status change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeUserStatusHandler) execute(ctx context.Context, event ChangeUserStatusMessage) error {
	if !IsValidUserStatus(event.NewStatus) {
		return goerrors.New("unknown user status", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"status": event.NewStatus})
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInUnitOfWork(ctx, nil, func(ctx context.Context, tx bun.Tx, uow *UnitOfWork) error {
		user, err := h.repo.Users().FindByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryNotFound, "could not load user")
		}

		if user.Status == event.NewStatus {
			h.logger.Debug("user %s already in status %s, skipping", user.ID, user.Status)
			return nil
		}

		if !CanTransitionStatus(user.Status, event.NewStatus) {
			return goerrors.New("status transition not allowed", goerrors.CategoryValidation).
				WithMetadata(map[string]any{
					"from": user.Status,
					"to":   event.NewStatus,
				})
		}

		oldStatus := user.Status
		if _, err := h.repo.Users().UpdateStatusTx(ctx, tx, user.ID, event.NewStatus); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update user status")
		}

		statusEvent := UserStatusChangedEvent{
			UserID:    user.ID.String(),
			OldStatus: oldStatus,
			NewStatus: event.NewStatus,
			Timestamp: h.now().UTC(),
		}

		// The publish must survive the request context ending between
		// commit and callback execution.
		publishCtx := context.WithoutCancel(ctx)
		h.notifier.PublishAfterCommit(uow, func() error {
			return h.producer.PublishUserStatusChanged(publishCtx, statusEvent)
		})

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "status change transaction failed")
	}

	return nil
}
