package userservice

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type TrackLoginMessage struct {
	UserID uuid.UUID `json:"user_id"`
}

func (e TrackLoginMessage) Type() string { return "user.login.track" }

// TrackLoginHandler stamps last_login and announces the login after commit.
type TrackLoginHandler struct {
	repo     RepositoryManager
	producer EventProducer
	notifier *Notifier
	now      func() time.Time
}

func NewTrackLoginHandler(repo RepositoryManager, producer EventProducer, notifier *Notifier, logger Logger) *TrackLoginHandler {
	if notifier == nil {
		notifier = NewNotifier(logger)
	}
	return &TrackLoginHandler{
		repo:     repo,
		producer: normalizeEventProducer(producer),
		notifier: notifier,
		now:      time.Now,
	}
}

func (h *TrackLoginHandler) Execute(ctx context.Context, event TrackLoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login tracking",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *TrackLoginHandler) execute(ctx context.Context, event TrackLoginMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	loggedInAt := h.now().UTC()

	err := h.repo.RunInUnitOfWork(ctx, nil, func(ctx context.Context, tx bun.Tx, uow *UnitOfWork) error {
		if err := h.repo.Users().TrackSuccessfulLoginTx(ctx, tx, event.UserID, loggedInAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not track login")
		}

		loginEvent := UserLoggedInEvent{
			UserID:    event.UserID.String(),
			Timestamp: loggedInAt,
		}

		publishCtx := context.WithoutCancel(ctx)
		h.notifier.PublishAfterCommit(uow, func() error {
			return h.producer.PublishUserLoggedIn(publishCtx, loginEvent)
		})

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "login tracking transaction failed")
	}

	return nil
}
