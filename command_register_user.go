package userservice

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Profile  string `json:"profile,omitempty"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates accounts and announces them after commit.
type RegisterUserHandler struct {
	repo     RepositoryManager
	producer EventProducer
	notifier *Notifier
	logger   Logger
	now      func() time.Time
}

func NewRegisterUserHandler(repo RepositoryManager, producer EventProducer, notifier *Notifier, logger Logger) *RegisterUserHandler {
	if logger == nil {
		logger = defLogger{prefix: "REGISTER"}
	}
	if notifier == nil {
		notifier = NewNotifier(logger)
	}
	return &RegisterUserHandler{
		repo:     repo,
		producer: normalizeEventProducer(producer),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInUnitOfWork(ctx, nil, func(ctx context.Context, tx bun.Tx, uow *UnitOfWork) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Profile = event.Profile
		user.Username = getUsername(event.Username, event.Email)

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		registeredEvent := UserRegisteredEvent{
			UserID:    user.ID.String(),
			Email:     user.Email,
			Username:  user.Username,
			Timestamp: h.now().UTC(),
		}

		publishCtx := context.WithoutCancel(ctx)
		h.notifier.PublishAfterCommit(uow, func() error {
			return h.producer.PublishUserRegistered(publishCtx, registeredEvent)
		})

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
