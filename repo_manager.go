package userservice

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	ProcessedEvents() ProcessedEvents

	// RunInUnitOfWork runs f inside a database transaction with a unit of
	// work whose callbacks fire only after that transaction commits.
	RunInUnitOfWork(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx, uow *UnitOfWork) error) error
}

type mngr struct {
	db              *bun.DB
	users           Users
	processedEvents ProcessedEvents
	logger          Logger
}

// NewRepositoryManager builds the manager over a live bun database handle.
func NewRepositoryManager(db *bun.DB, logger Logger) RepositoryManager {
	if logger == nil {
		logger = defLogger{prefix: "REPO"}
	}
	return &mngr{
		db:              db,
		users:           NewUsersRepository(db),
		processedEvents: NewProcessedEventsRepository(db),
		logger:          logger,
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.processedEvents == nil {
		return errors.New("repository processedEvents should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) RunInUnitOfWork(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx, uow *UnitOfWork) error) error {
	uow := NewUnitOfWork(m.logger)

	err := m.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return f(ctx, tx, uow)
	})

	if err != nil {
		uow.rollback()
		return err
	}

	uow.commit()
	return nil
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) ProcessedEvents() ProcessedEvents {
	return m.processedEvents
}
