package userservice

import "sync"

type uowState int

const (
	uowPending uowState = iota
	uowCommitted
	uowRolledBack
)

// UnitOfWork collects callbacks bound to the outcome of the surrounding
// database transaction. Commit callbacks registered after a rollback are
// dropped; callbacks registered after their outcome already happened run
// immediately.
type UnitOfWork struct {
	mu         sync.Mutex
	state      uowState
	onCommit   []func()
	onRollback []func()
	logger     Logger
}

// NewUnitOfWork creates a pending unit of work.
func NewUnitOfWork(logger Logger) *UnitOfWork {
	if logger == nil {
		logger = defLogger{prefix: "UOW"}
	}
	return &UnitOfWork{logger: logger}
}

// OnCommit defers fn until commit. Registration order is preserved.
func (u *UnitOfWork) OnCommit(fn func()) {
	if fn == nil {
		return
	}

	u.mu.Lock()
	switch u.state {
	case uowPending:
		u.onCommit = append(u.onCommit, fn)
		u.mu.Unlock()
	case uowCommitted:
		u.mu.Unlock()
		u.runContained(fn)
	case uowRolledBack:
		u.mu.Unlock()
		u.logger.Debug("unit of work dropped callback registered after rollback")
	}
}

// OnRollback defers fn until rollback. Registration order is preserved.
func (u *UnitOfWork) OnRollback(fn func()) {
	if fn == nil {
		return
	}

	u.mu.Lock()
	switch u.state {
	case uowPending:
		u.onRollback = append(u.onRollback, fn)
		u.mu.Unlock()
	case uowRolledBack:
		u.mu.Unlock()
		u.runContained(fn)
	case uowCommitted:
		u.mu.Unlock()
		u.logger.Debug("unit of work dropped rollback callback registered after commit")
	}
}

func (u *UnitOfWork) commit() {
	u.mu.Lock()
	if u.state != uowPending {
		u.mu.Unlock()
		return
	}
	u.state = uowCommitted
	callbacks := u.onCommit
	u.onCommit = nil
	u.onRollback = nil
	u.mu.Unlock()

	for _, fn := range callbacks {
		u.runContained(fn)
	}
}

func (u *UnitOfWork) rollback() {
	u.mu.Lock()
	if u.state != uowPending {
		u.mu.Unlock()
		return
	}
	u.state = uowRolledBack
	dropped := len(u.onCommit)
	callbacks := u.onRollback
	u.onCommit = nil
	u.onRollback = nil
	u.mu.Unlock()

	if dropped > 0 {
		u.logger.Debug("unit of work rolled back, dropped %d commit callbacks", dropped)
	}

	for _, fn := range callbacks {
		u.runContained(fn)
	}
}

// runContained keeps a panicking callback from unwinding into the caller or
// skipping the callbacks queued behind it.
func (u *UnitOfWork) runContained(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("unit of work callback panicked: %v", r)
		}
	}()
	fn()
}
