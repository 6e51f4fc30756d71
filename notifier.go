package userservice

// Notifier schedules side effects, typically message publishes, against the
// commit boundary of a unit of work.
type Notifier struct {
	logger Logger
}

// NewNotifier creates a commit aware notifier.
func NewNotifier(logger Logger) *Notifier {
	if logger == nil {
		logger = defLogger{prefix: "NOTIFY"}
	}
	return &Notifier{logger: logger}
}

// PublishAfterCommit runs action once uow commits, or immediately when no
// unit of work is active. Failures in action are logged and swallowed, a
// publish problem never undoes a committed state change.
func (n *Notifier) PublishAfterCommit(uow *UnitOfWork, action func() error) {
	if action == nil {
		return
	}

	run := func() {
		if err := action(); err != nil {
			n.logger.Error("after commit publish failed: %v", err)
		}
	}

	if uow == nil {
		run()
		return
	}

	uow.OnCommit(run)
}
