package userservice

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultIdempotencyRetention is how long processed event rows are kept
// before the reaper removes them.
const DefaultIdempotencyRetention = 30 * 24 * time.Hour

// Reaper prunes expired processed event rows on a schedule so the durable
// idempotency store does not grow without bound.
type Reaper struct {
	store     ProcessedEvents
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    Logger
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithReaperRetention overrides how long rows are kept.
func WithReaperRetention(retention time.Duration) ReaperOption {
	return func(r *Reaper) {
		if retention > 0 {
			r.retention = retention
		}
	}
}

// WithReaperSchedule overrides the cron expression.
func WithReaperSchedule(schedule string) ReaperOption {
	return func(r *Reaper) {
		if schedule != "" {
			r.schedule = schedule
		}
	}
}

// NewReaper builds a reaper over the processed event store.
func NewReaper(store ProcessedEvents, logger Logger, opts ...ReaperOption) *Reaper {
	if logger == nil {
		logger = defLogger{prefix: "REAPER"}
	}

	r := &Reaper{
		store:     store,
		retention: DefaultIdempotencyRetention,
		schedule:  "@daily",
		logger:    logger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Start schedules the prune job and runs the scheduler in the background.
func (r *Reaper) Start() error {
	r.cron = cron.New()

	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("reaper run failed: %v", err)
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for an in flight run to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce prunes rows older than the retention window.
func (r *Reaper) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.retention)
	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		r.logger.Info("reaper pruned %d processed events older than %s", deleted, cutoff.Format(time.RFC3339))
	}

	return nil
}
