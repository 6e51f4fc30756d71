package userservice

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ProcessedEvents is the durable side of the idempotency guard.
type ProcessedEvents interface {
	Insert(ctx context.Context, record *ProcessedEvent) (bool, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *ProcessedEvent) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	ExistsTx(ctx context.Context, tx bun.IDB, key string) (bool, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type processedEvents struct {
	db *bun.DB
}

var _ ProcessedEvents = (*processedEvents)(nil)

// NewProcessedEventsRepository builds the bun backed processed event store.
func NewProcessedEventsRepository(db *bun.DB) ProcessedEvents {
	return &processedEvents{db: db}
}

func (r *processedEvents) Insert(ctx context.Context, record *ProcessedEvent) (bool, error) {
	return r.InsertTx(ctx, r.db, record)
}

// InsertTx records the key atomically. Concurrent deliveries race on the
// primary key and exactly one insert wins; the loser gets false, nil.
func (r *processedEvents) InsertTx(ctx context.Context, tx bun.IDB, record *ProcessedEvent) (bool, error) {
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now().UTC()
	}

	res, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (idempotency_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *processedEvents) Exists(ctx context.Context, key string) (bool, error) {
	return r.ExistsTx(ctx, r.db, key)
}

func (r *processedEvents) ExistsTx(ctx context.Context, tx bun.IDB, key string) (bool, error) {
	return tx.NewSelect().
		Model((*ProcessedEvent)(nil)).
		Where("?TableAlias.idempotency_key = ?", key).
		Exists(ctx)
}

func (r *processedEvents) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*ProcessedEvent)(nil)).
		Where("?TableAlias.processed_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
