package userservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	// DefaultIdempotencyCacheTTL bounds how long keys stay in the fast
	// cache. The durable store remains authoritative after expiry.
	DefaultIdempotencyCacheTTL = time.Hour

	// DefaultServiceName tags processed event rows written by this service.
	DefaultServiceName = "user-service"

	// EventTypeUserActivity labels consumed activity heartbeats.
	EventTypeUserActivity = "UserActivity"

	activityKeyPrefix = "idempotency:user-activity:"
)

// IdempotencyGuard answers "did we already process this key" with a fast
// cache in front of the durable processed event store. A cache miss is never
// trusted on its own, the store decides.
type IdempotencyGuard struct {
	cache       *cache.Cache
	store       ProcessedEvents
	serviceName string
	cacheTTL    time.Duration
	logger      Logger
}

// GuardOption configures an IdempotencyGuard.
type GuardOption func(*IdempotencyGuard)

// WithGuardCacheTTL overrides the fast cache TTL.
func WithGuardCacheTTL(ttl time.Duration) GuardOption {
	return func(g *IdempotencyGuard) {
		if ttl > 0 {
			g.cacheTTL = ttl
		}
	}
}

// WithGuardServiceName overrides the service name stamped on stored rows.
func WithGuardServiceName(name string) GuardOption {
	return func(g *IdempotencyGuard) {
		if name != "" {
			g.serviceName = name
		}
	}
}

// NewIdempotencyGuard builds the hybrid guard over the durable store.
func NewIdempotencyGuard(store ProcessedEvents, logger Logger, opts ...GuardOption) *IdempotencyGuard {
	if logger == nil {
		logger = defLogger{prefix: "IDEMPOTENCY"}
	}

	g := &IdempotencyGuard{
		store:       store,
		serviceName: DefaultServiceName,
		cacheTTL:    DefaultIdempotencyCacheTTL,
		logger:      logger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	g.cache = cache.New(g.cacheTTL, g.cacheTTL)

	return g
}

// IsProcessed reports whether the key was already handled. Store hits are
// backfilled into the cache so later lookups stay fast.
func (g *IdempotencyGuard) IsProcessed(ctx context.Context, key string) (bool, error) {
	if _, hit := g.cache.Get(key); hit {
		return true, nil
	}

	exists, err := g.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}

	if exists {
		g.cache.Set(key, struct{}{}, g.cacheTTL)
	}

	return exists, nil
}

// MarkProcessed records the key in both layers. Losing the insert race to a
// concurrent delivery is not an error, the key is processed either way.
func (g *IdempotencyGuard) MarkProcessed(ctx context.Context, key, eventType, eventData string) error {
	g.cache.Set(key, struct{}{}, g.cacheTTL)

	inserted, err := g.store.Insert(ctx, &ProcessedEvent{
		IdempotencyKey: key,
		EventType:      eventType,
		ServiceName:    g.serviceName,
		ProcessedAt:    time.Now().UTC(),
		EventData:      eventData,
	})
	if err != nil {
		return err
	}

	if !inserted {
		g.logger.Info("idempotency key %s already recorded by concurrent delivery", key)
	}

	return nil
}

// ActivityIdempotencyKey buckets activity heartbeats per user per minute so
// a burst of heartbeats collapses into one last_active write.
func ActivityIdempotencyKey(userID uuid.UUID, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute)
	return fmt.Sprintf("%s%s:%s", activityKeyPrefix, userID, bucket.Format(time.RFC3339))
}
