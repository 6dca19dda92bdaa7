package workingset

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Source loads one collection's records for a tenant from the durable store.
type Source interface {
	LoadCollection(ctx context.Context, c Collection, tenantID, groupID string) ([]Record, error)
}

// Hydrator lazily refreshes tenant working sets from the durable store. It
// is the only component that bulk-replaces collections.
type Hydrator struct {
	registry *Registry
	source   Source
	ttl      time.Duration
	nowTime  func() time.Time
	log      zerolog.Logger
}

// HydratorOption defines a function type to modify the Hydrator instance.
type HydratorOption func(*Hydrator)

// WithHydratorNowTime sets the now time function (primarily for testing)
func WithHydratorNowTime(nowFunc func() time.Time) HydratorOption {
	return func(h *Hydrator) {
		h.nowTime = nowFunc
	}
}

// WithHydratorLogger sets the hydrator logger.
func WithHydratorLogger(log zerolog.Logger) HydratorOption {
	return func(h *Hydrator) {
		h.log = log
	}
}

// NewHydrator initializes a hydrator with the given refresh TTL.
func NewHydrator(registry *Registry, source Source, ttl time.Duration, options ...HydratorOption) (*Hydrator, error) {
	if registry == nil {
		return nil, errors.New("[NewHydrator] registry is required")
	}
	if source == nil {
		return nil, errors.New("[NewHydrator] source is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewHydrator] ttl must be positive")
	}

	h := &Hydrator{
		registry: registry,
		source:   source,
		ttl:      ttl,
		nowTime:  time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h, nil
}

// EnsureHydrated refreshes the tenant's working set when the TTL window has
// elapsed. The demo tenant is never hydrated. When the working set carries a
// write newer than the last hydration, the reload is skipped but the
// watermark still advances: the durable store is not guaranteed to reflect a
// very recent write, and an older durable read must not clobber it. The next
// chance to reconcile is the next TTL boundary.
func (h *Hydrator) EnsureHydrated(ctx context.Context, tenantID, groupID string) error {
	if tenantID == DemoTenantID {
		return nil
	}

	now := h.nowTime()
	due, newerLocalWrite := h.registry.hydrationDue(tenantID, now, h.ttl)
	if !due {
		return nil
	}

	if newerLocalWrite {
		h.registry.markHydrated(tenantID, now)
		h.log.Debug().Str("tenant_id", tenantID).Msg("hydration skipped: local writes are newer")
		return nil
	}

	// Load everything before replacing anything. A failed read leaves every
	// collection untouched and the watermark unadvanced, so the next request
	// retries instead of caching a known-incomplete state.
	loaded := make(map[Collection][]Record, len(Collections))
	for _, c := range Collections {
		records, err := h.source.LoadCollection(ctx, c, tenantID, groupID)
		if err != nil {
			return errors.Wrapf(err, "[Hydrator.EnsureHydrated] load %s for %s", c, tenantID)
		}
		loaded[c] = records
	}

	set := h.registry.ForTenant(tenantID)
	for _, c := range Collections {
		set.replaceAll(c, loaded[c])
	}
	h.registry.markHydrated(tenantID, now)
	return nil
}
