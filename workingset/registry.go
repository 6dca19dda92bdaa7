package workingset

import (
	"sync"
	"time"
)

// DemoTenantID is the reserved tenant shared by all sessions flagged demo.
// Its working set is seeded once at startup, read-mostly, never hydrated
// from the durable store and never written back.
const DemoTenantID = "shared-demo-tenant"

type tenantEntry struct {
	set *WorkingSet

	// lastHydratedAt and lastWriteAt are monotonic only within this process.
	// Hydration must be skipped whenever lastWriteAt > lastHydratedAt: once
	// this process has seen fresher local state, an older durable read must
	// not overwrite it until a later TTL boundary.
	lastHydratedAt time.Time
	lastWriteAt    time.Time
}

// Registry owns every tenant working set in the process. It is an explicit
// component passed by dependency injection; there is no ambient global state.
// Working sets live for the life of the process once created; tenant counts
// per process are expected to stay small, so there is no eviction.
type Registry struct {
	lock    sync.Mutex
	tenants map[string]*tenantEntry
	nowTime func() time.Time
}

// RegistryOption defines a function type to modify the Registry instance.
type RegistryOption func(*Registry)

// WithRegistryNowTime sets the now time function (primarily for testing)
func WithRegistryNowTime(nowFunc func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		tenants: make(map[string]*tenantEntry),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ForTenant returns the tenant's working set, creating an empty skeleton on
// first access.
func (r *Registry) ForTenant(tenantID string) *WorkingSet {
	return r.entry(tenantID).set
}

// MarkWritten records that the tenant's working set was mutated. Every
// incremental mutation on a real tenant must be followed by this call so the
// hydrator's ordering invariant holds. The demo tenant is never hydrated, so
// marking it is a no-op.
func (r *Registry) MarkWritten(tenantID string) {
	if tenantID == DemoTenantID {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.entryLocked(tenantID).lastWriteAt = r.nowTime()
}

// Len reports how many tenant working sets the process currently holds.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.tenants)
}

// HydrationMeta returns the tenant's hydration watermarks.
func (r *Registry) HydrationMeta(tenantID string) (lastHydratedAt, lastWriteAt time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e := r.entryLocked(tenantID)
	return e.lastHydratedAt, e.lastWriteAt
}

func (r *Registry) entry(tenantID string) *tenantEntry {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.entryLocked(tenantID)
}

func (r *Registry) entryLocked(tenantID string) *tenantEntry {
	e, ok := r.tenants[tenantID]
	if !ok {
		e = &tenantEntry{set: newWorkingSet()}
		r.tenants[tenantID] = e
	}
	return e
}

// hydrationDue reports whether the TTL window has elapsed and whether a
// newer local write forbids reloading.
func (r *Registry) hydrationDue(tenantID string, now time.Time, ttl time.Duration) (due, newerLocalWrite bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e := r.entryLocked(tenantID)
	if e.lastHydratedAt.IsZero() {
		due = true
	} else {
		due = now.Sub(e.lastHydratedAt) >= ttl
	}
	newerLocalWrite = e.lastWriteAt.After(e.lastHydratedAt)
	return due, newerLocalWrite
}

func (r *Registry) markHydrated(tenantID string, now time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entryLocked(tenantID).lastHydratedAt = now
}
