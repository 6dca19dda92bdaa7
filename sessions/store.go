package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-tenant-server/accounts"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

// Store issues, resolves and expires session tokens. Resolution checks the
// in-process cache first and falls back to the durable copy, so a runtime
// instance that did not issue a token can still serve it.
type Store struct {
	repo         Repo
	ttl          time.Duration
	demoTenantID string

	cache map[string]*Session
	lock  sync.RWMutex

	nowTime func() time.Time
	log     zerolog.Logger
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore initializes a session store over a durable repo.
func NewStore(repo Repo, ttl time.Duration, demoTenantID string, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[sessions.NewStore] repo is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[sessions.NewStore] ttl must be positive")
	}
	if demoTenantID == "" {
		return nil, errors.New("[sessions.NewStore] demoTenantID is required")
	}

	store := &Store{
		repo:         repo,
		ttl:          ttl,
		demoTenantID: demoTenantID,
		cache:        make(map[string]*Session),
		nowTime:      time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

// Create issues a session for the account with the fixed TTL. The durable
// write is best-effort by design: write now, ignore failure, never retry.
// The instance that issued the session can always serve it from cache, which
// is the asymmetry that keeps login available during a store outage.
func (s *Store) Create(ctx context.Context, account *accounts.Account) (*Session, error) {
	token, err := mintToken(account.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Create] mintToken")
	}

	now := s.nowTime()
	session := &Session{
		Token:            token,
		UserID:           account.ID,
		CompanyID:        account.CompanyID,
		GroupID:          account.GroupID,
		Demo:             account.Demo,
		DelegatedOwnerID: account.DelegatedOwnerID,
		Role:             account.Role,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
	}

	s.lock.Lock()
	s.cache[token] = session
	s.lock.Unlock()

	if err := s.repo.Upsert(ctx, session); err != nil {
		s.log.Warn().Err(err).Str("user_id", account.ID).Msg("session not persisted durably; serving from memory")
	}

	return session, nil
}

// Resolve returns the session for a token, or ErrSessionAbsent. Expired
// sessions are treated identically to ones that never existed, and a durable
// store outage fails closed to unauthenticated.
func (s *Store) Resolve(ctx context.Context, token string) (*Session, error) {
	now := s.nowTime()

	s.lock.RLock()
	cached, ok := s.cache[token]
	s.lock.RUnlock()
	if ok {
		if cached.ValidAt(now) {
			return cached, nil
		}
		s.evict(token)
		return nil, apperrors.ErrSessionAbsent
	}

	session, err := s.repo.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSessionAbsent) {
			s.log.Warn().Err(err).Msg("session lookup failed; treating as absent")
		}
		return nil, apperrors.ErrSessionAbsent
	}

	if !session.ValidAt(now) {
		return nil, apperrors.ErrSessionAbsent
	}

	// Promote the durable copy into the in-process cache.
	s.lock.Lock()
	s.cache[token] = session
	s.lock.Unlock()
	return session, nil
}

// EffectiveTenantID maps a session to the tenant id every downstream
// component operates on. Demo sessions share the reserved demo tenant; real
// sessions own a tenant keyed by their user id. Tenant ids are never taken
// from caller-supplied input.
func (s *Store) EffectiveTenantID(session *Session) string {
	if session.Demo {
		return s.demoTenantID
	}
	return session.UserID
}

// Logout removes the session from cache and, best-effort, from the durable
// store.
func (s *Store) Logout(ctx context.Context, token string) {
	s.evict(token)
	if err := s.repo.Delete(ctx, token); err != nil && !errors.Is(err, apperrors.ErrSessionAbsent) {
		s.log.Warn().Err(err).Msg("durable session delete failed")
	}
}

// Sweep removes expired sessions from the cache and the durable copy.
// Lazy deletion on lookup remains the primary mechanism; this bounds
// durable growth.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	now := s.nowTime()

	s.lock.Lock()
	for token, session := range s.cache {
		if !session.ValidAt(now) {
			delete(s.cache, token)
		}
	}
	s.lock.Unlock()

	removed, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "[Store.Sweep] DeleteExpired")
	}
	return removed, nil
}

func (s *Store) evict(token string) {
	s.lock.Lock()
	delete(s.cache, token)
	s.lock.Unlock()
}
