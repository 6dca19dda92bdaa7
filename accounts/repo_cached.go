package accounts

import (
	"context"
	"sync"
)

var _ Repo = (*CachedRepo)(nil)

// CachedRepo decorates another repo with an in-process cache keyed by email.
// Registration and login both look accounts up by email, so the first hit
// per process pays the durable read and subsequent ones do not.
type CachedRepo struct {
	inner   Repo
	byEmail map[string]*Account
	lock    sync.RWMutex
}

func NewCachedRepo(inner Repo) *CachedRepo {
	return &CachedRepo{inner: inner, byEmail: make(map[string]*Account)}
}

func (r *CachedRepo) Upsert(ctx context.Context, account *Account) error {
	if err := r.inner.Upsert(ctx, account); err != nil {
		return err
	}
	r.lock.Lock()
	r.byEmail[account.Email] = account
	r.lock.Unlock()
	return nil
}

func (r *CachedRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.lock.RLock()
	cached, ok := r.byEmail[email]
	r.lock.RUnlock()
	if ok {
		return cached, nil
	}

	account, err := r.inner.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	r.lock.Lock()
	r.byEmail[account.Email] = account
	r.lock.Unlock()
	return account, nil
}

func (r *CachedRepo) GetByID(ctx context.Context, id string) (*Account, error) {
	r.lock.RLock()
	for _, cached := range r.byEmail {
		if cached.ID == id {
			r.lock.RUnlock()
			return cached, nil
		}
	}
	r.lock.RUnlock()
	return r.inner.GetByID(ctx, id)
}

func (r *CachedRepo) SetLastLogin(ctx context.Context, id string, at int64) error {
	if err := r.inner.SetLastLogin(ctx, id, at); err != nil {
		return err
	}
	r.lock.Lock()
	for _, cached := range r.byEmail {
		if cached.ID == id {
			cached.LastLogin = fromMillis(at)
		}
	}
	r.lock.Unlock()
	return nil
}
