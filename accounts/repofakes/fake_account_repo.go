package fakeaccountrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-tenant-server/accounts"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*accounts.Account // keyed by ID
	lock     sync.RWMutex

	// FailWith, when set, makes every call fail. Used to simulate a durable
	// store outage.
	FailWith error
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{accounts: make(map[string]*accounts.Account)}
}

func (r *FakeAccountRepo) Upsert(_ context.Context, account *accounts.Account) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *FakeAccountRepo) GetByEmail(_ context.Context, email string) (*accounts.Account, error) {
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, apperrors.ErrAccountNotFound
}

func (r *FakeAccountRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *FakeAccountRepo) SetLastLogin(_ context.Context, id string, at int64) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	account.LastLogin = time.UnixMilli(at).UTC()
	return nil
}
