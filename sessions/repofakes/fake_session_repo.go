package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex

	// FailWith, when set, makes every call fail. Used to simulate a durable
	// store outage.
	FailWith error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *session
	r.sessions[session.Token] = &copied
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, token string) (*sessions.Session, error) {
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.sessions[token]
	if !ok {
		return nil, apperrors.ErrSessionAbsent
	}
	copied := *session
	return &copied, nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, token string) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.sessions, token)
	return nil
}

func (r *FakeSessionRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	if r.FailWith != nil {
		return 0, r.FailWith
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	removed := 0
	for token, session := range r.sessions {
		if !session.ExpiresAt.After(cutoff) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many sessions the fake currently holds.
func (r *FakeSessionRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}
