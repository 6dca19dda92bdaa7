package sessions

import (
	"context"
	"time"
)

// Repo defines the interface for durable session storage. Sessions are
// short-lived records and must be swept regularly.
type Repo interface {
	// Upsert creates or updates a session
	Upsert(ctx context.Context, session *Session) error

	// Get retrieves a session by token
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session by token
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes sessions whose expiry is at or before cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}
