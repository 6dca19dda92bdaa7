package accounts

import "context"

// Repo defines the interface for account storage operations.
type Repo interface {
	// Upsert creates or updates an account
	Upsert(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by email
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// SetLastLogin records a successful login
	SetLastLogin(ctx context.Context, id string, at int64) error
}
