package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tenant-server/accounts"
	fakeaccountrepo "github.com/jrsteele09/go-tenant-server/accounts/repofakes"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := accounts.HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", hash)

	require.True(t, accounts.CheckPasswordHash("s3cret-password", hash))
	require.False(t, accounts.CheckPasswordHash("wrong-password", hash))
}

func TestOnTrial(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	account := &accounts.Account{TrialEndsAt: now.Add(24 * time.Hour)}
	require.True(t, account.OnTrial(now))

	account.TrialEndsAt = now.Add(-time.Minute)
	require.False(t, account.OnTrial(now))

	account.TrialEndsAt = time.Time{}
	require.False(t, account.OnTrial(now))
}

func TestCachedRepoMemoizesByEmail(t *testing.T) {
	ctx := context.Background()
	inner := fakeaccountrepo.NewFakeAccountRepo()
	repo := accounts.NewCachedRepo(inner)

	account := &accounts.Account{ID: "acc-1", Email: "jane@example.com"}
	require.NoError(t, repo.Upsert(ctx, account))

	// First lookup primes the cache; a durable outage afterwards is invisible.
	got, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, "acc-1", got.ID)

	inner.FailWith = apperrors.ErrDurableUnavailable
	got, err = repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, "acc-1", got.ID)

	_, err = repo.GetByEmail(ctx, "unknown@example.com")
	require.Error(t, err)
}

func TestCachedRepoSetLastLoginUpdatesCache(t *testing.T) {
	ctx := context.Background()
	inner := fakeaccountrepo.NewFakeAccountRepo()
	repo := accounts.NewCachedRepo(inner)

	require.NoError(t, repo.Upsert(ctx, &accounts.Account{ID: "acc-1", Email: "jane@example.com"}))

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastLogin(ctx, "acc-1", at.UnixMilli()))

	got, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, at, got.LastLogin)
}
