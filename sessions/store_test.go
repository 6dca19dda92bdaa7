package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tenant-server/accounts"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/sessions"
	fakesessionrepo "github.com/jrsteele09/go-tenant-server/sessions/repofakes"
)

const (
	testDemoTenantID = "shared-demo-tenant"
	testSessionTTL   = 8 * time.Hour
)

type testFixture struct {
	repo  *fakesessionrepo.FakeSessionRepo
	store *sessions.Store
	now   time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: fakesessionrepo.NewFakeSessionRepo(),
		now:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	store, err := sessions.NewStore(f.repo, testSessionTTL, testDemoTenantID,
		sessions.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.store = store
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func testAccount() *accounts.Account {
	return &accounts.Account{
		ID:        "user-1",
		Email:     "jane@example.com",
		CompanyID: "company-1",
		GroupID:   "group-1",
		Role:      accounts.RoleAdmin,
	}
}

func TestCreateIssuesUnguessableTokens(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s1, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)
	s2, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)

	require.NotEmpty(t, s1.Token)
	require.NotEqual(t, s1.Token, s2.Token)
	require.Equal(t, f.now.Add(testSessionTTL), s1.ExpiresAt)
	require.Equal(t, 2, f.repo.Len())
}

func TestCreateSurvivesDurableOutage(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.repo.FailWith = apperrors.ErrDurableUnavailable

	session, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)

	// The issuing instance still serves the session from its cache.
	f.repo.FailWith = nil
	resolved, err := f.store.Resolve(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", resolved.UserID)
	require.Equal(t, 0, f.repo.Len())
}

func TestResolvePromotesDurableCopy(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	// Another instance wrote the session; ours only has the durable copy.
	session := &sessions.Session{
		Token:     "token-from-elsewhere",
		UserID:    "user-2",
		CreatedAt: f.now,
		ExpiresAt: f.now.Add(time.Hour),
	}
	require.NoError(t, f.repo.Upsert(ctx, session))

	resolved, err := f.store.Resolve(ctx, "token-from-elsewhere")
	require.NoError(t, err)
	require.Equal(t, "user-2", resolved.UserID)

	// Promotion means a later durable outage does not break resolution.
	f.repo.FailWith = apperrors.ErrDurableUnavailable
	resolved, err = f.store.Resolve(ctx, "token-from-elsewhere")
	require.NoError(t, err)
	require.Equal(t, "user-2", resolved.UserID)
}

func TestResolveExpiredSessionIsAbsentDespiteCachedCopy(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)

	f.advance(testSessionTTL + time.Second)

	_, err = f.store.Resolve(ctx, session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionAbsent)
}

func TestResolveSessionLifetimeBoundary(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)

	f.advance(7*time.Hour + 59*time.Minute)
	resolved, err := f.store.Resolve(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", resolved.UserID)

	f.advance(2 * time.Minute) // now 8h01m after creation
	_, err = f.store.Resolve(ctx, session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionAbsent)
}

func TestResolveFailsClosedOnDurableOutage(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.repo.FailWith = apperrors.ErrDurableUnavailable

	_, err := f.store.Resolve(ctx, "unknown-token")
	require.ErrorIs(t, err, apperrors.ErrSessionAbsent)
}

func TestResolveUnknownTokenIsAbsent(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.store.Resolve(context.Background(), "never-issued")
	require.ErrorIs(t, err, apperrors.ErrSessionAbsent)
}

func TestEffectiveTenantID(t *testing.T) {
	f := setupTestFixture(t)

	real := &sessions.Session{UserID: "user-1"}
	require.Equal(t, "user-1", f.store.EffectiveTenantID(real))

	demo := &sessions.Session{UserID: "user-2", Demo: true}
	require.Equal(t, testDemoTenantID, f.store.EffectiveTenantID(demo))
}

func TestLogoutRemovesSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	session, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)

	f.store.Logout(ctx, session.Token)

	_, err = f.store.Resolve(ctx, session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionAbsent)
	require.Equal(t, 0, f.repo.Len())
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	expired, err := f.store.Create(ctx, testAccount())
	require.NoError(t, err)

	f.advance(testSessionTTL + time.Minute)

	live, err := f.store.Create(ctx, &accounts.Account{ID: "user-2"})
	require.NoError(t, err)

	removed, err := f.store.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, f.repo.Len())

	_, err = f.store.Resolve(ctx, expired.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionAbsent)

	_, err = f.store.Resolve(ctx, live.Token)
	require.NoError(t, err)
}
