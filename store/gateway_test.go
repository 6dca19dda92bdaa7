package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tenant-server/store"
)

func openTestGateway(t *testing.T) *store.Gateway {
	t.Helper()

	g, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestOpenAppliesBaselineMigrations(t *testing.T) {
	g := openTestGateway(t)

	for _, table := range []string{"sessions", "accounts", "suppliers", "bom_lines", "stock_items", "non_conformances"} {
		cols, err := g.Columns(context.Background(), table)
		require.NoError(t, err)
		require.Contains(t, cols, "id", "table %s", table)
	}

	cols, err := g.Columns(context.Background(), "sessions")
	require.NoError(t, err)
	require.Contains(t, cols, "token")
	require.Contains(t, cols, "expires_at")
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	g1, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, g1.Close())

	g2, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, g2.Close())
}

func TestExecAndQueryRoundTrip(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	err := g.Exec(ctx, "INSERT INTO suppliers (id, tenant_id, attrs, updated_at) VALUES (?, ?, ?, ?)",
		"sup-1", "tenant-a", `{"name":"Acme"}`, 0)
	require.NoError(t, err)

	rows, err := g.Query(ctx, "SELECT id FROM suppliers WHERE tenant_id = ?", "tenant-a")
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"sup-1"}, ids)
}

func TestSessionsColumnsMissingTableIsEmpty(t *testing.T) {
	g := openTestGateway(t)

	cols, err := g.Columns(context.Background(), "does_not_exist")
	require.NoError(t, err)
	require.Empty(t, cols)
}
