package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/store"
)

// fakeSchemaDB mimics the durable store's DDL behavior: columns are tracked
// per table, duplicate adds fail the way sqlite does.
type fakeSchemaDB struct {
	cols          map[string][]string
	introspectErr error
	execs         []string
}

func newFakeSchemaDB(table string, cols ...string) *fakeSchemaDB {
	return &fakeSchemaDB{cols: map[string][]string{table: cols}}
}

func (f *fakeSchemaDB) Columns(_ context.Context, table string) ([]string, error) {
	if f.introspectErr != nil {
		return nil, f.introspectErr
	}
	return f.cols[table], nil
}

func (f *fakeSchemaDB) Exec(_ context.Context, query string, _ ...any) error {
	f.execs = append(f.execs, query)

	fields := strings.Fields(query)
	switch {
	case strings.HasPrefix(query, "ALTER TABLE") && strings.Contains(query, "ADD COLUMN"):
		table, col := fields[2], fields[5]
		for _, existing := range f.cols[table] {
			if existing == col {
				return errors.New("duplicate column name: " + col)
			}
		}
		f.cols[table] = append(f.cols[table], col)
	case strings.HasPrefix(query, "ALTER TABLE") && strings.Contains(query, "RENAME COLUMN"):
		table, from, to := fields[2], fields[5], fields[7]
		for i, existing := range f.cols[table] {
			if existing == from {
				f.cols[table][i] = to
			}
		}
	}
	return nil
}

func TestEnsureColumnsAddsMissing(t *testing.T) {
	db := newFakeSchemaDB("widgets", "id", "tenant_id")
	evolver := store.NewEvolver(db, zerolog.Nop())

	err := evolver.EnsureColumns(context.Background(), "widgets", []store.ColumnSpec{{Name: "supplier_id_2"}})
	require.NoError(t, err)
	require.Contains(t, db.cols["widgets"], "supplier_id_2")
}

func TestEnsureColumnsIdempotent(t *testing.T) {
	db := newFakeSchemaDB("widgets", "id", "tenant_id")
	evolver := store.NewEvolver(db, zerolog.Nop())

	specs := []store.ColumnSpec{{Name: "supplier_id_2"}}
	require.NoError(t, evolver.EnsureColumns(context.Background(), "widgets", specs))
	require.NoError(t, evolver.EnsureColumns(context.Background(), "widgets", specs))

	count := 0
	for _, col := range db.cols["widgets"] {
		if col == "supplier_id_2" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestEnsureColumnsRenamesLegacy(t *testing.T) {
	db := newFakeSchemaDB("stock_items", "id", "tenant_id", "supplier_id")
	evolver := store.NewEvolver(db, zerolog.Nop())

	err := evolver.EnsureColumns(context.Background(), "stock_items", []store.ColumnSpec{
		{Name: "supplier_ref", Legacy: "supplier_id"},
	})
	require.NoError(t, err)
	require.Contains(t, db.cols["stock_items"], "supplier_ref")
	require.NotContains(t, db.cols["stock_items"], "supplier_id")
}

func TestEnsureColumnsIntrospectFailureAborts(t *testing.T) {
	db := newFakeSchemaDB("widgets", "id")
	db.introspectErr = errors.New("connection refused")
	evolver := store.NewEvolver(db, zerolog.Nop())

	err := evolver.EnsureColumns(context.Background(), "widgets", []store.ColumnSpec{{Name: "supplier_id_2"}})
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrMigrationFailed)
	require.Empty(t, db.execs)
}

func TestEnsureColumnsToleratesConcurrentAdd(t *testing.T) {
	// Introspection saw the column missing, but another process added it
	// before our ALTER ran. The duplicate-column failure counts as success.
	db := newFakeSchemaDB("widgets", "id", "supplier_id_2")
	evolver := store.NewEvolver(&staleIntrospectDB{fakeSchemaDB: db}, zerolog.Nop())

	err := evolver.EnsureColumns(context.Background(), "widgets", []store.ColumnSpec{{Name: "supplier_id_2"}})
	require.NoError(t, err)
}

// staleIntrospectDB reports columns as they were before a concurrent writer
// added one.
type staleIntrospectDB struct {
	*fakeSchemaDB
}

func (s *staleIntrospectDB) Columns(_ context.Context, _ string) ([]string, error) {
	return []string{"id"}, nil
}

func TestEnsureIndexIdempotent(t *testing.T) {
	db := newFakeSchemaDB("widgets", "id", "tenant_id")
	evolver := store.NewEvolver(db, zerolog.Nop())

	require.NoError(t, evolver.EnsureIndex(context.Background(), "idx_widgets_tenant", "widgets", "tenant_id"))
	require.NoError(t, evolver.EnsureIndex(context.Background(), "idx_widgets_tenant", "widgets", "tenant_id"))
	require.Equal(t, "CREATE INDEX IF NOT EXISTS idx_widgets_tenant ON widgets (tenant_id)", db.execs[0])
}
