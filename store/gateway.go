package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	_ "modernc.org/sqlite"
)

// Gateway executes parameterized reads, writes and schema introspection
// against the durable store. It carries no business logic; callers own
// query text and argument binding.
type Gateway struct {
	sqlDB *sql.DB
}

// Open opens the durable store and applies the embedded baseline migrations.
func Open(dsn string) (*Gateway, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("[store.Open] dsn is required")
	}

	cleanPath := filepath.Clean(dsn)
	sqlDB, err := sql.Open("sqlite", cleanPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, errors.Wrap(err, "[store.Open] sql.Open")
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[store.Open] ping")
	}

	g := &Gateway{sqlDB: sqlDB}
	if err := g.applyMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[store.Open] applyMigrations")
	}
	return g, nil
}

// Close releases the underlying database handle.
func (g *Gateway) Close() error {
	if g == nil || g.sqlDB == nil {
		return nil
	}
	return g.sqlDB.Close()
}

// Exec runs a parameterized statement. Failures are reported as
// ErrDurableUnavailable so callers can branch with errors.Is.
func (g *Gateway) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := g.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(apperrors.ErrDurableUnavailable, "[Gateway.Exec] %s", err.Error())
	}
	return nil
}

// Query runs a parameterized read. The caller owns the returned rows.
func (g *Gateway) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := g.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrDurableUnavailable, "[Gateway.Query] %s", err.Error())
	}
	return rows, nil
}

// QueryRow runs a parameterized single-row read.
func (g *Gateway) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return g.sqlDB.QueryRowContext(ctx, query, args...)
}

// Columns introspects the current column set of a table. A failed read is an
// error, never an empty list, so callers can tell "no columns" apart from
// "could not look".
func (g *Gateway) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := g.sqlDB.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrDurableUnavailable, "[Gateway.Columns] %s", err.Error())
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "[Gateway.Columns] scan")
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(apperrors.ErrDurableUnavailable, "[Gateway.Columns] %s", err.Error())
	}
	return cols, nil
}
