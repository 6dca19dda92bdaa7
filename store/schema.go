package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

// Introspector is the slice of the gateway the schema evolver needs.
type Introspector interface {
	Exec(ctx context.Context, query string, args ...any) error
	Columns(ctx context.Context, table string) ([]string, error)
}

// ColumnSpec describes a column a pending write depends on. Legacy names a
// column an older deployment used for the same data; when present it is
// renamed instead of adding a fresh column.
type ColumnSpec struct {
	Name   string
	Type   string // defaults to TEXT
	Legacy string
}

// Evolver applies missing additive schema changes before writes that depend
// on them. It holds no state and is safe to call from multiple uncoordinated
// processes: "already exists" class failures count as success, everything
// else aborts the dependent write.
type Evolver struct {
	db  Introspector
	log zerolog.Logger
}

// NewEvolver returns a schema evolver over the given gateway.
func NewEvolver(db Introspector, log zerolog.Logger) *Evolver {
	return &Evolver{db: db, log: log}
}

// EnsureColumns introspects table and adds each required column that is
// absent. Callable repeatedly and concurrently; a second call is a no-op.
func (e *Evolver) EnsureColumns(ctx context.Context, table string, required []ColumnSpec) error {
	existing, err := e.db.Columns(ctx, table)
	if err != nil {
		return errors.Wrapf(apperrors.ErrMigrationFailed, "[Evolver.EnsureColumns] introspect %s: %s", table, err.Error())
	}

	present := make(map[string]bool, len(existing))
	for _, col := range existing {
		present[strings.ToLower(col)] = true
	}

	for _, spec := range required {
		if present[strings.ToLower(spec.Name)] {
			continue
		}

		if spec.Legacy != "" && present[strings.ToLower(spec.Legacy)] {
			if err := e.renameColumn(ctx, table, spec.Legacy, spec.Name); err != nil {
				return err
			}
			continue
		}

		if err := e.addColumn(ctx, table, spec); err != nil {
			return err
		}
	}

	return nil
}

// EnsureIndex opportunistically creates an index, idempotent under
// concurrent callers.
func (e *Evolver) EnsureIndex(ctx context.Context, name, table string, cols ...string) error {
	query := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, strings.Join(cols, ", "))
	if err := e.db.Exec(ctx, query); err != nil {
		if isAlreadyExistsError(err) {
			return nil
		}
		return errors.Wrapf(apperrors.ErrMigrationFailed, "[Evolver.EnsureIndex] %s: %s", name, err.Error())
	}
	return nil
}

func (e *Evolver) renameColumn(ctx context.Context, table, from, to string) error {
	query := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, from, to)
	if err := e.db.Exec(ctx, query); err != nil {
		if isAlreadyExistsError(err) {
			return nil
		}
		return errors.Wrapf(apperrors.ErrMigrationFailed, "[Evolver.renameColumn] %s.%s -> %s: %s", table, from, to, err.Error())
	}
	e.log.Info().Str("table", table).Str("from", from).Str("to", to).Msg("renamed legacy column")
	return nil
}

func (e *Evolver) addColumn(ctx context.Context, table string, spec ColumnSpec) error {
	colType := spec.Type
	if colType == "" {
		colType = "TEXT"
	}
	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, spec.Name, colType)
	if err := e.db.Exec(ctx, query); err != nil {
		if isAlreadyExistsError(err) {
			return nil
		}
		return errors.Wrapf(apperrors.ErrMigrationFailed, "[Evolver.addColumn] %s.%s: %s", table, spec.Name, err.Error())
	}
	e.log.Info().Str("table", table).Str("column", spec.Name).Msg("added column")
	return nil
}
