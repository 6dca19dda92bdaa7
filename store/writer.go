package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Outcome is the structured result of a durable write attempt. It is always
// returned as a value, never raised, so every call site has to handle the
// degraded case explicitly.
type Outcome struct {
	Success  bool
	Attempts int
	Err      error
}

// Execer is the slice of the gateway the writer needs.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Writer wraps a single durable upsert with bounded retry. It never touches
// working sets; the in-memory write has already happened by the time a
// caller asks for durability.
type Writer struct {
	db          Execer
	maxAttempts int
	retryDelay  time.Duration
	log         zerolog.Logger
}

// NewWriter returns a writer with the given retry budget.
func NewWriter(db Execer, maxAttempts int, retryDelay time.Duration, log zerolog.Logger) *Writer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Writer{db: db, maxAttempts: maxAttempts, retryDelay: retryDelay, log: log}
}

// Persist upserts row into table, retrying transient failures up to the
// configured attempt cap. Structural failures (bad schema, bad statement)
// stop the schedule early instead of retrying what cannot self-heal.
func (w *Writer) Persist(ctx context.Context, table string, row map[string]any) Outcome {
	query, args := upsertStatement(table, row)

	attempts := 0
	operation := func() error {
		attempts++
		err := w.db.Exec(ctx, query, args...)
		if err == nil {
			return nil
		}
		if isStructuralError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.retryDelay), uint64(w.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, schedule); err != nil {
		w.log.Warn().Err(err).Str("table", table).Int("attempts", attempts).Msg("durable write exhausted")
		return Outcome{Success: false, Attempts: attempts, Err: err}
	}

	return Outcome{Success: true, Attempts: attempts}
}

// Delete removes a row by id under the same bounded-retry contract as
// Persist.
func (w *Writer) Delete(ctx context.Context, table, id string) Outcome {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)

	attempts := 0
	operation := func() error {
		attempts++
		err := w.db.Exec(ctx, query, id)
		if err == nil {
			return nil
		}
		if isStructuralError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.retryDelay), uint64(w.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, schedule); err != nil {
		w.log.Warn().Err(err).Str("table", table).Int("attempts", attempts).Msg("durable delete exhausted")
		return Outcome{Success: false, Attempts: attempts, Err: err}
	}
	return Outcome{Success: true, Attempts: attempts}
}

// upsertStatement builds a parameterized INSERT OR REPLACE over the row's
// columns. Column order is made deterministic for testability.
func upsertStatement(table string, row map[string]any) (string, []any) {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for _, col := range cols {
		args = append(args, row[col])
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	return query, args
}

// isStructuralError reports failures that retrying will not fix.
func isStructuralError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	for _, marker := range []string{"syntax error", "no such table", "no such column", "constraint", "malformed", "datatype mismatch"} {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}
