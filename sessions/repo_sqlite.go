package sessions

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tenant-server/accounts"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/store"
)

var _ Repo = (*SQLRepo)(nil)

// SQLRepo persists sessions through the durable store gateway.
type SQLRepo struct {
	db *store.Gateway
}

func NewSQLRepo(db *store.Gateway) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) Upsert(ctx context.Context, session *Session) error {
	demo := 0
	if session.Demo {
		demo = 1
	}
	err := r.db.Exec(ctx, `INSERT OR REPLACE INTO sessions
		(token, user_id, company_id, group_id, demo, delegated_owner_id, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.Token,
		session.UserID,
		session.CompanyID,
		session.GroupID,
		demo,
		session.DelegatedOwnerID,
		string(session.Role),
		session.CreatedAt.UTC().UnixMilli(),
		session.ExpiresAt.UTC().UnixMilli(),
	)
	return errors.Wrap(err, "[sessions.SQLRepo.Upsert]")
}

func (r *SQLRepo) Get(ctx context.Context, token string) (*Session, error) {
	row := r.db.QueryRow(ctx, `SELECT token, user_id, company_id, group_id, demo, delegated_owner_id, role, created_at, expires_at
		FROM sessions WHERE token = ?`, token)

	var (
		session   Session
		demo      int
		role      string
		createdAt int64
		expiresAt int64
	)
	err := row.Scan(
		&session.Token, &session.UserID, &session.CompanyID, &session.GroupID,
		&demo, &session.DelegatedOwnerID, &role, &createdAt, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrSessionAbsent
		}
		return nil, errors.Wrap(err, "[sessions.SQLRepo.Get] scan")
	}

	session.Demo = demo != 0
	session.Role = accounts.RoleType(role)
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	session.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &session, nil
}

func (r *SQLRepo) Delete(ctx context.Context, token string) error {
	err := r.db.Exec(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return errors.Wrap(err, "[sessions.SQLRepo.Delete]")
}

func (r *SQLRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	// The gateway's Exec does not surface affected rows; count first so the
	// sweep can report what it removed.
	var count int
	row := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sessions WHERE expires_at <= ?", cutoff.UTC().UnixMilli())
	if err := row.Scan(&count); err != nil {
		return 0, errors.Wrap(err, "[sessions.SQLRepo.DeleteExpired] count")
	}

	if err := r.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= ?", cutoff.UTC().UnixMilli()); err != nil {
		return 0, errors.Wrap(err, "[sessions.SQLRepo.DeleteExpired]")
	}
	return count, nil
}
