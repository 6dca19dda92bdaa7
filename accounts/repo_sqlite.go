package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/store"
)

var _ Repo = (*SQLRepo)(nil)

// SQLRepo persists accounts through the durable store gateway.
type SQLRepo struct {
	db *store.Gateway
}

func NewSQLRepo(db *store.Gateway) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) Upsert(ctx context.Context, account *Account) error {
	err := r.db.Exec(ctx, `INSERT OR REPLACE INTO accounts
		(id, email, password_hash, company_id, group_id, demo, plan, role, trial_ends_at, delegated_owner_id, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.CompanyID,
		account.GroupID,
		boolToInt(account.Demo),
		account.Plan,
		string(account.Role),
		toMillis(account.TrialEndsAt),
		account.DelegatedOwnerID,
		toMillis(account.CreatedAt),
		toMillis(account.LastLogin),
	)
	return errors.Wrap(err, "[SQLRepo.Upsert]")
}

func (r *SQLRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.getBy(ctx, "id", id)
}

func (r *SQLRepo) SetLastLogin(ctx context.Context, id string, at int64) error {
	err := r.db.Exec(ctx, "UPDATE accounts SET last_login = ? WHERE id = ?", at, id)
	return errors.Wrap(err, "[SQLRepo.SetLastLogin]")
}

func (r *SQLRepo) getBy(ctx context.Context, column, value string) (*Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, password_hash, company_id, group_id, demo, plan, role,
		trial_ends_at, delegated_owner_id, created_at, last_login
		FROM accounts WHERE `+column+` = ?`, value)

	var (
		account     Account
		demo        int
		role        string
		trialEndsAt int64
		createdAt   int64
		lastLogin   int64
	)
	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.CompanyID, &account.GroupID,
		&demo, &account.Plan, &role, &trialEndsAt, &account.DelegatedOwnerID, &createdAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "[SQLRepo.getBy] scan")
	}

	account.Demo = demo != 0
	account.Role = RoleType(role)
	account.TrialEndsAt = fromMillis(trialEndsAt)
	account.CreatedAt = fromMillis(createdAt)
	account.LastLogin = fromMillis(lastLogin)
	return &account, nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
