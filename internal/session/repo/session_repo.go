package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/andvari/socialcore/internal/session/entity"
)

// SessionRepo provides data access for the session registry. Every
// state transition is a single conditional statement so concurrent
// requests against the same token cannot interleave.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `session_token, account_id, ip_address, user_agent, is_active, created_at, last_activity`

// EnsureTable creates the sessions table if not exists (idempotent).
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  session_token TEXT PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  ip_address TEXT,
  user_agent TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sessions_account_activity ON sessions(account_id, last_activity DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_active_activity ON sessions(is_active, last_activity DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Upsert creates or rebinds the row for a token at login: at most one
// row per token, reactivated and stamped in one statement.
func (r *SessionRepo) Upsert(ctx context.Context, s *entity.Session) error {
	const q = `
INSERT INTO sessions (session_token, account_id, ip_address, user_agent, is_active, last_activity)
VALUES ($1, $2, $3, $4, true, NOW())
ON CONFLICT (session_token) DO UPDATE SET
  account_id = EXCLUDED.account_id,
  ip_address = EXCLUDED.ip_address,
  user_agent = EXCLUDED.user_agent,
  is_active = true,
  last_activity = NOW()
RETURNING created_at, last_activity`
	row := r.db.QueryRowxContext(ctx, q, s.Token, s.AccountID, s.IPAddress, s.UserAgent)
	return row.Scan(&s.CreatedAt, &s.LastActivity)
}

// Get fetches one session row by token or sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, token string) (*entity.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_token = $1`
	var s entity.Session
	if err := r.db.GetContext(ctx, &s, q, token); err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch refreshes last_activity without changing lifecycle state.
func (r *SessionRepo) Touch(ctx context.Context, token string) error {
	const q = `UPDATE sessions SET last_activity = NOW() WHERE session_token = $1`
	_, err := r.db.ExecContext(ctx, q, token)
	return err
}

// End flips the session to its terminal state. Ending an already-ended
// or absent session is a no-op, not an error.
func (r *SessionRepo) End(ctx context.Context, token string) error {
	const q = `UPDATE sessions SET is_active = false WHERE session_token = $1`
	_, err := r.db.ExecContext(ctx, q, token)
	return err
}

// EndAllExcept ends every active session of the account but the one
// holding currentToken, and reports how many were affected.
func (r *SessionRepo) EndAllExcept(ctx context.Context, accountID int64, currentToken string) (int64, error) {
	const q = `UPDATE sessions SET is_active = false
               WHERE account_id = $1 AND is_active AND session_token <> $2`
	res, err := r.db.ExecContext(ctx, q, accountID, currentToken)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByAccount returns the account's sessions, most recently active
// first.
func (r *SessionRepo) ListByAccount(ctx context.Context, accountID int64) ([]entity.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE account_id = $1 ORDER BY last_activity DESC`
	var rows []entity.Session
	if err := r.db.SelectContext(ctx, &rows, q, accountID); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountActive counts the account's open sessions.
func (r *SessionRepo) CountActive(ctx context.Context, accountID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM sessions WHERE account_id = $1 AND is_active`
	var n int64
	err := r.db.GetContext(ctx, &n, q, accountID)
	return n, err
}
