package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// TokenRepo persists the refresh-token blacklist and single-use
// password reset tokens.
type TokenRepo struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{db: db} }

// EnsureTables creates the auth token tables if not exists (idempotent).
func (r *TokenRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS revoked_tokens (
  jti TEXT PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  expires_at TIMESTAMPTZ NOT NULL,
  revoked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expiry ON revoked_tokens(expires_at);

CREATE TABLE IF NOT EXISTS password_reset_tokens (
  id TEXT PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  secret_hash TEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  used_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_password_reset_account ON password_reset_tokens(account_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Revoke blacklists a refresh token's jti until the token would have
// expired anyway. Revoking the same jti twice is a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, jti string, accountID int64, expiresAt time.Time) error {
	const q = `
INSERT INTO revoked_tokens (jti, account_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (jti) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, jti, accountID, expiresAt)
	return err
}

// IsRevoked reports whether a jti is on the blacklist.
func (r *TokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	const q = `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`
	err := r.db.GetContext(ctx, &revoked, q, jti)
	return revoked, err
}

// PurgeExpired removes blacklist rows whose tokens can no longer be
// presented. Safe to run at any time.
func (r *TokenRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateReset stores a new reset token; only the hash of the secret is
// persisted.
func (r *TokenRepo) CreateReset(ctx context.Context, id string, accountID int64, secretHash string, expiresAt time.Time) error {
	const q = `
INSERT INTO password_reset_tokens (id, account_id, secret_hash, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, id, accountID, secretHash, expiresAt)
	return err
}

// ConsumeReset marks a reset token used and returns its account, in
// one statement so a token can never be redeemed twice. It runs
// against ext so the caller can pair it with the password overwrite in
// one transaction. sql.ErrNoRows means the token is unknown, expired,
// already used, or bound to a different secret.
func ConsumeReset(ctx context.Context, ext sqlx.ExtContext, id, secretHash string) (int64, error) {
	const q = `
UPDATE password_reset_tokens
SET used_at = NOW()
WHERE id = $1 AND secret_hash = $2 AND used_at IS NULL AND expires_at > NOW()
RETURNING account_id`
	var accountID int64
	if err := sqlx.GetContext(ctx, ext, &accountID, q, id, secretHash); err != nil {
		return 0, err
	}
	return accountID, nil
}
