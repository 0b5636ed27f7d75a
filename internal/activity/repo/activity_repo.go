package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andvari/socialcore/internal/activity/entity"
	"github.com/andvari/socialcore/pkg/utilities"
)

// ActivityRepo provides data access for the append-only activity log
// and its per-account aggregate projection.
type ActivityRepo struct {
	db *sqlx.DB
}

func NewActivityRepo(db *sqlx.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// EnsureTables creates the activity tables if not exists (idempotent).
func (r *ActivityRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS activities (
  id BIGINT PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  activity_type TEXT NOT NULL,
  subject_kind TEXT,
  subject_id BIGINT,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  ip_address TEXT,
  user_agent TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_activities_account_created ON activities(account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_activities_type_created ON activities(activity_type, created_at DESC);
CREATE TABLE IF NOT EXISTS activity_aggregates (
  account_id BIGINT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
  total_activities BIGINT NOT NULL DEFAULT 0,
  logins BIGINT NOT NULL DEFAULT 0,
  posts_created BIGINT NOT NULL DEFAULT 0,
  comments_created BIGINT NOT NULL DEFAULT 0,
  likes_received BIGINT NOT NULL DEFAULT 0,
  followers_gained BIGINT NOT NULL DEFAULT 0,
  current_streak BIGINT NOT NULL DEFAULT 0,
  longest_streak BIGINT NOT NULL DEFAULT 0,
  last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  show_activity BOOLEAN NOT NULL DEFAULT true
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// InsertEvent appends one immutable event row. It runs against ext so
// callers can place it inside a wider transaction.
func InsertEvent(ctx context.Context, ext sqlx.ExtContext, ev *entity.Activity) error {
	if ev.ID == 0 {
		ev.ID = utilities.NewSnowflakeID()
	}
	if len(ev.Metadata) == 0 {
		ev.Metadata = []byte("{}")
	}
	const q = `INSERT INTO activities (id, account_id, activity_type, subject_kind, subject_id, metadata, ip_address, user_agent)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING created_at`
	row := ext.QueryRowxContext(ctx, q,
		ev.ID, ev.AccountID, ev.Type, ev.SubjectKind, ev.SubjectID, ev.Metadata, ev.IPAddress, ev.UserAgent)
	return row.Scan(&ev.CreatedAt)
}

// counterDeltas is what one event contributes to each aggregate
// counter. Every event adds one to total_activities on top of these.
type counterDeltas struct {
	Logins          int64
	PostsCreated    int64
	CommentsCreated int64
	LikesReceived   int64
	FollowersGained int64
}

// deltasFor maps an event type to the counter it bumps. Types without
// a dedicated counter (logout, profile_update, ...) contribute to the
// total only.
func deltasFor(typ entity.ActivityType) counterDeltas {
	var d counterDeltas
	switch typ {
	case entity.TypeLogin:
		d.Logins = 1
	case entity.TypePostCreate:
		d.PostsCreated = 1
	case entity.TypeCommentCreate:
		d.CommentsCreated = 1
	case entity.TypePostLike, entity.TypeCommentLike:
		d.LikesReceived = 1
	case entity.TypeFollow:
		d.FollowersGained = 1
	}
	return d
}

// BumpAggregate updates the aggregate projection for one event of the
// given type as a single atomic upsert. The increments come from
// deltasFor; the calendar-day streak stays inside the statement so
// concurrent events for the same account cannot lose an update.
//
// Streak policy: a same-day event keeps the current streak, an event on
// the day after last_active extends it by one, anything later resets it
// to one.
func BumpAggregate(ctx context.Context, ext sqlx.ExtContext, accountID int64, typ entity.ActivityType) error {
	d := deltasFor(typ)
	const q = `
INSERT INTO activity_aggregates AS agg
  (account_id, total_activities, logins, posts_created, comments_created, likes_received, followers_gained, current_streak, longest_streak, last_active)
VALUES ($1, 1, $2, $3, $4, $5, $6, 1, 1, NOW())
ON CONFLICT (account_id) DO UPDATE SET
  total_activities = agg.total_activities + 1,
  logins           = agg.logins + $2,
  posts_created    = agg.posts_created + $3,
  comments_created = agg.comments_created + $4,
  likes_received   = agg.likes_received + $5,
  followers_gained = agg.followers_gained + $6,
  current_streak   = CASE
                       WHEN agg.last_active::date = CURRENT_DATE THEN agg.current_streak
                       WHEN agg.last_active::date = CURRENT_DATE - 1 THEN agg.current_streak + 1
                       ELSE 1
                     END,
  longest_streak   = GREATEST(agg.longest_streak, CASE
                       WHEN agg.last_active::date = CURRENT_DATE THEN agg.current_streak
                       WHEN agg.last_active::date = CURRENT_DATE - 1 THEN agg.current_streak + 1
                       ELSE 1
                     END),
  last_active      = NOW()`
	_, err := ext.ExecContext(ctx, q, accountID,
		d.Logins, d.PostsCreated, d.CommentsCreated, d.LikesReceived, d.FollowersGained)
	return err
}

// Record appends ev and bumps the aggregate in one transaction: both
// commit or neither does.
func (r *ActivityRepo) Record(ctx context.Context, ev *entity.Activity) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := InsertEvent(ctx, tx, ev); err != nil {
		return err
	}
	if err := BumpAggregate(ctx, tx, ev.AccountID, ev.Type); err != nil {
		return err
	}
	return tx.Commit()
}

// ListOptions narrows and pages an account's activity listing.
type ListOptions struct {
	Type     entity.ActivityType
	Page     int
	PageSize int
}

// List returns one page of an account's events, newest first, plus the
// unpaged total.
func (r *ActivityRepo) List(ctx context.Context, accountID int64, opts ListOptions) ([]entity.Activity, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}
	where := `WHERE account_id = $1`
	args := []any{accountID}
	if opts.Type != "" {
		where += ` AND activity_type = $2`
		args = append(args, opts.Type)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM activities `+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)
	q := fmt.Sprintf(`SELECT id, account_id, activity_type, subject_kind, subject_id, metadata, ip_address, user_agent, created_at
          FROM activities %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	var rows []entity.Activity
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetByID fetches one event scoped to its owner; other accounts' events
// behave as absent.
func (r *ActivityRepo) GetByID(ctx context.Context, accountID, id int64) (*entity.Activity, error) {
	const q = `SELECT id, account_id, activity_type, subject_kind, subject_id, metadata, ip_address, user_agent, created_at
               FROM activities WHERE id = $1 AND account_id = $2`
	var ev entity.Activity
	if err := r.db.GetContext(ctx, &ev, q, id, accountID); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Recent returns the n newest events for an account.
func (r *ActivityRepo) Recent(ctx context.Context, accountID int64, n int) ([]entity.Activity, error) {
	const q = `SELECT id, account_id, activity_type, subject_kind, subject_id, metadata, ip_address, user_agent, created_at
               FROM activities WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`
	var rows []entity.Activity
	if err := r.db.SelectContext(ctx, &rows, q, accountID, n); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountsByType returns per-type event counts for an account.
func (r *ActivityRepo) CountsByType(ctx context.Context, accountID int64) (map[string]int64, error) {
	const q = `SELECT activity_type, COUNT(*) AS n FROM activities WHERE account_id = $1 GROUP BY activity_type ORDER BY n DESC`
	rows, err := r.db.QueryxContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}

// CountSince counts an account's events created at or after since.
func (r *ActivityRepo) CountSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM activities WHERE account_id = $1 AND created_at >= $2`
	var n int64
	err := r.db.GetContext(ctx, &n, q, accountID, since)
	return n, err
}

// GetAggregate returns the account's aggregate row, creating the empty
// projection on first access.
func (r *ActivityRepo) GetAggregate(ctx context.Context, accountID int64) (*entity.Aggregate, error) {
	const q = `
INSERT INTO activity_aggregates (account_id, total_activities, current_streak, longest_streak)
VALUES ($1, 0, 0, 0)
ON CONFLICT (account_id) DO UPDATE SET account_id = EXCLUDED.account_id
RETURNING account_id, total_activities, logins, posts_created, comments_created, likes_received, followers_gained,
          current_streak, longest_streak, last_active, show_activity`
	var agg entity.Aggregate
	if err := r.db.GetContext(ctx, &agg, q, accountID); err != nil {
		return nil, err
	}
	return &agg, nil
}

// SetShowActivity flips the aggregate visibility preference, the only
// caller-writable field of the projection.
func (r *ActivityRepo) SetShowActivity(ctx context.Context, accountID int64, show bool) error {
	const q = `UPDATE activity_aggregates SET show_activity = $2 WHERE account_id = $1`
	_, err := r.db.ExecContext(ctx, q, accountID, show)
	return err
}
