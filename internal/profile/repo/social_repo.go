package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/andvari/socialcore/internal/profile/entity"
)

// SocialRepo provides data access for the directed follow and block
// edge sets. The two sets are independent: blocking never implies
// unfollowing.
type SocialRepo struct {
	db *sqlx.DB
}

func NewSocialRepo(db *sqlx.DB) *SocialRepo { return &SocialRepo{db: db} }

// EnsureTables creates the edge tables if not exists (idempotent).
func (r *SocialRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS profile_follows (
  follower_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  followee_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (follower_id, followee_id)
);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON profile_follows(followee_id);
CREATE TABLE IF NOT EXISTS profile_blocks (
  blocker_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  blocked_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (blocker_id, blocked_id)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// toggleEdgeQuery deletes the edge when present, inserts it otherwise,
// in one statement keyed on the pair. Concurrent toggles of the same
// pair therefore never read-modify-write a stale edge: the delete CTE
// and the conditional insert run against one snapshot, and a racing
// insert collapses onto the conflict target instead of duplicating.
const toggleFollowQuery = `
WITH removed AS (
  DELETE FROM profile_follows WHERE follower_id = $1 AND followee_id = $2 RETURNING 1
), added AS (
  INSERT INTO profile_follows (follower_id, followee_id)
  SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM removed)
  ON CONFLICT (follower_id, followee_id) DO NOTHING
  RETURNING 1
)
SELECT EXISTS(SELECT 1 FROM added) AS added, EXISTS(SELECT 1 FROM removed) AS removed`

const toggleBlockQuery = `
WITH removed AS (
  DELETE FROM profile_blocks WHERE blocker_id = $1 AND blocked_id = $2 RETURNING 1
), added AS (
  INSERT INTO profile_blocks (blocker_id, blocked_id)
  SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM removed)
  ON CONFLICT (blocker_id, blocked_id) DO NOTHING
  RETURNING 1
)
SELECT EXISTS(SELECT 1 FROM added) AS added, EXISTS(SELECT 1 FROM removed) AS removed`

func (r *SocialRepo) toggle(ctx context.Context, q string, isQ string, from, to int64) (bool, error) {
	var added, removed bool
	row := r.db.QueryRowxContext(ctx, q, from, to)
	if err := row.Scan(&added, &removed); err != nil {
		return false, err
	}
	if added {
		return true, nil
	}
	if removed {
		return false, nil
	}
	// Neither branch fired: a concurrent toggle added the edge between
	// the delete and the insert. The edge's current state is the answer.
	var present bool
	if err := r.db.GetContext(ctx, &present, isQ, from, to); err != nil {
		return false, err
	}
	return present, nil
}

const isFollowingQuery = `SELECT EXISTS(SELECT 1 FROM profile_follows WHERE follower_id = $1 AND followee_id = $2)`
const isBlockingQuery = `SELECT EXISTS(SELECT 1 FROM profile_blocks WHERE blocker_id = $1 AND blocked_id = $2)`

// ToggleFollow flips the follower->followee edge and reports the
// resulting state: true means now following.
func (r *SocialRepo) ToggleFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return r.toggle(ctx, toggleFollowQuery, isFollowingQuery, followerID, followeeID)
}

// ToggleBlock flips the blocker->blocked edge and reports the resulting
// state: true means now blocking.
func (r *SocialRepo) ToggleBlock(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	return r.toggle(ctx, toggleBlockQuery, isBlockingQuery, blockerID, blockedID)
}

// IsFollowing reports whether a follows b.
func (r *SocialRepo) IsFollowing(ctx context.Context, a, b int64) (bool, error) {
	var v bool
	err := r.db.GetContext(ctx, &v, isFollowingQuery, a, b)
	return v, err
}

// IsBlocking reports whether a blocks b.
func (r *SocialRepo) IsBlocking(ctx context.Context, a, b int64) (bool, error) {
	var v bool
	err := r.db.GetContext(ctx, &v, isBlockingQuery, a, b)
	return v, err
}

// FollowerCount returns how many accounts follow a.
func (r *SocialRepo) FollowerCount(ctx context.Context, a int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profile_follows WHERE followee_id = $1`, a)
	return n, err
}

// FollowingCount returns how many accounts a follows.
func (r *SocialRepo) FollowingCount(ctx context.Context, a int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profile_follows WHERE follower_id = $1`, a)
	return n, err
}

// Search matches accounts by email or name fragment, excluding the
// viewer, and annotates each hit with whether the viewer follows it.
func (r *SocialRepo) Search(ctx context.Context, viewerID int64, query string, limit int) ([]entity.SearchResult, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	const q = `
SELECT a.id, a.email, a.first_name, a.last_name,
       EXISTS(SELECT 1 FROM profile_follows f WHERE f.follower_id = $1 AND f.followee_id = a.id) AS is_following
FROM accounts a
WHERE a.id <> $1 AND (a.email ILIKE $2 OR a.first_name ILIKE $2 OR a.last_name ILIKE $2)
ORDER BY a.id
LIMIT $3`
	var rows []entity.SearchResult
	if err := r.db.SelectContext(ctx, &rows, q, viewerID, "%"+query+"%", limit); err != nil {
		return nil, err
	}
	return rows, nil
}
