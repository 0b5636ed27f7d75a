package entity

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ActivityType enumerates the tracked actions.
type ActivityType string

const (
	TypeLogin          ActivityType = "login"
	TypeLogout         ActivityType = "logout"
	TypeRegister       ActivityType = "register"
	TypeProfileUpdate  ActivityType = "profile_update"
	TypePasswordChange ActivityType = "password_change"
	TypePostCreate     ActivityType = "post_create"
	TypePostLike       ActivityType = "post_like"
	TypeCommentCreate  ActivityType = "comment_create"
	TypeCommentLike    ActivityType = "comment_like"
	TypeFollow         ActivityType = "follow"
	TypeUnfollow       ActivityType = "unfollow"
	TypeBlock          ActivityType = "block"
	TypeUnblock        ActivityType = "unblock"
)

var knownTypes = map[ActivityType]bool{
	TypeLogin: true, TypeLogout: true, TypeRegister: true,
	TypeProfileUpdate: true, TypePasswordChange: true,
	TypePostCreate: true, TypePostLike: true,
	TypeCommentCreate: true, TypeCommentLike: true,
	TypeFollow: true, TypeUnfollow: true,
	TypeBlock: true, TypeUnblock: true,
}

// Known reports whether t is one of the tracked activity types.
func (t ActivityType) Known() bool { return knownTypes[t] }

// EntityKind tags the subject reference of an activity event.
type EntityKind string

const (
	KindUser    EntityKind = "user"
	KindProfile EntityKind = "profile"
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
	KindSession EntityKind = "session"
)

// SubjectRef points an event at another entity without reflection: a
// kind tag plus the referenced row id.
type SubjectRef struct {
	Kind EntityKind `json:"kind"`
	ID   int64      `json:"id"`
}

// Activity is one append-only event row. Rows are never mutated or
// deleted after creation.
type Activity struct {
	ID          int64           `db:"id" json:"id"`
	AccountID   int64           `db:"account_id" json:"account_id"`
	Type        ActivityType    `db:"activity_type" json:"activity_type"`
	SubjectKind *EntityKind     `db:"subject_kind" json:"subject_kind,omitempty"`
	SubjectID   *int64          `db:"subject_id" json:"subject_id,omitempty"`
	Metadata    types.JSONText  `db:"metadata" json:"metadata"`
	IPAddress   *string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string          `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Aggregate is the denormalized per-account projection of the event
// stream, updated in the same transaction as each event insert.
type Aggregate struct {
	AccountID       int64     `db:"account_id" json:"-"`
	TotalActivities int64     `db:"total_activities" json:"total_activities"`
	Logins          int64     `db:"logins" json:"logins"`
	PostsCreated    int64     `db:"posts_created" json:"posts_created"`
	CommentsCreated int64     `db:"comments_created" json:"comments_created"`
	LikesReceived   int64     `db:"likes_received" json:"likes_received"`
	FollowersGained int64     `db:"followers_gained" json:"followers_gained"`
	CurrentStreak   int64     `db:"current_streak" json:"current_streak"`
	LongestStreak   int64     `db:"longest_streak" json:"longest_streak"`
	LastActive      time.Time `db:"last_active" json:"last_active"`
	ShowActivity    bool      `db:"show_activity" json:"show_activity"`
}
