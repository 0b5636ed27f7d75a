package entity

import "time"

// Session is one login session row, keyed by its opaque token. The
// lifecycle is one-way: active sessions end, ended sessions stay ended.
type Session struct {
	Token        string    `db:"session_token" json:"session_token"`
	AccountID    int64     `db:"account_id" json:"account_id"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string    `db:"user_agent" json:"user_agent,omitempty"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
}
