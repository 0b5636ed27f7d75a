package entity

import "time"

// PrivacySetting controls who can view a profile.
type PrivacySetting string

const (
	PrivacyPublic  PrivacySetting = "public"
	PrivacyFriends PrivacySetting = "friends"
	PrivacyPrivate PrivacySetting = "private"
)

// Valid reports whether p is a known privacy setting.
func (p PrivacySetting) Valid() bool {
	return p == PrivacyPublic || p == PrivacyFriends || p == PrivacyPrivate
}

// Profile extends an account with presentation and social-graph state.
// Exactly one profile exists per account, created in the same
// transaction as the account row.
type Profile struct {
	AccountID          int64          `db:"account_id" json:"account_id"`
	PrivacySetting     PrivacySetting `db:"privacy_setting" json:"privacy_setting"`
	EmailNotifications bool           `db:"email_notifications" json:"email_notifications"`
	PushNotifications  bool           `db:"push_notifications" json:"push_notifications"`
	Website            *string        `db:"website" json:"website,omitempty"`
	GithubUsername     *string        `db:"github_username" json:"github_username,omitempty"`
	TwitterUsername    *string        `db:"twitter_username" json:"twitter_username,omitempty"`
	LinkedinUsername   *string        `db:"linkedin_username" json:"linkedin_username,omitempty"`
	Location           *string        `db:"location" json:"location,omitempty"`
	Occupation         *string        `db:"occupation" json:"occupation,omitempty"`
	Company            *string        `db:"company" json:"company,omitempty"`
	ThemePreference    string         `db:"theme_preference" json:"theme_preference"`
	LanguagePreference string         `db:"language_preference" json:"language_preference"`
	LastActive         time.Time      `db:"last_active" json:"last_active"`
	DateCreated        time.Time      `db:"date_created" json:"date_created"`
}

// View is the profile response shape: profile fields joined with the
// owning account's public fields and graph cardinalities.
type View struct {
	Profile
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Bio            *string `json:"bio,omitempty"`
	FollowersCount int64   `json:"followers_count"`
	FollowingCount int64   `json:"following_count"`
}

// SearchResult is one row of the user search listing.
type SearchResult struct {
	ID          int64  `db:"id" json:"id"`
	Email       string `db:"email" json:"email"`
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	IsFollowing bool   `db:"is_following" json:"is_following"`
}
