package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/andvari/socialcore/internal/profile/entity"
)

// ProfileRepo provides data access for the profiles table.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = `account_id, privacy_setting, email_notifications, push_notifications,
	website, github_username, twitter_username, linkedin_username, location, occupation, company,
	theme_preference, language_preference, last_active, date_created`

// EnsureTable creates the profiles table if not exists (idempotent).
// The account insert cascade owns row creation; nothing here inserts.
func (r *ProfileRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS profiles (
  account_id BIGINT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
  privacy_setting TEXT NOT NULL DEFAULT 'public' CHECK (privacy_setting IN ('public','friends','private')),
  email_notifications BOOLEAN NOT NULL DEFAULT true,
  push_notifications BOOLEAN NOT NULL DEFAULT true,
  website TEXT,
  github_username TEXT,
  twitter_username TEXT,
  linkedin_username TEXT,
  location TEXT,
  occupation TEXT,
  company TEXT,
  theme_preference TEXT NOT NULL DEFAULT 'system',
  language_preference TEXT NOT NULL DEFAULT 'en',
  last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  date_created TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Get fetches one profile row or sql.ErrNoRows.
func (r *ProfileRepo) Get(ctx context.Context, accountID int64) (*entity.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE account_id = $1`
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, q, accountID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileUpdate carries caller-writable profile fields; nil means leave
// unchanged.
type ProfileUpdate struct {
	PrivacySetting     *entity.PrivacySetting
	EmailNotifications *bool
	PushNotifications  *bool
	Website            *string
	GithubUsername     *string
	TwitterUsername    *string
	LinkedinUsername   *string
	Location           *string
	Occupation         *string
	Company            *string
	ThemePreference    *string
	LanguagePreference *string
}

// Update applies the non-nil fields of u and stamps last_active.
func (r *ProfileRepo) Update(ctx context.Context, accountID int64, u ProfileUpdate) error {
	sets := []string{"last_active = NOW()"}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.PrivacySetting != nil {
		add("privacy_setting", *u.PrivacySetting)
	}
	if u.EmailNotifications != nil {
		add("email_notifications", *u.EmailNotifications)
	}
	if u.PushNotifications != nil {
		add("push_notifications", *u.PushNotifications)
	}
	if u.Website != nil {
		add("website", *u.Website)
	}
	if u.GithubUsername != nil {
		add("github_username", *u.GithubUsername)
	}
	if u.TwitterUsername != nil {
		add("twitter_username", *u.TwitterUsername)
	}
	if u.LinkedinUsername != nil {
		add("linkedin_username", *u.LinkedinUsername)
	}
	if u.Location != nil {
		add("location", *u.Location)
	}
	if u.Occupation != nil {
		add("occupation", *u.Occupation)
	}
	if u.Company != nil {
		add("company", *u.Company)
	}
	if u.ThemePreference != nil {
		add("theme_preference", *u.ThemePreference)
	}
	if u.LanguagePreference != nil {
		add("language_preference", *u.LanguagePreference)
	}
	args = append(args, accountID)
	q := fmt.Sprintf("UPDATE profiles SET %s WHERE account_id = $%d", strings.Join(sets, ", "), len(args))
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// TouchLastActive refreshes the profile's last_active timestamp.
func (r *ProfileRepo) TouchLastActive(ctx context.Context, accountID int64) error {
	const q = `UPDATE profiles SET last_active = NOW() WHERE account_id = $1`
	_, err := r.db.ExecContext(ctx, q, accountID)
	return err
}
