package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	actentity "github.com/andvari/socialcore/internal/activity/entity"
	actrepo "github.com/andvari/socialcore/internal/activity/repo"
	"github.com/andvari/socialcore/internal/identity/entity"
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, email, first_name, last_name, bio, date_of_birth, password_hash,
	is_active, is_staff, is_superuser, date_joined, last_login`

// EnsureTable creates the accounts table if not exists (idempotent).
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  email CITEXT UNIQUE NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  bio TEXT,
  date_of_birth DATE,
  password_hash TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT true,
  is_staff BOOLEAN NOT NULL DEFAULT false,
  is_superuser BOOLEAN NOT NULL DEFAULT false,
  date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_login TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// CreateCascade inserts the account row, its profile row, and the
// registration event plus aggregate bump in one transaction. The
// profile is never created independently of the account.
func (r *AccountRepo) CreateCascade(ctx context.Context, a *entity.Account) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insAccount = `INSERT INTO accounts (email, first_name, last_name, bio, date_of_birth, password_hash, is_active, is_staff, is_superuser)
	                    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, date_joined`
	row := tx.QueryRowxContext(ctx, insAccount,
		a.Email, a.FirstName, a.LastName, a.Bio, a.DateOfBirth, a.PasswordHash, a.IsActive, a.IsStaff, a.IsSuperuser)
	if err := row.Scan(&a.ID, &a.DateJoined); err != nil {
		return err
	}

	const insProfile = `INSERT INTO profiles (account_id) VALUES ($1)`
	if _, err := tx.ExecContext(ctx, insProfile, a.ID); err != nil {
		return err
	}

	ev := &actentity.Activity{
		AccountID: a.ID,
		Type:      actentity.TypeRegister,
		Metadata:  []byte(`{"method":"email_password"}`),
	}
	if err := actrepo.InsertEvent(ctx, tx, ev); err != nil {
		return err
	}
	if err := actrepo.BumpAggregate(ctx, tx, a.ID, actentity.TypeRegister); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByEmail returns an account matched by email (case-insensitive due
// to citext) or sql.ErrNoRows.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, email); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID fetches a full account row.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountUpdate carries the caller-writable account fields; nil means
// leave unchanged.
type AccountUpdate struct {
	FirstName   *string
	LastName    *string
	Bio         *string
	DateOfBirth *time.Time
}

// Update applies the non-nil fields of u to one account row.
func (r *AccountRepo) Update(ctx context.Context, id int64, u AccountUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Bio != nil {
		add("bio", *u.Bio)
	}
	if u.DateOfBirth != nil {
		add("date_of_birth", *u.DateOfBirth)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// SetPassword overwrites the stored password hash.
func (r *AccountRepo) SetPassword(ctx context.Context, id int64, hash string) error {
	return SetPassword(ctx, r.db, id, hash)
}

// SetPassword overwrites an account's password hash. It runs against
// ext so callers can pair it with other writes in one transaction.
func SetPassword(ctx context.Context, ext sqlx.ExtContext, id int64, hash string) error {
	const q = `UPDATE accounts SET password_hash = $2 WHERE id = $1`
	_, err := ext.ExecContext(ctx, q, id, hash)
	return err
}

// TouchLastLogin stamps last_login on successful authentication.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, id int64) error {
	const q = `UPDATE accounts SET last_login = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetActive forces the active flag to a given value and reports the
// resulting state.
func (r *AccountRepo) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	const q = `UPDATE accounts SET is_active = $2 WHERE id = $1 RETURNING is_active`
	var v bool
	if err := r.db.GetContext(ctx, &v, q, id, active); err != nil {
		return false, err
	}
	return v, nil
}

// ToggleActive negates the active flag atomically and reports the
// resulting state.
func (r *AccountRepo) ToggleActive(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE accounts SET is_active = NOT is_active WHERE id = $1 RETURNING is_active`
	var v bool
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		return false, err
	}
	return v, nil
}

// Delete removes the account row; dependent rows cascade.
func (r *AccountRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM accounts WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNoSuchAccount
	}
	return err
}

// ErrNoSuchAccount marks a delete against an absent row.
var ErrNoSuchAccount = fmt.Errorf("account does not exist")

// ListOptions narrows, orders, and pages the admin account listing.
type ListOptions struct {
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	Search      string
	OrderBy     string
	Page        int
	PageSize    int
}

// orderColumns whitelists admin ordering keys against the schema.
var orderColumns = map[string]string{
	"id":          "id",
	"email":       "email",
	"first_name":  "first_name",
	"last_name":   "last_name",
	"date_joined": "date_joined",
	"last_login":  "last_login",
}

// List returns one page of accounts plus the unpaged total.
func (r *AccountRepo) List(ctx context.Context, opts ListOptions) ([]entity.Account, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}

	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.IsActive != nil {
		add("is_active = $%d", *opts.IsActive)
	}
	if opts.IsStaff != nil {
		add("is_staff = $%d", *opts.IsStaff)
	}
	if opts.IsSuperuser != nil {
		add("is_superuser = $%d", *opts.IsSuperuser)
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM accounts WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	order := "date_joined DESC"
	if opts.OrderBy != "" {
		key := opts.OrderBy
		dir := "ASC"
		if strings.HasPrefix(key, "-") {
			key = key[1:]
			dir = "DESC"
		}
		if col, ok := orderColumns[key]; ok {
			order = col + " " + dir
		}
	}

	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)
	q := fmt.Sprintf("SELECT %s FROM accounts WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		accountColumns, cond, order, len(args)-1, len(args))

	var rows []entity.Account
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Stats summarizes the account population for the admin dashboard.
type Stats struct {
	TotalUsers    int64            `json:"total_users"`
	ActiveUsers   int64            `json:"active_users"`
	InactiveUsers int64            `json:"inactive_users"`
	StaffUsers    int64            `json:"staff_users"`
	Superusers    int64            `json:"superusers"`
	RecentUsers   []entity.Account `json:"recent_users"`
}

// GetStats counts accounts by flag and lists the five newest active ones.
func (r *AccountRepo) GetStats(ctx context.Context) (*Stats, error) {
	const q = `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE is_active) AS active,
		COUNT(*) FILTER (WHERE NOT is_active) AS inactive,
		COUNT(*) FILTER (WHERE is_staff) AS staff,
		COUNT(*) FILTER (WHERE is_superuser) AS superusers
	FROM accounts`
	var s Stats
	row := r.db.QueryRowxContext(ctx, q)
	if err := row.Scan(&s.TotalUsers, &s.ActiveUsers, &s.InactiveUsers, &s.StaffUsers, &s.Superusers); err != nil {
		return nil, err
	}
	recent := `SELECT ` + accountColumns + ` FROM accounts WHERE is_active ORDER BY date_joined DESC LIMIT 5`
	if err := r.db.SelectContext(ctx, &s.RecentUsers, recent); err != nil {
		return nil, err
	}
	return &s, nil
}

// Export returns all accounts matching the optional flag filters,
// oldest first.
func (r *AccountRepo) Export(ctx context.Context, isActive, isStaff *bool) ([]entity.Account, error) {
	where := []string{"TRUE"}
	args := []any{}
	if isActive != nil {
		args = append(args, *isActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if isStaff != nil {
		args = append(args, *isStaff)
		where = append(where, fmt.Sprintf("is_staff = $%d", len(args)))
	}
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	var rows []entity.Account
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
