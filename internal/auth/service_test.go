package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/andvari/socialcore/internal/activity"
	authrepo "github.com/andvari/socialcore/internal/auth/repo"
	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity"
	"github.com/andvari/socialcore/internal/session"
)

type recordingSender struct {
	sent []string
}

func (r *recordingSender) Send(to, subject, body string) error {
	r.sent = append(r.sent, to)
	return nil
}

func newMockAuth(t *testing.T) (*Service, sqlmock.Sqlmock, *recordingSender) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")

	tokens, err := NewTokenService(TokenConfig{Secret: "test-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	nop := zap.NewNop().Sugar()
	accounts := identity.NewService(sdb, nil, identity.BcryptHasher{Cost: bcrypt.MinCost})
	sessions := session.NewService(sdb, nil, nop)
	activities := activity.NewService(sdb, nil)
	mailer := &recordingSender{}
	svc := NewService(sdb, tokens, authrepo.NewTokenRepo(sdb), accounts, sessions, activities, mailer, nop)
	return svc, mock, mailer
}

func accountRows(id int64, email, passwordHash string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "first_name", "last_name", "bio", "date_of_birth",
		"password_hash", "is_active", "is_staff", "is_superuser", "date_joined", "last_login",
	}).AddRow(id, email, "Test", "User", nil, nil, passwordHash, active, false, false, now, nil)
}

func TestLoginUnknownEmailIsBadCredentials(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("ghost@example.test").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Login(context.Background(), "ghost@example.test", "pw", "", "")
	require.ErrorIs(t, err, httperr.ErrBadCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPasswordIsBadCredentials(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("user@example.test").
		WillReturnRows(accountRows(1, "user@example.test", string(hash), true))

	_, err = svc.Login(context.Background(), "user@example.test", "wrong", "", "")
	require.ErrorIs(t, err, httperr.ErrBadCredentials)
}

func TestLoginDeactivatedAccountIsBadCredentials(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("user@example.test").
		WillReturnRows(accountRows(1, "user@example.test", string(hash), false))

	_, err = svc.Login(context.Background(), "user@example.test", "pw", "", "")
	require.ErrorIs(t, err, httperr.ErrBadCredentials)
}

// The reset request must not reveal whether the email is registered:
// unknown addresses return nil without touching the token table.
func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	svc, mock, mailer := newMockAuth(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("ghost@example.test").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, svc.RequestReset(context.Background(), "ghost@example.test"))
	assert.Empty(t, mailer.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestResetKnownEmailSendsLink(t *testing.T) {
	svc, mock, mailer := newMockAuth(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("user@example.test").
		WillReturnRows(accountRows(7, "user@example.test", "hash", true))
	mock.ExpectExec("INSERT INTO password_reset_tokens").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RequestReset(context.Background(), "user@example.test"))
	assert.Equal(t, []string{"user@example.test"}, mailer.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Deactivated accounts can still reset their password; only login is
// gated on is_active.
func TestRequestResetDeactivatedAccountStillGetsLink(t *testing.T) {
	svc, mock, mailer := newMockAuth(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("dormant@example.test").
		WillReturnRows(accountRows(8, "dormant@example.test", "hash", false))
	mock.ExpectExec("INSERT INTO password_reset_tokens").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RequestReset(context.Background(), "dormant@example.test"))
	assert.Equal(t, []string{"dormant@example.test"}, mailer.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmResetRejectsBadUID(t *testing.T) {
	svc, _, _ := newMockAuth(t)

	err := svc.ConfirmReset(context.Background(), "!!!not-base64!!!", "id.secret", "pw", "pw")
	assert.ErrorIs(t, err, httperr.ErrInvalidLink)

	err = svc.ConfirmReset(context.Background(), "bm90LWEtbnVtYmVy", "id.secret", "pw", "pw")
	assert.ErrorIs(t, err, httperr.ErrInvalidLink)
}

func TestConfirmResetRejectsMalformedToken(t *testing.T) {
	svc, _, _ := newMockAuth(t)

	err := svc.ConfirmReset(context.Background(), "NDI", "no-separator", "pw", "pw")
	assert.ErrorIs(t, err, httperr.ErrInvalidLink)
}

func TestConfirmResetConsumedTokenIsInvalidLink(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_reset_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))
	mock.ExpectRollback()

	err := svc.ConfirmReset(context.Background(), "NDI", "id.secret", "pw", "pw")
	assert.ErrorIs(t, err, httperr.ErrInvalidLink)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A rejected password pair must not redeem the link: the token table
// is never touched, so the same link still works on the retry.
func TestConfirmResetMismatchedPasswordsLeaveTokenUnused(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	err := svc.ConfirmReset(context.Background(), "NDI", "id.secret", "new-pw", "typo-pw")
	require.ErrorIs(t, err, httperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A token bound to a different account rolls the consume back, so the
// rightful owner can still redeem it.
func TestConfirmResetForeignTokenRollsBack(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_reset_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(99))
	mock.ExpectRollback()

	err := svc.ConfirmReset(context.Background(), "NDI", "id.secret", "pw", "pw")
	assert.ErrorIs(t, err, httperr.ErrInvalidLink)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmResetCommitsConsumeAndPasswordTogether(t *testing.T) {
	svc, mock, _ := newMockAuth(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_reset_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(42))
	mock.ExpectExec("UPDATE accounts SET password_hash").
		WithArgs(int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO activities").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO activity_aggregates").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.ConfirmReset(context.Background(), "NDI", "id.secret", "pw", "pw"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
