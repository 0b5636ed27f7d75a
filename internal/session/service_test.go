package session

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	sessionrepo "github.com/andvari/socialcore/internal/session/repo"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")
	return NewService(sdb, sessionrepo.NewSessionRepo(sdb), zap.NewNop().Sugar()), mock
}

func sessionRow(token string, accountID int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"session_token", "account_id", "ip_address", "user_agent", "is_active", "created_at", "last_activity",
	}).AddRow(token, accountID, nil, "test-agent", true, now, now)
}

func TestGuardTouchesOwnSession(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE session_token").
		WithArgs("tok").
		WillReturnRows(sessionRow("tok", 42))
	mock.ExpectExec("UPDATE sessions SET last_activity").
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Guard(context.Background(), "tok", 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardUnknownTokenIsIgnored(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE session_token").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"session_token"}))

	err := svc.Guard(context.Background(), "gone", 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A token bound to another account is force-ended and rejected.
func TestGuardHijackedTokenForceEnds(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE session_token").
		WithArgs("stolen").
		WillReturnRows(sessionRow("stolen", 7))
	mock.ExpectExec("UPDATE sessions SET is_active = false").
		WithArgs("stolen").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Guard(context.Background(), "stolen", 42)
	require.ErrorIs(t, err, ErrHijacked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScopesToOwnAccount(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE session_token").
		WithArgs("other").
		WillReturnRows(sessionRow("other", 7))

	_, err := svc.Get(context.Background(), 42, "other")
	require.ErrorIs(t, err, httperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownTokenIsNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE session_token").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"session_token"}))

	_, err := svc.Get(context.Background(), 42, "gone")
	require.ErrorIs(t, err, httperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndSomeoneElsesSessionIsNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE session_token").
		WithArgs("other").
		WillReturnRows(sessionRow("other", 7))

	err := svc.End(context.Background(), 42, "other")
	require.ErrorIs(t, err, httperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndAllExceptReportsCount(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("UPDATE sessions SET is_active = false").
		WithArgs(int64(42), "current").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.EndAllExcept(context.Background(), 42, "current")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
