package repo

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestToggleFollowAdds(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSocialRepo(db)

	mock.ExpectQuery("WITH removed AS").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"added", "removed"}).AddRow(true, false))

	following, err := r.ToggleFollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, following)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleFollowRemoves(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSocialRepo(db)

	mock.ExpectQuery("WITH removed AS").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"added", "removed"}).AddRow(false, true))

	following, err := r.ToggleFollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, following)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A concurrent toggle can land between the delete and the insert; the
// repo then reads the edge's current state instead of guessing.
func TestToggleFollowRaceFallsBackToMembership(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSocialRepo(db)

	mock.ExpectQuery("WITH removed AS").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"added", "removed"}).AddRow(false, false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	following, err := r.ToggleFollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, following)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleBlockAdds(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSocialRepo(db)

	mock.ExpectQuery("WITH removed AS").
		WithArgs(int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"added", "removed"}).AddRow(true, false))

	blocking, err := r.ToggleBlock(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.True(t, blocking)
	assert.NoError(t, mock.ExpectationsWereMet())
}
