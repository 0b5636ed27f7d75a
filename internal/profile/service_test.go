package profile

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andvari/socialcore/internal/httperr"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
)

func TestSelfFollowAndSelfBlockAreRejected(t *testing.T) {
	svc := NewService(nil, nil, nil)

	_, err := svc.ToggleFollow(context.Background(), 7, 7, "", "")
	assert.ErrorIs(t, err, httperr.ErrValidation)

	_, err = svc.ToggleBlock(context.Background(), 7, 7, "", "")
	assert.ErrorIs(t, err, httperr.ErrValidation)
}

// An account that vanishes before the response is assembled is a not
// found, never an internal error.
func TestTargetEmailMissingAccountIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")
	svc := NewService(sdb, identityrepo.NewAccountRepo(sdb), nil)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.TargetEmail(context.Background(), 99)
	require.ErrorIs(t, err, httperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEmptyQueryReturnsNoResults(t *testing.T) {
	svc := NewService(nil, nil, nil)

	results, err := svc.Search(context.Background(), 1, "", 20)
	require.NoError(t, err)
	assert.Empty(t, results)
}
