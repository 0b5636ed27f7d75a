package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andvari/socialcore/internal/activity/entity"
)

func newMockRepo(t *testing.T) (*ActivityRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewActivityRepo(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRecordCommitsEventAndAggregateTogether(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO activities").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO activity_aggregates").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev := &entity.Activity{AccountID: 42, Type: entity.TypeLogin}
	require.NoError(t, r.Record(context.Background(), ev))
	assert.NotZero(t, ev.ID)
	assert.JSONEq(t, "{}", string(ev.Metadata))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRollsBackWhenAggregateBumpFails(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO activities").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO activity_aggregates").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	ev := &entity.Activity{AccountID: 42, Type: entity.TypePostCreate}
	require.Error(t, r.Record(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Each event bumps exactly the counter its type maps to; everything
// else is left alone. Summing the deltas over a stream of events must
// reproduce the per-type totals.
func TestDeltasForCountsPerType(t *testing.T) {
	events := []entity.ActivityType{
		entity.TypePostCreate, entity.TypePostCreate, entity.TypePostCreate,
		entity.TypeLogin,
	}
	var sum counterDeltas
	for _, typ := range events {
		d := deltasFor(typ)
		sum.Logins += d.Logins
		sum.PostsCreated += d.PostsCreated
		sum.CommentsCreated += d.CommentsCreated
		sum.LikesReceived += d.LikesReceived
		sum.FollowersGained += d.FollowersGained
	}
	assert.Equal(t, counterDeltas{Logins: 1, PostsCreated: 3}, sum)
}

func TestDeltasForMapping(t *testing.T) {
	cases := []struct {
		typ  entity.ActivityType
		want counterDeltas
	}{
		{entity.TypeLogin, counterDeltas{Logins: 1}},
		{entity.TypePostCreate, counterDeltas{PostsCreated: 1}},
		{entity.TypeCommentCreate, counterDeltas{CommentsCreated: 1}},
		{entity.TypePostLike, counterDeltas{LikesReceived: 1}},
		{entity.TypeCommentLike, counterDeltas{LikesReceived: 1}},
		{entity.TypeFollow, counterDeltas{FollowersGained: 1}},
		{entity.TypeLogout, counterDeltas{}},
		{entity.TypeProfileUpdate, counterDeltas{}},
		{entity.TypeUnfollow, counterDeltas{}},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, deltasFor(tc.typ), "type %s", tc.typ)
	}
}

// The upsert must hand the computed deltas to the statement in column
// order, with total_activities always advancing by one.
func TestBumpAggregatePassesDeltas(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO activity_aggregates").
		WithArgs(int64(42), int64(0), int64(1), int64(0), int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, BumpAggregate(context.Background(), r.db, 42, entity.TypePostCreate))
	assert.NoError(t, mock.ExpectationsWereMet())
}
