package activity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(sqlx.NewDb(db, "sqlmock"), nil), mock
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestAnalyticsPeriodsAndEngagementCap(t *testing.T) {
	svc, mock := newMockService(t)

	// Wednesday 2025-06-18.
	now := time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC)
	today := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	thisWeek := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	thisMonth := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	last30 := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)

	// Period queries run in map order, so match on args instead.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(42), today).WillReturnRows(countRows(2))
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(42), thisWeek).WillReturnRows(countRows(9))
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(42), thisMonth).WillReturnRows(countRows(25))
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(42), last30).WillReturnRows(countRows(60))

	a, err := svc.Analytics(context.Background(), 42, now)
	require.NoError(t, err)

	assert.Equal(t, int64(2), a.Metrics["today"].Count)
	assert.Equal(t, int64(9), a.Metrics["this_week"].Count)
	assert.Equal(t, int64(25), a.Metrics["this_month"].Count)
	assert.Equal(t, int64(60), a.Metrics["last_30_days"].Count)
	assert.Equal(t, thisWeek, a.Metrics["this_week"].Start, "weeks start on Monday")

	// 60 events doubled would be 120; the score is capped at 100.
	assert.Equal(t, int64(100), a.EngagementScore)
	assert.Equal(t, "stable", a.ActivityTrend)
	assert.NoError(t, mock.ExpectationsWereMet())
}
