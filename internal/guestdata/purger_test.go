package guestdata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPurger(t *testing.T) (*Purger, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewPurger(db, client, nil), mock, mr
}

func TestPurgeGuestsDeletesAcrossTables(t *testing.T) {
	purger, mock, mr := newMockPurger(t)
	require.NoError(t, mr.Set("session:42", "{}"))
	require.NoError(t, mr.Set("session:77", "{}"))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM reminders").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM audit_events").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM bookings").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM credits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM guests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := purger.PurgeGuests(context.Background(), []int64{42, 77})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.Deleted.Reminders)
	assert.Equal(t, int64(5), res.Deleted.AuditEvents)
	assert.Equal(t, int64(2), res.Deleted.Bookings)
	assert.Equal(t, int64(1), res.Deleted.Credits)
	assert.Equal(t, int64(1), res.Deleted.Guests)
	assert.Equal(t, int64(2), res.SessionsCleared)
	assert.False(t, mr.Exists("session:42"))
	assert.False(t, mr.Exists("session:77"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeGuestsRollsBackOnError(t *testing.T) {
	purger, mock, mr := newMockPurger(t)
	require.NoError(t, mr.Set("session:42", "{}"))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM reminders").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := purger.PurgeGuests(context.Background(), []int64{42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete reminders")
	assert.True(t, mr.Exists("session:42"), "failed purge must not touch sessions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeGuestsRequiresChatIDs(t *testing.T) {
	purger, _, _ := newMockPurger(t)

	_, err := purger.PurgeGuests(context.Background(), nil)
	require.Error(t, err)
}

func TestPurgeGuestsWithoutRedis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	purger := NewPurger(db, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM reminders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM bookings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM credits").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM guests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := purger.PurgeGuests(context.Background(), []int64{42})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.SessionsCleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeGuestsWithoutDatabase(t *testing.T) {
	purger := NewPurger(nil, nil, nil)

	_, err := purger.PurgeGuests(context.Background(), []int64{42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not configured")
}
