package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestScheduleForBookingWritesTriggers(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
	store := NewStore(mock).WithNow(func() time.Time { return now })

	bookingID := uuid.New()
	startAt := now.Add(48 * time.Hour)

	mock.ExpectExec("INSERT INTO reminders").
		WithArgs(pgxmock.AnyArg(), bookingID, int64(7), startAt, startAt.Add(-24*time.Hour), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO reminders").
		WithArgs(pgxmock.AnyArg(), bookingID, int64(7), startAt, startAt.Add(-time.Hour), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.ScheduleForBooking(context.Background(), bookingID, 7, startAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleForBookingTooCloseWritesNothing(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
	store := NewStore(mock).WithNow(func() time.Time { return now })

	err := store.ScheduleForBooking(context.Background(), uuid.New(), 7, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDue(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)

	asOf := time.Date(2026, 7, 2, 17, 0, 0, 0, time.UTC)
	id := uuid.New()
	bookingID := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "booking_id", "chat_id", "start_at", "fire_at", "sent_at", "created_at"}).
		AddRow(id, bookingID, int64(7), asOf.Add(time.Hour), asOf.Add(-time.Minute), nil, asOf.Add(-24*time.Hour))
	mock.ExpectQuery("SELECT id, booking_id, chat_id").
		WithArgs(asOf, int32(20)).
		WillReturnRows(rows)

	due, err := store.FetchDue(context.Background(), asOf, 20)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
	assert.Equal(t, int64(7), due[0].ChatID)
	assert.Nil(t, due[0].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSent(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 7, 2, 17, 0, 0, 0, time.UTC)
	store := NewStore(mock).WithNow(func() time.Time { return now })

	id := uuid.New()
	mock.ExpectExec("UPDATE reminders SET sent_at").
		WithArgs(now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.MarkSent(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSentAlreadySent(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 7, 2, 17, 0, 0, 0, time.UTC)
	store := NewStore(mock).WithNow(func() time.Time { return now })

	id := uuid.New()
	mock.ExpectExec("UPDATE reminders SET sent_at").
		WithArgs(now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.MarkSent(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancelForBooking(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)

	bookingID := uuid.New()
	mock.ExpectExec("DELETE FROM reminders").
		WithArgs(bookingID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	dropped, err := store.CancelForBooking(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dropped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
