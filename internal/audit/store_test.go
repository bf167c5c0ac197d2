package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artchaos/booking-platform/internal/bookings"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func sampleBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:      uuid.MustParse("3f1d6a88-5c2e-4b7f-9a0d-6e8c1b2a3f4d"),
		ChatID:  42,
		StartAt: time.Date(2026, 7, 3, 15, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 7, 3, 17, 0, 0, 0, time.UTC),
	}
}

func TestRecordConfirmed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordConfirmed(context.Background(), sampleBooking(), true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRejected(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordRejected(context.Background(), 42, string(bookings.ReasonSlotTaken),
		time.Date(2026, 7, 3, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 3, 17, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCancelled(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordCancelled(context.Background(), sampleBooking())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCreditsGranted(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordCreditsGranted(context.Background(), 42, 8)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogEventInsertError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnError(assert.AnError)

	err := store.LogEvent(context.Background(), Event{
		EventType: EventBookingConfirmed,
		ChatID:    42,
	})
	assert.Error(t, err)
}
