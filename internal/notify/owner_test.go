package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artchaos/booking-platform/internal/bookings"
)

type fakeEmailSender struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmailSender) Send(_ context.Context, msg EmailMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

var notifyMSK = time.FixedZone("MSK", 3*3600)

func eveningBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:      uuid.MustParse("7a9d3c0e-1b2f-4d5a-8e6c-9f0a1b2c3d4e"),
		ChatID:  42,
		StartAt: time.Date(2026, 7, 3, 15, 0, 0, 0, time.UTC), // 18:00 MSK
		EndAt:   time.Date(2026, 7, 3, 17, 0, 0, 0, time.UTC),
	}
}

func TestBookingConfirmedEmailsOwner(t *testing.T) {
	sender := &fakeEmailSender{}
	n := NewOwnerNotifier(sender, OwnerConfig{
		To:       "owner@example.com",
		Location: notifyMSK,
	}, nil)

	n.BookingConfirmed(context.Background(), eveningBooking())

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "🎨 Новая запись: 03.07 18:00 - 20:00", msg.Subject)
	assert.Contains(t, msg.Body, "Гость 42")
	assert.Contains(t, msg.Body, "03.07.2026")
	assert.Contains(t, msg.Body, "18:00 - 20:00")
	assert.Contains(t, msg.Body, "7a9d3c0e-1b2f-4d5a-8e6c-9f0a1b2c3d4e")
}

func TestBookingCancelledEmailsOwner(t *testing.T) {
	sender := &fakeEmailSender{}
	n := NewOwnerNotifier(sender, OwnerConfig{
		To:       "owner@example.com",
		Location: notifyMSK,
	}, nil)

	n.BookingCancelled(context.Background(), eveningBooking())

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "❌ Отмена записи: 03.07 18:00 - 20:00", msg.Subject)
	assert.Contains(t, msg.Body, "Слот снова свободен")
}

func TestNoRecipientSendsNothing(t *testing.T) {
	sender := &fakeEmailSender{}
	n := NewOwnerNotifier(sender, OwnerConfig{}, nil)

	n.BookingConfirmed(context.Background(), eveningBooking())
	n.BookingCancelled(context.Background(), eveningBooking())

	assert.Empty(t, sender.sent)
}

func TestNilSenderDoesNotPanic(t *testing.T) {
	n := NewOwnerNotifier(nil, OwnerConfig{To: "owner@example.com"}, nil)

	n.BookingConfirmed(context.Background(), eveningBooking())
}

func TestSendFailureIsSwallowed(t *testing.T) {
	sender := &fakeEmailSender{err: assert.AnError}
	n := NewOwnerNotifier(sender, OwnerConfig{To: "owner@example.com"}, nil)

	n.BookingConfirmed(context.Background(), eveningBooking())

	require.Len(t, sender.sent, 1)
}
