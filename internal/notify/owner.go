package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/artchaos/booking-platform/internal/bookings"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// OwnerConfig says where owner notifications go.
type OwnerConfig struct {
	To         string // owner email, empty disables notifications
	StudioName string
	Location   *time.Location // studio timezone for formatting
}

// OwnerNotifier emails the studio owner when the timeline changes.
type OwnerNotifier struct {
	email      EmailSender
	to         string
	studioName string
	loc        *time.Location
	logger     *logging.Logger
}

var _ bookings.Notifier = (*OwnerNotifier)(nil)

// NewOwnerNotifier creates the owner notifier. With a nil sender or empty
// recipient it constructs fine and does nothing.
func NewOwnerNotifier(email EmailSender, cfg OwnerConfig, logger *logging.Logger) *OwnerNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.StudioName == "" {
		cfg.StudioName = "ArtChaos"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &OwnerNotifier{
		email:      email,
		to:         cfg.To,
		studioName: cfg.StudioName,
		loc:        cfg.Location,
		logger:     logger,
	}
}

// BookingConfirmed tells the owner a guest booked a session.
func (n *OwnerNotifier) BookingConfirmed(ctx context.Context, b *bookings.Booking) {
	start := b.StartAt.In(n.loc)
	end := b.EndAt.In(n.loc)
	subject := fmt.Sprintf("🎨 Новая запись: %s %s - %s",
		start.Format("02.01"), start.Format("15:04"), end.Format("15:04"))
	body := fmt.Sprintf(`Гость %d записался в мастерскую %s.

Дата: %s
Время: %s - %s
Номер записи: %s`,
		b.ChatID, n.studioName,
		start.Format("02.01.2006"), start.Format("15:04"), end.Format("15:04"), b.ID)
	n.send(ctx, subject, body)
}

// BookingCancelled tells the owner a session was cancelled.
func (n *OwnerNotifier) BookingCancelled(ctx context.Context, b *bookings.Booking) {
	start := b.StartAt.In(n.loc)
	end := b.EndAt.In(n.loc)
	subject := fmt.Sprintf("❌ Отмена записи: %s %s - %s",
		start.Format("02.01"), start.Format("15:04"), end.Format("15:04"))
	body := fmt.Sprintf(`Запись гостя %d отменена.

Дата: %s
Время: %s - %s
Номер записи: %s

Слот снова свободен.`,
		b.ChatID,
		start.Format("02.01.2006"), start.Format("15:04"), end.Format("15:04"), b.ID)
	n.send(ctx, subject, body)
}

func (n *OwnerNotifier) send(ctx context.Context, subject, body string) {
	if n.email == nil || n.to == "" {
		return
	}
	if err := n.email.Send(ctx, EmailMessage{To: n.to, Subject: subject, Body: body}); err != nil {
		n.logger.Error("owner notification failed", "error", err, "subject", subject)
	}
}
