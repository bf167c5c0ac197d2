package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/artchaos/booking-platform/internal/credits"
	observemetrics "github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/internal/schedule"
	"github.com/artchaos/booking-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("artchaos.internal.bookings")

// BookingStore is the persistence surface the orchestrator needs.
type BookingStore interface {
	CountOverlapping(ctx context.Context, start, end time.Time) (int, error)
	HasBookingBetween(ctx context.Context, chatID int64, dayStart, dayEnd time.Time) (bool, error)
	CreateConfirmed(ctx context.Context, b *Booking) error
	Cancel(ctx context.Context, id uuid.UUID, chatID *int64) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListUpcomingByChat(ctx context.Context, chatID int64, from time.Time) ([]Booking, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Booking, error)
}

var _ BookingStore = (*Store)(nil)

// CreditLedger spends and restores visit credits.
type CreditLedger interface {
	ConsumeOne(ctx context.Context, chatID int64) error
	Refund(ctx context.Context, chatID int64) error
}

// ReminderScheduler plans durable reminders for a confirmed booking and
// withdraws them on cancellation.
type ReminderScheduler interface {
	ScheduleForBooking(ctx context.Context, bookingID uuid.UUID, chatID int64, startAt time.Time) error
	CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
}

// DecisionRecorder keeps the append-only audit trail of booking decisions.
type DecisionRecorder interface {
	RecordConfirmed(ctx context.Context, b *Booking, creditSpent bool) error
	RecordRejected(ctx context.Context, chatID int64, reason string, start, end time.Time) error
	RecordCancelled(ctx context.Context, b *Booking) error
}

// Notifier tells the studio owner about timeline changes. Best-effort.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking)
	BookingCancelled(ctx context.Context, b *Booking)
}

// Request asks for one session on the studio timeline.
type Request struct {
	ChatID   int64
	Interval schedule.Interval
}

// Confirmation reports a successful booking.
type Confirmation struct {
	Booking     *Booking
	CreditSpent bool
}

// Service is the booking orchestrator. Book runs a strict pipeline: conflict
// check, first-booking-of-day check, credit consumption, persist, and a
// compensating refund when the persist fails. A declined request leaves all
// guest state as it was.
type Service struct {
	store     BookingStore
	ledger    CreditLedger
	grid      schedule.Grid
	reminders ReminderScheduler
	recorder  DecisionRecorder
	notifier  Notifier
	metrics   *observemetrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService constructs the orchestrator. Reminders, audit, notifier and
// metrics are attached with the With* builders.
func NewService(store BookingStore, ledger CreditLedger, grid schedule.Grid, logger *logging.Logger) *Service {
	if store == nil {
		panic("bookings: store required")
	}
	if ledger == nil {
		panic("bookings: ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:  store,
		ledger: ledger,
		grid:   grid,
		logger: logger,
		now:    time.Now,
	}
}

// WithReminders attaches the reminder scheduler.
func (s *Service) WithReminders(r ReminderScheduler) *Service {
	s.reminders = r
	return s
}

// WithRecorder attaches the audit recorder.
func (s *Service) WithRecorder(r DecisionRecorder) *Service {
	s.recorder = r
	return s
}

// WithNotifier attaches the owner notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithMetrics attaches booking metrics.
func (s *Service) WithMetrics(m *observemetrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Book decides the request. On refusal the returned error is a *Rejection
// carrying the reason.
func (s *Service) Book(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.book")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("artchaos.chat_id", req.ChatID),
		attribute.String("artchaos.slot_start", req.Interval.Start.Format(time.RFC3339)),
	)

	started := s.now()
	conf, err := s.book(ctx, req)
	s.metrics.ObserveDecisionSeconds(time.Since(started).Seconds())

	if err != nil {
		if rej, ok := AsRejection(err); ok {
			span.SetAttributes(attribute.String("artchaos.reject_reason", string(rej.Reason)))
			s.metrics.ObserveRejected(string(rej.Reason))
			if recErr := s.record(func(r DecisionRecorder) error {
				return r.RecordRejected(ctx, req.ChatID, string(rej.Reason), req.Interval.Start, req.Interval.End)
			}); recErr != nil {
				s.logger.Error("audit record failed", "error", recErr, "chat_id", req.ChatID)
			}
		} else {
			span.RecordError(err)
		}
		return nil, err
	}

	s.metrics.ObserveCreated()
	s.logger.Info("booking confirmed",
		"booking_id", conf.Booking.ID,
		"chat_id", req.ChatID,
		"start_at", conf.Booking.StartAt,
		"credit_spent", conf.CreditSpent,
	)
	if recErr := s.record(func(r DecisionRecorder) error {
		return r.RecordConfirmed(ctx, conf.Booking, conf.CreditSpent)
	}); recErr != nil {
		s.logger.Error("audit record failed", "error", recErr, "booking_id", conf.Booking.ID)
	}
	if s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, conf.Booking)
	}
	return conf, nil
}

func (s *Service) book(ctx context.Context, req Request) (*Confirmation, error) {
	iv := req.Interval

	// Step 1: conflict check. A failed read means the slot cannot be proven
	// free, so it is treated as unavailable.
	overlapping, err := s.store.CountOverlapping(ctx, iv.Start, iv.End)
	if err != nil {
		s.logger.Error("conflict check failed", "error", err, "chat_id", req.ChatID)
		return nil, reject(ReasonStorageUnavailable, err)
	}
	if overlapping > 0 {
		return nil, reject(ReasonSlotTaken, nil)
	}

	// Step 2: first-booking-of-day check on the studio clock.
	dayStart := s.grid.DayStart(iv.Start)
	dayEnd := dayStart.AddDate(0, 0, 1)
	hasToday, err := s.store.HasBookingBetween(ctx, req.ChatID, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("day check failed", "error", err, "chat_id", req.ChatID)
		return nil, reject(ReasonStorageUnavailable, err)
	}

	// Step 3: the first booking of the day spends a credit.
	creditSpent := false
	if !hasToday {
		if err := s.ledger.ConsumeOne(ctx, req.ChatID); err != nil {
			if errors.Is(err, credits.ErrNoCredits) {
				return nil, reject(ReasonNoCreditsLeft, err)
			}
			s.logger.Error("credit consume failed", "error", err, "chat_id", req.ChatID)
			return nil, reject(ReasonStorageUnavailable, err)
		}
		creditSpent = true
	}

	// Step 4: persist. A spent credit is returned before the rejection
	// surfaces, so refusal leaves the pass untouched.
	b := &Booking{ChatID: req.ChatID, StartAt: iv.Start, EndAt: iv.End}
	if err := s.store.CreateConfirmed(ctx, b); err != nil {
		if creditSpent {
			if refundErr := s.ledger.Refund(ctx, req.ChatID); refundErr != nil {
				s.logger.Error("compensating refund did not apply",
					"error", refundErr, "chat_id", req.ChatID)
			}
		}
		if errors.Is(err, ErrSlotTaken) {
			return nil, reject(ReasonSlotTaken, err)
		}
		s.logger.Error("booking persist failed", "error", err, "chat_id", req.ChatID)
		return nil, reject(ReasonPersistFailed, err)
	}

	// Step 5: reminders. The booking stands even if scheduling fails.
	if s.reminders != nil {
		if err := s.reminders.ScheduleForBooking(ctx, b.ID, b.ChatID, b.StartAt); err != nil {
			s.logger.Error("reminder scheduling failed", "error", err, "booking_id", b.ID)
			s.metrics.ObserveReminderScheduleFailure()
		}
	}

	return &Confirmation{Booking: b, CreditSpent: creditSpent}, nil
}

// Cancel withdraws a confirmed booking. When requester is non-nil the booking
// must belong to that guest. Unsent reminders are deleted; the visit credit is
// not returned automatically.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, requester *int64) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("artchaos.booking_id", id.String()))

	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bookings: cancel lookup: %w", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}

	if err := s.store.Cancel(ctx, id, requester); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	b.Status = StatusCancelled
	b.CancelledAt = &now

	if s.reminders != nil {
		if _, err := s.reminders.CancelForBooking(ctx, id); err != nil {
			s.logger.Error("reminder withdrawal failed", "error", err, "booking_id", id)
		}
	}
	if recErr := s.record(func(r DecisionRecorder) error {
		return r.RecordCancelled(ctx, b)
	}); recErr != nil {
		s.logger.Error("audit record failed", "error", recErr, "booking_id", id)
	}
	if s.notifier != nil {
		s.notifier.BookingCancelled(ctx, b)
	}
	s.metrics.ObserveCancelled()
	s.logger.Info("booking cancelled", "booking_id", id, "chat_id", b.ChatID)
	return b, nil
}

// ListUpcoming returns the guest's confirmed future bookings.
func (s *Service) ListUpcoming(ctx context.Context, chatID int64) ([]Booking, error) {
	return s.store.ListUpcomingByChat(ctx, chatID, s.now())
}

// ListForDay returns confirmed bookings for one studio-local day.
func (s *Service) ListForDay(ctx context.Context, day time.Time) ([]Booking, error) {
	dayStart := s.grid.DayStart(day)
	return s.store.ListBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

func (s *Service) record(fn func(DecisionRecorder) error) error {
	if s.recorder == nil {
		return nil
	}
	return fn(s.recorder)
}
