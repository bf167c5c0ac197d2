package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/artchaos/booking-platform/internal/bookings"
	"github.com/artchaos/booking-platform/internal/credits"
	"github.com/artchaos/booking-platform/internal/guests"
	"github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/internal/schedule"
	"github.com/artchaos/booking-platform/pkg/logging"
)

var conversationTracer = otel.Tracer("artchaos.internal.conversation")

// SessionRepository loads and saves dialogue sessions between turns.
type SessionRepository interface {
	Load(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Clear(ctx context.Context, chatID int64) error
}

var _ SessionRepository = (*SessionStore)(nil)

// GuestRegistry registers guests on first contact.
type GuestRegistry interface {
	GetOrCreate(ctx context.Context, chatID int64, firstName, username string) (*guests.Guest, error)
}

// BookingService decides booking requests and manages the timeline.
type BookingService interface {
	Book(ctx context.Context, req bookings.Request) (*bookings.Confirmation, error)
	Cancel(ctx context.Context, id uuid.UUID, requester *int64) (*bookings.Booking, error)
	ListUpcoming(ctx context.Context, chatID int64) ([]bookings.Booking, error)
	ListForDay(ctx context.Context, day time.Time) ([]bookings.Booking, error)
}

// CreditReader reads and tops up visit balances.
type CreditReader interface {
	BalanceFor(ctx context.Context, chatID int64) (*credits.Balance, error)
	Grant(ctx context.Context, chatID int64, visits int) (*credits.Balance, error)
}

// IncomingMessage is one guest message from any chat transport.
type IncomingMessage struct {
	ChatID    int64
	FirstName string
	Username  string
	Text      string
}

// Handler runs the booking dialogue. One call to HandleText is one turn.
type Handler struct {
	sessions    SessionRepository
	guests      GuestRegistry
	bookings    BookingService
	credits     CreditReader
	grid        schedule.Grid
	logger      *logging.Logger
	metrics     *metrics.ConversationMetrics
	ownerChatID int64
	studioName  string
	now         func() time.Time
}

// NewHandler constructs the dialogue handler. Owner commands stay disabled
// until WithOwner sets the owner chat.
func NewHandler(sessions SessionRepository, registry GuestRegistry, svc BookingService, ledger CreditReader, grid schedule.Grid, logger *logging.Logger) *Handler {
	if sessions == nil {
		panic("conversation: session repository required")
	}
	if svc == nil {
		panic("conversation: booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessions:   sessions,
		guests:     registry,
		bookings:   svc,
		credits:    ledger,
		grid:       grid,
		logger:     logger,
		studioName: "ArtChaos",
		now:        time.Now,
	}
}

// WithOwner enables /grant and /day for the given chat.
func (h *Handler) WithOwner(chatID int64) *Handler {
	h.ownerChatID = chatID
	return h
}

// WithStudioName sets the studio name used in copy.
func (h *Handler) WithStudioName(name string) *Handler {
	if name != "" {
		h.studioName = name
	}
	return h
}

// WithMetrics attaches conversation metrics.
func (h *Handler) WithMetrics(m *metrics.ConversationMetrics) *Handler {
	h.metrics = m
	return h
}

// WithNow overrides the clock, for tests.
func (h *Handler) WithNow(now func() time.Time) *Handler {
	if now != nil {
		h.now = now
	}
	return h
}

// HandleText applies one guest message to the dialogue and returns the
// replies to send. Internal failures degrade to an error reply, never a
// panic, so the transport can always answer something.
func (h *Handler) HandleText(ctx context.Context, msg IncomingMessage) []Reply {
	ctx, span := conversationTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(attribute.Int64("artchaos.chat_id", msg.ChatID))

	sess, err := h.sessions.Load(ctx, msg.ChatID)
	if err != nil {
		h.logger.Error("session load failed", "error", err, "chat_id", msg.ChatID)
	}
	if sess == nil {
		sess = &Session{ChatID: msg.ChatID, State: StateIdle}
	}
	span.SetAttributes(attribute.String("artchaos.turn_state", string(sess.State)))
	h.metrics.ObserveTurn(string(sess.State))

	replies := h.dispatch(ctx, sess, msg, strings.TrimSpace(msg.Text))

	// A decided dialogue is dropped rather than stored; the next message
	// starts from idle.
	if sess.State == StateConfirmed || sess.State == StateRejected {
		if err := h.sessions.Clear(ctx, msg.ChatID); err != nil {
			h.logger.Error("session clear failed", "error", err, "chat_id", msg.ChatID)
		}
		return replies
	}
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.Error("session save failed", "error", err, "chat_id", msg.ChatID)
	}
	return replies
}

func (h *Handler) dispatch(ctx context.Context, sess *Session, msg IncomingMessage, text string) []Reply {
	// Commands and menu buttons work from any dialogue state.
	switch {
	case text == "/start":
		return h.handleStart(ctx, sess, msg)
	case text == "/help":
		return []Reply{{Text: helpText()}}
	case text == "/cancel" || text == btnAbort || strings.EqualFold(text, "отмена"):
		sess.reset()
		return []Reply{{Text: abortText(), Keyboard: menuKeyboard()}}
	case text == "/book" || text == btnBook:
		return h.startBooking(sess)
	case text == "/my" || text == btnMyBookings:
		return h.listBookings(ctx, sess)
	case text == "/balance" || text == btnBalance:
		return h.showBalance(ctx, sess)
	case text == btnCancelBooking:
		return h.startCancel(ctx, sess)
	case strings.HasPrefix(text, "/grant"):
		return h.handleGrant(ctx, sess, text)
	case strings.HasPrefix(text, "/day"):
		return h.handleDay(ctx, sess, text)
	}

	switch sess.State {
	case StateCollectingDate:
		return h.collectDate(sess, text)
	case StateCollectingTime:
		return h.collectTime(sess, text)
	case StateCollectingDuration:
		return h.collectDuration(ctx, sess, text)
	case StateCancelSelect:
		return h.pickCancel(ctx, sess, text)
	default:
		return []Reply{{Text: unknownText(), Keyboard: menuKeyboard()}}
	}
}

func (h *Handler) handleStart(ctx context.Context, sess *Session, msg IncomingMessage) []Reply {
	sess.reset()
	if h.guests != nil {
		if _, err := h.guests.GetOrCreate(ctx, msg.ChatID, msg.FirstName, msg.Username); err != nil {
			h.logger.Error("guest registration failed", "error", err, "chat_id", msg.ChatID)
		}
	}
	return []Reply{{Text: welcomeText(msg.FirstName, h.studioName), Keyboard: menuKeyboard()}}
}

func (h *Handler) startBooking(sess *Session) []Reply {
	sess.reset()
	sess.State = StateCollectingDate
	return []Reply{{Text: datePromptText(), Keyboard: dateKeyboard(h.grid.Dates(h.now()))}}
}

func (h *Handler) collectDate(sess *Session, text string) []Reply {
	label := text
	if fields := strings.Fields(text); len(fields) > 0 {
		label = fields[0]
	}
	day, err := h.grid.ParseDate(label, h.now())
	if err != nil {
		return []Reply{{Text: badDateText(), Keyboard: dateKeyboard(h.grid.Dates(h.now()))}}
	}
	sess.Date = day.Format(schedule.DateLabelFormat)
	sess.State = StateCollectingTime
	return []Reply{{Text: timePromptText(day), Keyboard: timeKeyboard(h.grid.SlotLabels())}}
}

func (h *Handler) collectTime(sess *Session, text string) []Reply {
	hour, err := h.grid.ParseSlot(text)
	if err != nil {
		return []Reply{{Text: badSlotText(), Keyboard: timeKeyboard(h.grid.SlotLabels())}}
	}
	sess.SlotHour = hour
	sess.State = StateCollectingDuration
	return []Reply{{Text: durationPromptText(), Keyboard: durationKeyboard(h.grid.DurationsFor(hour))}}
}

func (h *Handler) collectDuration(ctx context.Context, sess *Session, text string) []Reply {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return []Reply{{Text: badDurationText(), Keyboard: durationKeyboard(h.grid.DurationsFor(sess.SlotHour))}}
	}
	d, err := strconv.Atoi(fields[0])
	if err != nil || !h.grid.ValidDuration(sess.SlotHour, d) {
		return []Reply{{Text: badDurationText(), Keyboard: durationKeyboard(h.grid.DurationsFor(sess.SlotHour))}}
	}
	sess.DurationHours = d
	return h.decide(ctx, sess)
}

// decide resolves the collected date, slot and duration into an interval and
// asks the booking service for a verdict.
func (h *Handler) decide(ctx context.Context, sess *Session) []Reply {
	sess.State = StateDeciding
	now := h.now()

	day, err := h.grid.ParseDate(sess.Date, now)
	if err != nil {
		sess.State = StateCollectingDate
		return []Reply{{Text: badDateText(), Keyboard: dateKeyboard(h.grid.Dates(now))}}
	}
	iv, err := h.grid.At(now, day, sess.SlotHour, sess.DurationHours)
	if err != nil {
		if errors.Is(err, schedule.ErrSlotPassed) {
			sess.State = StateCollectingTime
			return []Reply{{Text: slotPassedText(), Keyboard: timeKeyboard(h.grid.SlotLabels())}}
		}
		h.logger.Error("interval build failed", "error", err, "chat_id", sess.ChatID)
		sess.reset()
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}

	conf, err := h.bookings.Book(ctx, bookings.Request{ChatID: sess.ChatID, Interval: iv})
	if err != nil {
		sess.State = StateRejected
		if rej, ok := bookings.AsRejection(err); ok {
			return []Reply{{Text: rejectionText(rej.Reason), Keyboard: menuKeyboard()}}
		}
		h.logger.Error("booking decision failed", "error", err, "chat_id", sess.ChatID)
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}

	sess.State = StateConfirmed
	visitsLeft, haveBalance := h.balanceFor(ctx, sess.ChatID)
	text := confirmedText(iv, conf.CreditSpent, visitsLeft, haveBalance, h.grid.Location)
	return []Reply{{Text: text, Keyboard: menuKeyboard()}}
}

func (h *Handler) listBookings(ctx context.Context, sess *Session) []Reply {
	sess.reset()
	list, err := h.bookings.ListUpcoming(ctx, sess.ChatID)
	if err != nil {
		h.logger.Error("list bookings failed", "error", err, "chat_id", sess.ChatID)
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}
	return []Reply{{Text: myBookingsText(list, h.grid.Location), Keyboard: menuKeyboard()}}
}

func (h *Handler) showBalance(ctx context.Context, sess *Session) []Reply {
	sess.reset()
	if h.credits == nil {
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}
	balance, err := h.credits.BalanceFor(ctx, sess.ChatID)
	if err != nil {
		h.logger.Error("balance lookup failed", "error", err, "chat_id", sess.ChatID)
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}
	return []Reply{{Text: balanceText(balance.VisitsLeft), Keyboard: menuKeyboard()}}
}

func (h *Handler) startCancel(ctx context.Context, sess *Session) []Reply {
	sess.reset()
	list, err := h.bookings.ListUpcoming(ctx, sess.ChatID)
	if err != nil {
		h.logger.Error("list bookings failed", "error", err, "chat_id", sess.ChatID)
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}
	if len(list) == 0 {
		return []Reply{{Text: nothingToCancelText(), Keyboard: menuKeyboard()}}
	}
	sess.State = StateCancelSelect
	sess.CancelIDs = make([]string, 0, len(list))
	for _, b := range list {
		sess.CancelIDs = append(sess.CancelIDs, b.ID.String())
	}
	return []Reply{{Text: cancelPromptText(list, h.grid.Location), Keyboard: cancelKeyboard(list, h.grid.Location)}}
}

func (h *Handler) pickCancel(ctx context.Context, sess *Session, text string) []Reply {
	idx := parseOrdinal(text)
	if idx < 1 || idx > len(sess.CancelIDs) {
		return []Reply{{Text: "Пожалуйста, выберите запись кнопкой ниже."}}
	}
	id, err := uuid.Parse(sess.CancelIDs[idx-1])
	if err != nil {
		sess.reset()
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}

	requester := sess.ChatID
	_, err = h.bookings.Cancel(ctx, id, &requester)
	sess.reset()
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			return []Reply{{Text: alreadyCancelledText(), Keyboard: menuKeyboard()}}
		}
		h.logger.Error("cancel failed", "error", err, "chat_id", sess.ChatID, "booking_id", id)
		return []Reply{{Text: errorText(), Keyboard: menuKeyboard()}}
	}
	return []Reply{{Text: cancelledText(), Keyboard: menuKeyboard()}}
}

func (h *Handler) handleGrant(ctx context.Context, sess *Session, text string) []Reply {
	if !h.isOwner(sess.ChatID) {
		return []Reply{{Text: unknownText(), Keyboard: menuKeyboard()}}
	}
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return []Reply{{Text: grantUsageText()}}
	}
	chatID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return []Reply{{Text: grantUsageText()}}
	}
	visits, err := strconv.Atoi(fields[2])
	if err != nil || visits <= 0 {
		return []Reply{{Text: grantUsageText()}}
	}

	balance, err := h.credits.Grant(ctx, chatID, visits)
	if err != nil {
		h.logger.Error("grant failed", "error", err, "chat_id", chatID)
		return []Reply{{Text: errorText()}}
	}
	h.logger.Info("credits granted", "chat_id", chatID, "visits", visits, "balance", balance.VisitsLeft)
	return []Reply{{Text: grantDoneText(chatID, visits, balance.VisitsLeft)}}
}

func (h *Handler) handleDay(ctx context.Context, sess *Session, text string) []Reply {
	if !h.isOwner(sess.ChatID) {
		return []Reply{{Text: unknownText(), Keyboard: menuKeyboard()}}
	}
	now := h.now()
	day := h.grid.DayStart(now)
	if fields := strings.Fields(text); len(fields) > 1 {
		parsed, err := h.grid.ParseDate(fields[1], now)
		if err != nil {
			return []Reply{{Text: "Неизвестная дата. Формат: /day ДД.ММ (в пределах недели)."}}
		}
		day = parsed
	}

	list, err := h.bookings.ListForDay(ctx, day)
	if err != nil {
		h.logger.Error("day schedule failed", "error", err)
		return []Reply{{Text: errorText()}}
	}
	return []Reply{{Text: dayScheduleText(day, list, h.grid.Location)}}
}

func (h *Handler) isOwner(chatID int64) bool {
	return h.ownerChatID != 0 && chatID == h.ownerChatID
}

func (h *Handler) balanceFor(ctx context.Context, chatID int64) (int, bool) {
	if h.credits == nil {
		return 0, false
	}
	balance, err := h.credits.BalanceFor(ctx, chatID)
	if err != nil {
		h.logger.Error("balance lookup failed", "error", err, "chat_id", chatID)
		return 0, false
	}
	return balance.VisitsLeft, true
}

// parseOrdinal reads the leading number of a cancel button label ("2. 03.07
// 18:00 - 20:00" or a bare "2").
func parseOrdinal(text string) int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil {
		return 0
	}
	return n
}
