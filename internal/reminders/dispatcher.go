package reminders

import (
	"context"
	"time"

	"github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// MessageSender delivers reminder texts to a chat.
type MessageSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Dispatcher polls the reminders outbox and delivers due rows. A failed send
// leaves the row unsent, so the next pass retries it.
type Dispatcher struct {
	store      *Store
	sender     MessageSender
	logger     *logging.Logger
	metrics    *metrics.ReminderMetrics
	loc        *time.Location
	studioName string
	interval   time.Duration
	batchSize  int32
	now        func() time.Time
}

// NewDispatcher creates a reminder dispatcher.
func NewDispatcher(store *Store, sender MessageSender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:      store,
		sender:     sender,
		logger:     logger,
		loc:        time.UTC,
		studioName: "ArtChaos",
		interval:   30 * time.Second,
		batchSize:  20,
		now:        time.Now,
	}
}

// WithInterval overrides the polling interval.
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithBatchSize overrides how many due reminders one pass picks up.
func (d *Dispatcher) WithBatchSize(size int32) *Dispatcher {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

// WithLocation sets the studio timezone used to word the reminder text.
func (d *Dispatcher) WithLocation(loc *time.Location) *Dispatcher {
	if loc != nil {
		d.loc = loc
	}
	return d
}

// WithStudioName sets the studio name used in the reminder text.
func (d *Dispatcher) WithStudioName(name string) *Dispatcher {
	if name != "" {
		d.studioName = name
	}
	return d
}

// WithMetrics attaches reminder metrics.
func (d *Dispatcher) WithMetrics(m *metrics.ReminderMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// WithNow overrides the clock, for tests.
func (d *Dispatcher) WithNow(now func() time.Time) *Dispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

// Start polls until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.store == nil || d.sender == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain delivers one batch of due reminders. Returns the number sent.
func (d *Dispatcher) drain(ctx context.Context) int {
	started := d.now()
	due, err := d.store.FetchDue(ctx, started, d.batchSize)
	if err != nil {
		d.logger.Error("reminders: fetch due failed", "error", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	sent := 0
	for i := range due {
		r := &due[i]
		text := MessageText(started, r.StartAt, d.loc, d.studioName)
		if err := d.sender.SendText(ctx, r.ChatID, text); err != nil {
			d.metrics.ObserveSendFailure()
			d.logger.Error("reminders: send failed",
				"id", r.ID, "chat_id", r.ChatID, "error", err)
			continue
		}
		ok, err := d.store.MarkSent(ctx, r.ID)
		if err != nil {
			d.logger.Error("reminders: mark sent failed", "id", r.ID, "error", err)
			continue
		}
		if ok {
			d.metrics.ObserveSent()
			sent++
			d.logger.Info("reminders: reminder sent",
				"id", r.ID, "chat_id", r.ChatID, "fire_at", r.FireAt)
		}
	}
	d.metrics.ObserveDispatchSeconds(time.Since(started).Seconds())
	return sent
}
