package telegram

import (
	"context"
	"time"

	"github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/pkg/logging"
)

type botAPI interface {
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error
}

// Poller drives the dialogue off getUpdates long polls when no public HTTPS
// endpoint is available. Offsets acknowledge on the next request, so an
// update that crashed mid-turn is redelivered after a restart; the update
// log keeps the redelivery from running twice.
type Poller struct {
	client     botAPI
	dialogue   Dialogue
	updates    UpdateLog
	logger     *logging.Logger
	metrics    *metrics.ConversationMetrics
	retryDelay time.Duration
	offset     int64
}

func NewPoller(client botAPI, dialogue Dialogue, logger *logging.Logger) *Poller {
	if client == nil {
		panic("telegram: client required")
	}
	if dialogue == nil {
		panic("telegram: dialogue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Poller{
		client:     client,
		dialogue:   dialogue,
		logger:     logger,
		retryDelay: 3 * time.Second,
	}
}

// WithUpdateLog attaches the shared update dedupe log.
func (p *Poller) WithUpdateLog(log UpdateLog) *Poller {
	p.updates = log
	return p
}

// WithMetrics attaches conversation metrics.
func (p *Poller) WithMetrics(m *metrics.ConversationMetrics) *Poller {
	p.metrics = m
	return p
}

// WithRetryDelay sets the pause after a failed poll.
func (p *Poller) WithRetryDelay(d time.Duration) *Poller {
	if d > 0 {
		p.retryDelay = d
	}
	return p
}

// Run polls until the context is cancelled. The long poll itself provides
// the pacing; a pause is only inserted after errors.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	updates, err := p.client.GetUpdates(ctx, p.offset)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
		p.handle(ctx, u)
	}
	return nil
}

func (p *Poller) handle(ctx context.Context, u Update) {
	msg, ok := incomingFromUpdate(u)
	if !ok {
		return
	}
	if p.updates != nil {
		fresh, err := p.updates.MarkProcessed(ctx, u.UpdateID)
		if err != nil {
			p.logger.Error("update dedupe failed", "error", err, "update_id", u.UpdateID)
		} else if !fresh {
			return
		}
	}
	replies := p.dialogue.HandleText(ctx, msg)
	deliverReplies(ctx, p.client, p.logger, p.metrics, msg.ChatID, replies)
}
