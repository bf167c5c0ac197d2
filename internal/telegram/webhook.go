package telegram

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/pkg/logging"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dialogue is the chat brain the transport feeds.
type Dialogue interface {
	HandleText(ctx context.Context, msg conversation.IncomingMessage) []conversation.Reply
}

var _ Dialogue = (*conversation.Handler)(nil)

// UpdateLog deduplicates Bot API updates across webhook re-deliveries and
// poller restarts.
type UpdateLog interface {
	MarkProcessed(ctx context.Context, updateID int64) (bool, error)
}

var _ UpdateLog = (*UpdateStore)(nil)

// ReplySender delivers dialogue replies back to the chat.
type ReplySender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error
}

var _ ReplySender = (*Client)(nil)

// WebhookHandler receives Bot API updates pushed over HTTPS.
type WebhookHandler struct {
	secret   string
	dialogue Dialogue
	updates  UpdateLog
	sender   ReplySender
	logger   *logging.Logger
	metrics  *metrics.ConversationMetrics
}

func NewWebhookHandler(secret string, dialogue Dialogue, sender ReplySender, logger *logging.Logger) *WebhookHandler {
	if dialogue == nil {
		panic("telegram: dialogue required")
	}
	if sender == nil {
		panic("telegram: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		secret:   strings.TrimSpace(secret),
		dialogue: dialogue,
		sender:   sender,
		logger:   logger,
	}
}

// WithUpdateLog attaches the shared update dedupe log.
func (h *WebhookHandler) WithUpdateLog(log UpdateLog) *WebhookHandler {
	h.updates = log
	return h
}

// WithMetrics attaches conversation metrics.
func (h *WebhookHandler) WithMetrics(m *metrics.ConversationMetrics) *WebhookHandler {
	h.metrics = m
	return h
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret == "" {
		h.logger.Error("telegram webhook secret not configured")
		http.Error(w, "webhook secret not configured", http.StatusInternalServerError)
		return
	}
	provided := r.Header.Get(secretTokenHeader)
	if !hmac.Equal([]byte(h.secret), []byte(provided)) {
		h.logger.Warn("telegram webhook secret mismatch")
		http.Error(w, "invalid secret token", http.StatusUnauthorized)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	msg, ok := incomingFromUpdate(update)
	if ok && h.fresh(r.Context(), update.UpdateID) {
		replies := h.dialogue.HandleText(r.Context(), msg)
		deliverReplies(r.Context(), h.sender, h.logger, h.metrics, msg.ChatID, replies)
	}
	w.WriteHeader(http.StatusOK)
}

// fresh reports whether the update has not been handled before. A failing
// dedupe store lets the update through rather than dropping it.
func (h *WebhookHandler) fresh(ctx context.Context, updateID int64) bool {
	if h.updates == nil {
		return true
	}
	fresh, err := h.updates.MarkProcessed(ctx, updateID)
	if err != nil {
		h.logger.Error("update dedupe failed", "error", err, "update_id", updateID)
		return true
	}
	return fresh
}

func deliverReplies(ctx context.Context, sender ReplySender, logger *logging.Logger, m *metrics.ConversationMetrics, chatID int64, replies []conversation.Reply) {
	for _, reply := range replies {
		if err := sender.SendMessage(ctx, chatID, reply.Text, reply.Keyboard); err != nil {
			logger.Error("telegram send failed", "error", err, "chat_id", chatID)
			m.ObserveSendFailure("telegram")
		}
	}
}
