// Package webchat serves the embeddable browser chat widget. Visitors talk
// over a WebSocket (with an HTTP fallback) to the same dialogue handler the
// Telegram bot uses. A stable negative chat id derived from the web session
// keeps web guests on the shared timeline and ledger without ever colliding
// with Telegram chat ids.
package webchat

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/pkg/logging"
)

//go:embed widget.js
var WidgetJS []byte

// Dialogue is the chat brain behind every transport.
type Dialogue interface {
	HandleText(ctx context.Context, msg conversation.IncomingMessage) []conversation.Reply
}

// Handler manages web chat connections and messages.
type Handler struct {
	dialogue Dialogue
	logger   *logging.Logger
	widgetJS []byte

	mu       sync.RWMutex
	sessions map[int64]*wsConn // synthetic chat id -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string     `json:"type"` // "message", "pong", "session", "error"
	Text      string     `json:"text,omitempty"`
	Keyboard  [][]string `json:"keyboard,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(dialogue Dialogue, logger *logging.Logger) *Handler {
	if dialogue == nil {
		panic("webchat: dialogue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dialogue: dialogue,
		logger:   logger,
		widgetJS: WidgetJS,
		sessions: make(map[int64]*wsConn),
	}
}

// ChatIDForSession derives the stable synthetic chat id for a web session.
// Web ids are negative and Telegram ids positive, so they never collide.
func ChatIDForSession(sessionID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	id := int64(h.Sum64() & math.MaxInt64)
	if id == 0 {
		id = 1
	}
	return -id
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and runs the chat loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	// Request deadlines from the HTTP server stay armed on the hijacked
	// conn. Chat sockets idle far longer than a request, so clear them.
	_ = conn.SetDeadline(time.Time{})

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	chatID := ChatIDForSession(sessionID)

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[chatID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[chatID] == wsc {
			delete(h.sessions, chatID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	// Tell the widget its session id so it can reconnect to the same chat.
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	h.logger.Info("webchat connection opened", "session_id", sessionID, "chat_id", chatID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		for _, reply := range h.converse(r.Context(), chatID, msg.Text) {
			_ = websocket.JSON.Send(conn, reply)
		}
	}
}

// converse runs one dialogue turn and shapes the replies for the widget.
func (h *Handler) converse(ctx context.Context, chatID int64, text string) []OutboundMessage {
	replies := h.dialogue.HandleText(ctx, conversation.IncomingMessage{
		ChatID:    chatID,
		FirstName: "Гость",
		Text:      text,
	})
	out := make([]OutboundMessage, 0, len(replies))
	for _, r := range replies {
		out = append(out, OutboundMessage{
			Type:      "message",
			Text:      r.Text,
			Keyboard:  r.Keyboard,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return out
}

// HandleMessage is the HTTP fallback for clients without WebSocket support.
// The dialogue runs synchronously, so replies come back in the response.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	replies := h.converse(r.Context(), ChatIDForSession(req.SessionID), req.Text)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"messages":   replies,
	})
}

// SendText pushes a message to a web guest's live socket. Web sessions are
// browser tabs: without one there is nowhere to deliver, so the message is
// dropped and nil returned.
func (h *Handler) SendText(_ context.Context, chatID int64, text string) error {
	h.mu.RLock()
	wsc, ok := h.sessions[chatID]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("webchat reminder dropped, no live session", "chat_id", chatID)
		return nil
	}
	return websocket.JSON.Send(wsc.conn, OutboundMessage{
		Type:      "message",
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleWidgetJS serves the embeddable widget script.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
