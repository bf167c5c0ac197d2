package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// fakeDialogue records turns and answers with canned replies.
type fakeDialogue struct {
	mu      sync.Mutex
	msgs    []conversation.IncomingMessage
	replies []conversation.Reply
}

func (f *fakeDialogue) HandleText(_ context.Context, msg conversation.IncomingMessage) []conversation.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.replies
}

func (f *fakeDialogue) received() []conversation.IncomingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]conversation.IncomingMessage(nil), f.msgs...)
}

func TestChatIDForSession(t *testing.T) {
	id := ChatIDForSession("sess1")
	assert.Negative(t, id)
	assert.Equal(t, id, ChatIDForSession("sess1"))
	assert.NotEqual(t, id, ChatIDForSession("sess2"))
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestHandleMessage_HTTP(t *testing.T) {
	dlg := &fakeDialogue{replies: []conversation.Reply{
		{Text: "Привет!", Keyboard: [][]string{{"📅 Записаться"}}},
	}}
	h := NewHandler(dlg, logging.New("error"))

	body := `{"session_id":"sess1","text":"/start"}`
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID string            `json:"session_id"`
		Messages  []OutboundMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sess1", resp.SessionID)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "message", resp.Messages[0].Type)
	assert.Equal(t, "Привет!", resp.Messages[0].Text)
	assert.Equal(t, [][]string{{"📅 Записаться"}}, resp.Messages[0].Keyboard)

	// The turn landed on the synthetic chat id for the session.
	msgs := dlg.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, ChatIDForSession("sess1"), msgs[0].ChatID)
	assert.Equal(t, "Гость", msgs[0].FirstName)
	assert.Equal(t, "/start", msgs[0].Text)
}

func TestHandleMessage_GeneratesSessionID(t *testing.T) {
	dlg := &fakeDialogue{}
	h := NewHandler(dlg, logging.New("error"))

	body := `{"text":"Привет"}`
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleMessage_EmptyText(t *testing.T) {
	h := NewHandler(&fakeDialogue{}, logging.New("error"))

	body := `{"session_id":"sess1","text":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_BadJSON(t *testing.T) {
	h := NewHandler(&fakeDialogue{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader("{nope"))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// dialWS connects to the handler's WebSocket endpoint and consumes the
// initial session frame.
func dialWS(t *testing.T, h *Handler, sessionID string) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/?session=" + sessionID
	conn, err := websocket.Dial(url, "", "http://example.com/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	var hello OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &hello))
	require.Equal(t, "session", hello.Type)
	require.Equal(t, sessionID, hello.SessionID)
	return conn
}

func TestWebSocketConversation(t *testing.T) {
	dlg := &fakeDialogue{replies: []conversation.Reply{
		{Text: "📅 На какой день вы хотите записаться?", Keyboard: [][]string{{"02.07 (Чт)"}}},
	}}
	h := NewHandler(dlg, logging.New("error"))
	conn := dialWS(t, h, "sess1")

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "📅 Записаться"}))

	var reply OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &reply))
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "📅 На какой день вы хотите записаться?", reply.Text)
	assert.Equal(t, [][]string{{"02.07 (Чт)"}}, reply.Keyboard)
	assert.NotEmpty(t, reply.Timestamp)

	msgs := dlg.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, ChatIDForSession("sess1"), msgs[0].ChatID)
}

func TestWebSocketPing(t *testing.T) {
	h := NewHandler(&fakeDialogue{}, logging.New("error"))
	conn := dialWS(t, h, "sess1")

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))

	var pong OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &pong))
	assert.Equal(t, "pong", pong.Type)
}

func TestSendTextToLiveSession(t *testing.T) {
	h := NewHandler(&fakeDialogue{}, logging.New("error"))
	conn := dialWS(t, h, "sess1")

	err := h.SendText(context.Background(), ChatIDForSession("sess1"), "Напоминание: завтра в 18:00")
	require.NoError(t, err)

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "Напоминание: завтра в 18:00", msg.Text)
}

func TestSendTextWithoutSessionDrops(t *testing.T) {
	h := NewHandler(&fakeDialogue{}, logging.New("error"))

	err := h.SendText(context.Background(), ChatIDForSession("gone"), "Напоминание")
	assert.NoError(t, err)
}

func TestHandleWidgetJS(t *testing.T) {
	h := NewHandler(&fakeDialogue{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/webchat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), "artchaos")
}
