package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/artchaos/booking-platform/internal/bookings"
	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/internal/http/handlers"
	"github.com/artchaos/booking-platform/internal/telegram"
	"github.com/artchaos/booking-platform/internal/webchat"
	"github.com/artchaos/booking-platform/pkg/logging"
)

type echoDialogue struct{}

func (echoDialogue) HandleText(_ context.Context, msg conversation.IncomingMessage) []conversation.Reply {
	return []conversation.Reply{{Text: "Привет, " + msg.FirstName + "!"}}
}

type noopSender struct{}

func (noopSender) SendMessage(context.Context, int64, string, [][]string) error { return nil }

type emptyBookingService struct{}

func (emptyBookingService) Cancel(context.Context, uuid.UUID, *int64) (*bookings.Booking, error) {
	return nil, bookings.ErrNotFound
}

func (emptyBookingService) ListForDay(context.Context, time.Time) ([]bookings.Booking, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	webhook := telegram.NewWebhookHandler("test-secret", echoDialogue{}, noopSender{}, logger)
	chat := webchat.NewHandler(echoDialogue{}, logger)
	adminBookings := handlers.NewAdminBookingsHandler(emptyBookingService{}, time.UTC, logger)

	cfg := &Config{
		Logger:          logger,
		TelegramWebhook: webhook,
		Webchat:         chat,
		WebchatEnabled:  true,
		AdminBookings:   adminBookings,
		AdminAuthSecret: "admin-secret",
	}

	return New(cfg)
}

func signAdminToken(t *testing.T, secret string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "owner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterTelegramWebhookEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"update_id":1,"message":{"message_id":10,"from":{"id":42,"first_name":"Аня"},"chat":{"id":42},"text":"/start"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "test-secret")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterTelegramWebhookRejectsBadSecret(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram", strings.NewReader(`{"update_id":1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterWebchatMessageEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(`{"session_id":"sess1","text":"/start"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Messages  []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "sess1" {
		t.Errorf("expected session 'sess1', got %q", resp.SessionID)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "Привет, Гость!" {
		t.Errorf("unexpected messages: %+v", resp.Messages)
	}
}

func TestRouterWebchatWidgetEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/webchat/widget.js", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/javascript" {
		t.Errorf("expected javascript content type, got %s", ct)
	}
}

// TestRouterWebchatDisabled verifies the webchat routes are not mounted when
// the feature flag is off, even if the handler itself was constructed.
func TestRouterWebchatDisabled(t *testing.T) {
	logger := logging.Default()
	chat := webchat.NewHandler(echoDialogue{}, logger)

	router := New(&Config{
		Logger:         logger,
		Webchat:        chat,
		WebchatEnabled: false,
	})

	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(`{"text":"hi"}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404/405 when webchat is disabled, got %d", rr.Code)
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterAdminAcceptsSignedToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+signAdminToken(t, "admin-secret"))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

// TestRouterAdminAbsentWithoutSecret documents that the owner API stays dark
// when no ADMIN_JWT_SECRET is configured: routes are never mounted.
func TestRouterAdminAbsentWithoutSecret(t *testing.T) {
	logger := logging.Default()
	adminBookings := handlers.NewAdminBookingsHandler(emptyBookingService{}, time.UTC, logger)

	router := New(&Config{
		Logger:        logger,
		AdminBookings: adminBookings,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin secret is empty, got %d", rr.Code)
	}
}
