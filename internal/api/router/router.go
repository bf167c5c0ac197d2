package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/artchaos/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/artchaos/booking-platform/internal/http/middleware"
	"github.com/artchaos/booking-platform/internal/telegram"
	"github.com/artchaos/booking-platform/internal/webchat"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	// Guest-facing transports
	TelegramWebhook *telegram.WebhookHandler
	Webchat         *webchat.Handler
	WebchatEnabled  bool

	// Owner API (enabled only when AdminAuthSecret is set)
	AdminBookings   *handlers.AdminBookingsHandler
	AdminGuests     *handlers.AdminGuestsHandler
	AdminStats      *handlers.AdminStatsHandler
	AdminPurge      *handlers.AdminPurgeHandler
	AdminAuthSecret string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health check, metrics, guest transports)
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TelegramWebhook != nil {
			public.Post("/webhooks/telegram", cfg.TelegramWebhook.Handle)
		}
		if cfg.WebchatEnabled && cfg.Webchat != nil {
			public.Route("/webchat", func(chat chi.Router) {
				chat.Use(httpmiddleware.RateLimit(5, 20))
				chat.Get("/ws", cfg.Webchat.HandleWebSocket)
				chat.Post("/message", cfg.Webchat.HandleMessage)
				chat.Get("/widget.js", cfg.Webchat.HandleWidgetJS)
			})
		}
	})

	// Owner routes (protected by admin JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/api/v1/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminBookings != nil {
				admin.Get("/bookings", cfg.AdminBookings.List)
				admin.Delete("/bookings/{id}", cfg.AdminBookings.Cancel)
			}
			if cfg.AdminGuests != nil {
				admin.Get("/guests", cfg.AdminGuests.List)
				admin.Post("/guests/{chatID}/credits", cfg.AdminGuests.GrantCredits)
			}
			if cfg.AdminPurge != nil {
				admin.Delete("/guests/{chatID}/data", cfg.AdminPurge.PurgeGuest)
			}
			if cfg.AdminStats != nil {
				admin.Get("/stats", cfg.AdminStats.Overview)
			}
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
