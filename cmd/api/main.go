package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artchaos/booking-platform/internal/api/router"
	"github.com/artchaos/booking-platform/internal/app/bootstrap"
	"github.com/artchaos/booking-platform/internal/audit"
	"github.com/artchaos/booking-platform/internal/bookings"
	appconfig "github.com/artchaos/booking-platform/internal/config"
	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/internal/credits"
	"github.com/artchaos/booking-platform/internal/guestdata"
	"github.com/artchaos/booking-platform/internal/guests"
	"github.com/artchaos/booking-platform/internal/http/handlers"
	"github.com/artchaos/booking-platform/internal/notify"
	"github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/internal/reminders"
	"github.com/artchaos/booking-platform/internal/telegram"
	"github.com/artchaos/booking-platform/internal/webchat"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// reminderSender fans reminder texts out by channel: negative chat ids belong
// to webchat sessions, everything else goes to Telegram.
type reminderSender struct {
	telegram *telegram.Client
	webchat  *webchat.Handler
}

func (s *reminderSender) SendText(ctx context.Context, chatID int64, text string) error {
	if chatID < 0 && s.webchat != nil {
		return s.webchat.SendText(ctx, chatID, text)
	}
	if s.telegram == nil {
		return fmt.Errorf("telegram client not configured")
	}
	return s.telegram.SendText(ctx, chatID, text)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grid, err := bootstrap.BuildGrid(cfg)
	if err != nil {
		logger.Error("failed to build slot grid", "error", err)
		os.Exit(1)
	}

	pool, err := bootstrap.BuildPgxPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.BuildSQLDB(ctx, cfg)
	if err != nil {
		logger.Error("failed to open sql connection", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for chat sessions")
		os.Exit(1)
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)
	reminderMetrics := metrics.NewReminderMetrics(registry)
	conversationMetrics := metrics.NewConversationMetrics(registry)

	// Initialize stores
	bookingStore := bookings.NewStore(pool)
	creditStore := credits.NewStore(pool)
	guestStore := guests.NewStore(pool)
	reminderStore := reminders.NewStore(pool).WithMetrics(reminderMetrics)
	updateStore := telegram.NewUpdateStore(pool)
	auditStore := audit.NewStore(sqlDB)
	purger := guestdata.NewPurger(sqlDB, redisClient, logger)

	var email notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.NotifyEmailFrom,
		FromName:  cfg.StudioName,
	}, logger); sg != nil {
		email = sg
	} else {
		logger.Info("sendgrid not configured, owner emails go to the log")
		email = notify.NewStubEmailSender(logger)
	}
	owner := notify.NewOwnerNotifier(email, notify.OwnerConfig{
		To:         cfg.NotifyEmailTo,
		StudioName: cfg.StudioName,
		Location:   grid.Location,
	}, logger)

	// Initialize services
	svc := bookings.NewService(bookingStore, creditStore, grid, logger).
		WithReminders(reminderStore).
		WithRecorder(auditStore).
		WithNotifier(owner).
		WithMetrics(bookingMetrics)

	sessions := bootstrap.BuildSessionStore(redisClient, cfg)
	dialogue := conversation.NewHandler(sessions, guestStore, svc, creditStore, grid, logger).
		WithOwner(cfg.AdminChatID).
		WithStudioName(cfg.StudioName).
		WithMetrics(conversationMetrics)

	var tgClient *telegram.Client
	var telegramWebhook *telegram.WebhookHandler
	if cfg.TelegramBotToken != "" {
		tgClient, err = telegram.New(telegram.Config{
			Token:       cfg.TelegramBotToken,
			BaseURL:     cfg.TelegramAPIBase,
			PollTimeout: cfg.TelegramPollTimeout,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to build telegram client", "error", err)
			os.Exit(1)
		}
		telegramWebhook = telegram.NewWebhookHandler(cfg.TelegramWebhookSecret, dialogue, tgClient, logger).
			WithUpdateLog(updateStore).
			WithMetrics(conversationMetrics)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, telegram webhook disabled")
	}

	webchatHandler := webchat.NewHandler(dialogue, logger)

	// Reminders fire from the API process in webhook deployments.
	dispatcher := reminders.NewDispatcher(reminderStore, &reminderSender{telegram: tgClient, webchat: webchatHandler}, logger.With("component", "reminders")).
		WithInterval(cfg.ReminderPollInterval).
		WithBatchSize(int32(cfg.ReminderBatchSize)).
		WithLocation(grid.Location).
		WithStudioName(cfg.StudioName).
		WithMetrics(reminderMetrics)
	go dispatcher.Start(ctx)

	// Initialize handlers
	adminBookings := handlers.NewAdminBookingsHandler(svc, grid.Location, logger)
	adminGuests := handlers.NewAdminGuestsHandler(guestStore, creditStore, logger).
		WithRecorder(auditStore).
		WithMetrics(bookingMetrics).
		WithDefaultVisits(cfg.DefaultPassVisits)
	adminStats := handlers.NewAdminStatsHandler(auditStore, registry, grid.Location, logger)
	adminPurge := handlers.NewAdminPurgeHandler(purger, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		TelegramWebhook:    telegramWebhook,
		Webchat:            webchatHandler,
		WebchatEnabled:     cfg.WebchatEnabled,
		AdminBookings:      adminBookings,
		AdminGuests:        adminGuests,
		AdminStats:         adminStats,
		AdminPurge:         adminPurge,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Stop the reminder dispatcher, then drain in-flight requests.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
