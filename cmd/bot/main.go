package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/artchaos/booking-platform/internal/app/bootstrap"
	"github.com/artchaos/booking-platform/internal/audit"
	"github.com/artchaos/booking-platform/internal/bookings"
	appconfig "github.com/artchaos/booking-platform/internal/config"
	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/internal/credits"
	"github.com/artchaos/booking-platform/internal/guests"
	"github.com/artchaos/booking-platform/internal/notify"
	"github.com/artchaos/booking-platform/internal/reminders"
	"github.com/artchaos/booking-platform/internal/telegram"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// Long-polling runner for deployments without a public HTTPS endpoint.
// Carries the reminder dispatcher so reminders fire in polling mode too.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" || cfg.TelegramBotToken == "" {
		logger.Error("bot runner requires DATABASE_URL and TELEGRAM_BOT_TOKEN")
		os.Exit(1)
	}

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

	bookingStore := bookings.NewStore(pool)
	creditStore := credits.NewStore(pool)
	guestStore := guests.NewStore(pool)
	reminderStore := reminders.NewStore(pool)
	updateStore := telegram.NewUpdateStore(pool)
	auditStore := audit.NewStore(sqlDB)

	var email notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.NotifyEmailFrom,
		FromName:  cfg.StudioName,
	}, logger); sg != nil {
		email = sg
	} else {
		email = notify.NewStubEmailSender(logger)
	}
	owner := notify.NewOwnerNotifier(email, notify.OwnerConfig{
		To:         cfg.NotifyEmailTo,
		StudioName: cfg.StudioName,
		Location:   grid.Location,
	}, logger)

	svc := bookings.NewService(bookingStore, creditStore, grid, logger).
		WithReminders(reminderStore).
		WithRecorder(auditStore).
		WithNotifier(owner)

	sessions := bootstrap.BuildSessionStore(redisClient, cfg)
	dialogue := conversation.NewHandler(sessions, guestStore, svc, creditStore, grid, logger).
		WithOwner(cfg.AdminChatID).
		WithStudioName(cfg.StudioName)

	tgClient, err := telegram.New(telegram.Config{
		Token:       cfg.TelegramBotToken,
		BaseURL:     cfg.TelegramAPIBase,
		PollTimeout: cfg.TelegramPollTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to build telegram client", "error", err)
		os.Exit(1)
	}

	// getUpdates returns 409 while a webhook is registered.
	if err := tgClient.DeleteWebhook(ctx, false); err != nil {
		logger.Warn("failed to delete webhook before polling", "error", err)
	}

	dispatcher := reminders.NewDispatcher(reminderStore, tgClient, logger.With("component", "reminders")).
		WithInterval(cfg.ReminderPollInterval).
		WithBatchSize(int32(cfg.ReminderBatchSize)).
		WithLocation(grid.Location).
		WithStudioName(cfg.StudioName)

	poller := telegram.NewPoller(tgClient, dialogue, logger.With("component", "poller")).
		WithUpdateLog(updateStore)

	go dispatcher.Start(ctx)
	go poller.Run(ctx)

	logger.Info("bot polling started", "studio", cfg.StudioName)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("bot shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
