package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	TelegramBotToken      string
	TelegramAPIBase       string
	TelegramWebhookSecret string
	TelegramPollTimeout   time.Duration

	AdminJWTSecret string
	AdminChatID    int64

	StudioName     string
	StudioTimezone string

	// Slot grid: hourly start slots [OpenHour..LastSlotHour], whole-hour durations,
	// sessions must end by CloseHour.
	OpenHour             int
	LastSlotHour         int
	CloseHour            int
	BookingWindowDays    int
	DefaultDurationHours int
	MaxDurationHours     int

	DefaultPassVisits int
	SessionTTL        time.Duration

	ReminderPollInterval time.Duration
	ReminderBatchSize    int

	SendGridAPIKey  string
	NotifyEmailFrom string
	NotifyEmailTo   string

	WebchatEnabled     bool
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIBase:       getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramPollTimeout:   getEnvAsDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminChatID:    getEnvAsInt64("ADMIN_CHAT_ID", 0),

		StudioName:     getEnv("STUDIO_NAME", "ArtChaos"),
		StudioTimezone: getEnv("STUDIO_TIMEZONE", "Europe/Moscow"),

		OpenHour:             getEnvAsInt("OPEN_HOUR", 10),
		LastSlotHour:         getEnvAsInt("LAST_SLOT_HOUR", 21),
		CloseHour:            getEnvAsInt("CLOSE_HOUR", 23),
		BookingWindowDays:    getEnvAsInt("BOOKING_WINDOW_DAYS", 7),
		DefaultDurationHours: getEnvAsInt("DEFAULT_DURATION_HOURS", 2),
		MaxDurationHours:     getEnvAsInt("MAX_DURATION_HOURS", 4),

		DefaultPassVisits: getEnvAsInt("DEFAULT_PASS_VISITS", 8),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", 30*time.Second),
		ReminderBatchSize:    getEnvAsInt("REMINDER_BATCH_SIZE", 20),

		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		NotifyEmailFrom: getEnv("NOTIFY_EMAIL_FROM", ""),
		NotifyEmailTo:   getEnv("NOTIFY_EMAIL_TO", ""),

		WebchatEnabled:     getEnvAsBool("WEBCHAT_ENABLED", true),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
	}
}

// IsProduction reports whether the service runs with production guarantees.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable into trimmed
// non-empty values. Unset or blank yields nil.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
