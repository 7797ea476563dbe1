package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/vytor/linguatrack/internal/logger"
)

type Config struct {
	Addr                string `env:"ADDR" validate:"required"`
	DBPath              string `env:"DB_PATH" validate:"required"`
	LogLevel            string `env:"LOG_LEVEL" validate:"loglevel"`
	LogColors           bool   `env:"LOG_COLORS"`
	ReminderWorkerCount int    `env:"REMINDER_WORKER_COUNT" validate:"gte=1"`
	ReminderQueueSize   int    `env:"REMINDER_QUEUE_SIZE" validate:"gte=1"`
	ImportWorkerCount   int    `env:"IMPORT_WORKER_COUNT" validate:"gte=1"`
	ImportQueueSize     int    `env:"IMPORT_QUEUE_SIZE" validate:"gte=1"`
	ReminderHour        int    `env:"REMINDER_HOUR" validate:"gte=0,lte=23"`
	ReminderConcurrency int    `env:"REMINDER_CONCURRENCY" validate:"gte=1,lte=100"`
	NotifyWebhookURL    string `env:"NOTIFY_WEBHOOK_URL" validate:"omitempty,url"`
	DuePreviewLimit     int    `env:"DUE_PREVIEW_LIMIT" validate:"gte=1,lte=100"`
	BotEnabled          bool   `env:"BOT_ENABLED"`
	BotSessionMinutes   int    `env:"BOT_SESSION_MINUTES" validate:"gte=1,lte=10080"`
	BotWebhookSecret    string `env:"BOT_WEBHOOK_SECRET" validate:"required_if=BotEnabled true"`
	CookieSecure        bool   `env:"COOKIE_SECURE"`
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DBPath:              envOr("DB_PATH", "file:linguatrack.db"),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		LogColors:           envBoolOr("LOG_COLORS", true),
		ReminderWorkerCount: envIntOr("REMINDER_WORKER_COUNT", 1),
		ReminderQueueSize:   envIntOr("REMINDER_QUEUE_SIZE", 8),
		ImportWorkerCount:   envIntOr("IMPORT_WORKER_COUNT", 2),
		ImportQueueSize:     envIntOr("IMPORT_QUEUE_SIZE", 16),
		ReminderHour:        envIntOr("REMINDER_HOUR", 9),
		ReminderConcurrency: envIntOr("REMINDER_CONCURRENCY", 8),
		NotifyWebhookURL:    envOr("NOTIFY_WEBHOOK_URL", ""),
		DuePreviewLimit:     envIntOr("DUE_PREVIEW_LIMIT", 10),
		BotEnabled:          envBoolOr("BOT_ENABLED", false),
		BotSessionMinutes:   envIntOr("BOT_SESSION_MINUTES", 60),
		BotWebhookSecret:    envOr("BOT_WEBHOOK_SECRET", ""),
		CookieSecure:        envBoolOr("COOKIE_SECURE", false),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report failures by env var so messages match what operators set.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return logger.ValidLevel(fl.Field().String())
	})
	return v
}

// Validate checks every field and reports all problems in a single error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " cannot be empty"
	case "required_if":
		// BotEnabled is the only condition in use.
		return name + " is required when BOT_ENABLED=true"
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", name, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", name, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got %q", name, fe.Value())
	case "loglevel":
		return fmt.Sprintf("%s must be one of DEBUG, INFO, WARN, ERROR, got %q", name, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}
