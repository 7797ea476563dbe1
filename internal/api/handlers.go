package api

import (
	"context"

	"github.com/vytor/linguatrack/internal/bot"
	"github.com/vytor/linguatrack/internal/jobs"
	"github.com/vytor/linguatrack/internal/services"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	DB             Pinger
	ProfileService services.ProfileService
	CardService    services.CardService
	ReviewService  services.ReviewService
	StatsService   services.StatsService
	ImportService  services.ImportService
	ImportJobs     services.ImportJobService
	JobQueue       jobs.JobQueue
	// Bot is nil when the chat bot is disabled.
	Bot *bot.Dispatcher
	// BotSecret must match the BotSecretHeader of every bot update.
	BotSecret       string
	DuePreviewLimit int
	MaxImportBytes  int64
	SecureCookies   bool
}
