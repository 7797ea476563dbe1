package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/linguatrack/internal/api"
	"github.com/vytor/linguatrack/internal/bot"
	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/config"
	"github.com/vytor/linguatrack/internal/db"
	"github.com/vytor/linguatrack/internal/jobs"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/notify"
	"github.com/vytor/linguatrack/internal/repository/sqlite"
	"github.com/vytor/linguatrack/internal/services"
	"github.com/vytor/linguatrack/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(cfg.LogColors),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("LinguaTrack Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("reminder_worker_count=%d", cfg.ReminderWorkerCount)
	log.Debug("reminder_queue_size=%d", cfg.ReminderQueueSize)
	log.Debug("import_worker_count=%d", cfg.ImportWorkerCount)
	log.Debug("import_queue_size=%d", cfg.ImportQueueSize)
	log.Debug("reminder_hour=%d", cfg.ReminderHour)
	log.Debug("reminder_concurrency=%d", cfg.ReminderConcurrency)
	log.Debug("bot_enabled=%t", cfg.BotEnabled)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	clk := clock.System()

	// Repositories
	profileRepo := sqlite.NewProfileRepository(database.DB)
	cardRepo := sqlite.NewCardRepository(database.DB)
	scheduleRepo := sqlite.NewScheduleRepository(database.DB)
	statsRepo := sqlite.NewStatsRepository(database.DB)
	importJobRepo := sqlite.NewImportJobRepository(database.DB)

	// Services
	profileService := services.NewProfileService(profileRepo)
	cardService := services.NewCardService(cardRepo, scheduleRepo, clk)
	reviewService := services.NewReviewService(cardRepo, scheduleRepo, clk)
	statsService := services.NewStatsService(statsRepo, clk)
	importService := services.NewImportService(cardRepo, cardService)
	importJobService := services.NewImportJobService(importJobRepo, importService, clk)

	// Payloads of queued imports die with the process that held them.
	if n, err := importJobService.FailUnfinished(logger.NewContext(context.Background(), log)); err != nil {
		log.Error("failed to close unfinished import jobs: %v", err)
		os.Exit(1)
	} else if n > 0 {
		log.Warn("marked %d unfinished import jobs as failed", n)
	}

	// Background work
	reminderPool := worker.NewPool("reminders", cfg.ReminderWorkerCount, cfg.ReminderQueueSize)
	importPool := worker.NewPool("imports", cfg.ImportWorkerCount, cfg.ImportQueueSize)
	notifier := notify.New(cfg.NotifyWebhookURL)
	if cfg.NotifyWebhookURL == "" {
		log.Warn("NOTIFY_WEBHOOK_URL not set, reminders will only be logged")
	}
	queue := jobs.NewWorkerQueue(reminderPool, importPool, statsRepo, importJobService, notifier, clk, cfg.ReminderConcurrency)

	var dispatcher *bot.Dispatcher
	if cfg.BotEnabled {
		sessions := bot.NewMemorySessionStore(clk, time.Duration(cfg.BotSessionMinutes)*time.Minute)
		dispatcher = bot.NewDispatcher(profileService, cardService, reviewService, statsService, sessions, cfg.DuePreviewLimit)
		log.Info("chat bot enabled at POST /bot/updates")
	}

	srv := &api.Server{
		DB:              database,
		ProfileService:  profileService,
		CardService:     cardService,
		ReviewService:   reviewService,
		StatsService:    statsService,
		ImportService:   importService,
		ImportJobs:      importJobService,
		JobQueue:        queue,
		Bot:             dispatcher,
		BotSecret:       cfg.BotWebhookSecret,
		DuePreviewLimit: cfg.DuePreviewLimit,
		SecureCookies:   cfg.CookieSecure,
	}

	ctx, cancel := context.WithCancel(logger.NewContext(context.Background(), log))
	reminderPool.Start(ctx)
	importPool.Start(ctx)

	scheduler := jobs.NewScheduler(queue, clk, cfg.ReminderHour)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping scheduler and worker pools")
	cancel()
	<-schedulerDone
	reminderPool.Stop()
	importPool.Stop()

	log.Info("===========================================")
	log.Info("LinguaTrack Server Stopped")
	log.Info("===========================================")
}
