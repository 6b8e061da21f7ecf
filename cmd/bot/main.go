package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"calbot/internal/calendar"
	"calbot/internal/config"
	"calbot/internal/database"
	"calbot/internal/enrollment"
	"calbot/internal/formatter"
	"calbot/internal/scheduler"
	"calbot/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting calendar notification bot")

	// Connect to database (bounded retry inside)
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseDSN(), logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	gateway := calendar.NewClient(cfg.CalDAVTimeout, logger)
	machine := enrollment.NewMachine(db, gateway, cfg.DefaultCalDAVURL, logger)
	eventFormatter := formatter.NewEventFormatter()

	// Create bot
	tgBot, err := telegram.NewBot(telegram.BotDeps{
		Config:    cfg,
		DB:        db,
		Machine:   machine,
		Gateway:   gateway,
		Formatter: eventFormatter,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Create scheduler; the bot is the notification sink
	task := scheduler.NewTask(gateway, db, tgBot, cfg.SendTimeout, logger)
	sched := scheduler.New(db, task, cfg.CheckInterval(), logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		logger.Info("shutting down...")

		sched.Stop()
		cancel()
	}()

	// Start the periodic sync
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("scheduler running", "interval_minutes", cfg.CheckIntervalMinutes)

	// Start bot
	logger.Info("bot is running, press Ctrl+C to stop")
	tgBot.Start(ctx)

	logger.Info("bot stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
