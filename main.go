// Package main implements a long-running monitor that watches a doctor's
// open appointment slots and keeps a Telegram chat synchronized with the
// feed's current state across restarts.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"slotwatch/feed"
	"slotwatch/poll"
	"slotwatch/reconcile"
	"slotwatch/render"
	"slotwatch/storage"
	"slotwatch/telegram"
)

const defaultCheckInterval = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present; env vars already set take precedence.
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}

	doctorID := os.Getenv("DOCTOR_ID")
	if doctorID == "" {
		logger.Error("DOCTOR_ID environment variable required")
		os.Exit(1)
	}

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	bucket := os.Getenv("STORAGE_BUCKET")
	stateDir := os.Getenv("STATE_DIR")

	interval := defaultCheckInterval
	if raw := os.Getenv("CHECK_INTERVAL"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			logger.Error("CHECK_INTERVAL must be a positive number of seconds", "value", raw)
			os.Exit(1)
		}
		interval = time.Duration(secs) * time.Second
	}

	// Storage: GCS bucket in production, local directory otherwise.
	var store *storage.Store
	if bucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Error("Failed to initialize Storage client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
		store = storage.New(client, bucket, "", logger)
		logger.Info("Using Cloud Storage state", "bucket", bucket)
	} else {
		if stateDir == "" {
			stateDir = "./data"
			logger.Info("No STORAGE_BUCKET set, defaulting to local state directory", "state_dir", stateDir)
		}

		lock, err := storage.AcquireLock(stateDir)
		if err != nil {
			logger.Error("Failed to lock state directory", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("Failed to release state lock", "error", err)
			}
		}()

		store = storage.New(nil, "", stateDir, logger)
		logger.Info("Using local state", "state_dir", stateDir)
	}

	// Transport: mock sender unless a bot token and chat are configured.
	var sender telegram.Sender
	if botToken != "" && chatID != "" {
		sender = telegram.NewBot(botToken, chatID, logger)
	} else {
		logger.Info("Mock transport enabled (no TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID)")
		sender = telegram.NewMockSender(logger)
	}

	fetcher := feed.New(&http.Client{Timeout: 15 * time.Second}, doctorID, logger)
	engine := reconcile.New(render.New(fetcher.BookingURL()), logger)

	monitor := poll.New(fetcher, engine, sender, store, logger, poll.Config{
		Interval:  interval,
		JitterMin: time.Second,
		JitterMax: 15 * time.Second,
	})

	startHealthServer(monitor, logger)

	logger.Info("Starting slot monitor",
		"doctor_id", doctorID,
		"interval", interval.String())

	if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Monitor stopped", "error", err)
		os.Exit(1)
	}
}

func startHealthServer(monitor *poll.Monitor, logger *slog.Logger) {
	http.HandleFunc("/health", handleHealth(monitor))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		logger.Info("Starting HTTP server", "port", port)
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			logger.Error("Health server failed", "error", err)
		}
	}()
}
