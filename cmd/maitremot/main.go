package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lemaitremot/maitremot/internal/backup"
	"github.com/lemaitremot/maitremot/internal/database"
	"github.com/lemaitremot/maitremot/internal/email"
	"github.com/lemaitremot/maitremot/internal/generator"
	"github.com/lemaitremot/maitremot/internal/logging"
	"github.com/lemaitremot/maitremot/internal/payment"
	"github.com/lemaitremot/maitremot/internal/server"
	"github.com/lemaitremot/maitremot/internal/store"
)

func main() {
	logger := logging.Setup(os.Getenv("MAITREMOT_LOG_LEVEL"))

	port := os.Getenv("MAITREMOT_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("MAITREMOT_DB_PATH")
	if dbPath == "" {
		dbPath = "maitremot.db"
	}

	baseURL := os.Getenv("MAITREMOT_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(os.Getenv("BREVO_API_KEY"), os.Getenv("MAITREMOT_FROM_EMAIL"), baseURL)

	cfg := server.Config{
		BaseURL:     baseURL,
		EmailClient: emailClient,
		Generator: generator.Config{
			BaseURL: os.Getenv("GENERATOR_URL"),
			APIKey:  os.Getenv("GENERATOR_API_KEY"),
		},
		Stripe: payment.Config{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
	}

	srv, err := server.New(db, cfg, logger)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Encrypted database snapshots
	backupHour, _ := strconv.Atoi(os.Getenv("BACKUP_SCHEDULE_HOUR"))
	retention, _ := strconv.Atoi(os.Getenv("BACKUP_RETENTION_DAYS"))
	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("BACKUP_S3_ENDPOINT"),
			Bucket:    os.Getenv("BACKUP_S3_BUCKET"),
			Region:    os.Getenv("BACKUP_S3_REGION"),
			AccessKey: os.Getenv("BACKUP_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BACKUP_S3_SECRET_KEY"),
		},
		DBPath:        dbPath,
		Passphrase:    os.Getenv("BACKUP_PASSPHRASE"),
		ScheduleHour:  backupHour,
		RetentionDays: retention,
	}, db, store.NewBackupStore(db), logger)
	backupMgr.Start(context.Background())
	defer backupMgr.Stop()

	// Background cleanup: expired sessions and magic links, stale
	// rate-limiter windows.
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				if n, err := srv.MagicLinkStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired magic links", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired magic links", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("maitremot service starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
