// Package backup uploads encrypted database snapshots to S3-compatible
// storage on a daily schedule.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lemaitremot/maitremot/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3            S3Config
	DBPath        string
	Passphrase    string
	ScheduleHour  int // UTC hour of the daily snapshot
	RetentionDays int
}

// Manager runs the scheduled snapshot loop.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	logger *slog.Logger

	db     *sql.DB
	store  *store.BackupStore
	client s3Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It stays disabled unless the S3
// credentials and the passphrase are all configured.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	m := &Manager{
		cfg:    cfg,
		db:     db,
		store:  bs,
		logger: logger.With("component", "backup"),
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager will actually upload snapshots.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Start begins the scheduled backup loop. It is a no-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("backups disabled: missing S3 credentials or passphrase")
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				if now.Hour() != m.cfg.ScheduleHour || now.Minute() != 0 {
					continue
				}
				if err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if err := m.cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunNow takes one snapshot: checkpoint WAL, read the database file,
// encrypt, upload, record.
func (m *Manager) RunNow(ctx context.Context) error {
	if !m.Enabled() {
		return fmt.Errorf("backup not configured")
	}

	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}

	plaintext, err := os.ReadFile(m.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("read database: %w", err)
	}

	encrypted, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/maitremot-%s.db.enc", time.Now().UTC().Format("2006-01-02T150405Z"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	if err := m.store.Record(key, int64(len(encrypted))); err != nil {
		return err
	}
	m.logger.Info("snapshot uploaded", "key", key, "size_bytes", len(encrypted))
	return nil
}

// Restore downloads and decrypts a snapshot into dstPath. The caller is
// responsible for restarting the service on the restored file.
func (m *Manager) Restore(ctx context.Context, objectKey, dstPath string) error {
	if !m.Enabled() {
		return fmt.Errorf("backup not configured")
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("download snapshot: %w", err)
	}
	defer result.Body.Close()

	encrypted, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	plaintext, err := Decrypt(encrypted, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	return nil
}

// cleanup prunes snapshots past the retention window, remote object first.
func (m *Manager) cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	old, err := m.store.ListOlderThan(cutoff)
	if err != nil {
		return err
	}

	for _, rec := range old {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(rec.ObjectKey),
		}); err != nil {
			m.logger.Error("delete remote snapshot failed", "key", rec.ObjectKey, "error", err)
			continue
		}
		if err := m.store.Delete(rec.ID); err != nil {
			return err
		}
	}
	return nil
}
