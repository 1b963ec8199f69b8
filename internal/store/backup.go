package store

import (
	"database/sql"
	"fmt"
	"time"
)

// BackupRecord tracks one uploaded database snapshot.
type BackupRecord struct {
	ID        int64
	ObjectKey string
	SizeBytes int64
	CreatedAt time.Time
}

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Record(objectKey string, sizeBytes int64) error {
	_, err := s.db.Exec(
		`INSERT INTO backups (object_key, size_bytes) VALUES (?, ?)`,
		objectKey, sizeBytes,
	)
	if err != nil {
		return fmt.Errorf("record backup: %w", err)
	}
	return nil
}

// Latest returns the most recent backup record, or nil if none exists.
func (s *BackupStore) Latest() (*BackupRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, object_key, size_bytes, created_at FROM backups ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	var r BackupRecord
	err := row.Scan(&r.ID, &r.ObjectKey, &r.SizeBytes, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest backup: %w", err)
	}
	return &r, nil
}

// ListOlderThan returns object keys of backups created before the cutoff,
// used to prune remote snapshots.
func (s *BackupStore) ListOlderThan(cutoff time.Time) ([]BackupRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, object_key, size_bytes, created_at FROM backups WHERE created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list old backups: %w", err)
	}
	defer rows.Close()

	var records []BackupRecord
	for rows.Next() {
		var r BackupRecord
		if err := rows.Scan(&r.ID, &r.ObjectKey, &r.SizeBytes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *BackupStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete backup record: %w", err)
	}
	return nil
}
