package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lemaitremot/maitremot/internal/model"
)

// MaxGuestExports is the lifetime free-export ceiling for a guest.
const MaxGuestExports = 3

type ExportStore struct {
	db *sql.DB
}

func NewExportStore(db *sql.DB) *ExportStore {
	return &ExportStore{db: db}
}

// GuestQuota reports a guest's position against the free ceiling.
func (s *ExportStore) GuestQuota(guestID string) (*model.QuotaStatus, error) {
	var used int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exports WHERE guest_id = ?`, guestID).Scan(&used)
	if err != nil {
		return nil, fmt.Errorf("count guest exports: %w", err)
	}
	remaining := MaxGuestExports - used
	if remaining < 0 {
		remaining = 0
	}
	return &model.QuotaStatus{
		ExportsUsed:      used,
		ExportsRemaining: remaining,
		MaxExports:       MaxGuestExports,
		QuotaExceeded:    used >= MaxGuestExports,
	}, nil
}

// RecordGuestExport appends an export row for the guest, but only while the
// guest is under the ceiling. The count guard lives inside the INSERT so a
// burst of concurrent exports cannot overshoot: each statement re-counts
// under the same write lock. Returns false when the quota is exhausted.
func (s *ExportStore) RecordGuestExport(guestID, documentID, exportType, templateUsed string) (bool, error) {
	id := uuid.NewString()
	result, err := s.db.Exec(
		`INSERT INTO exports (id, document_id, export_type, guest_id, template_used)
		 SELECT ?, ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM exports WHERE guest_id = ?) < ?`,
		id, documentID, exportType, guestID, templateUsed, guestID, MaxGuestExports,
	)
	if err != nil {
		return false, fmt.Errorf("record guest export: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// RecordProExport appends an audit row for a Pro export. No ceiling applies.
func (s *ExportStore) RecordProExport(email, documentID, exportType, templateUsed string) error {
	_, err := s.db.Exec(
		`INSERT INTO exports (id, document_id, export_type, email, template_used) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), documentID, exportType, email, templateUsed,
	)
	if err != nil {
		return fmt.Errorf("record pro export: %w", err)
	}
	return nil
}

// CountByEmail returns the total exports recorded for a subscriber.
func (s *ExportStore) CountByEmail(email string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exports WHERE email = ?`, email).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count exports by email: %w", err)
	}
	return count, nil
}

// CountByEmailSince returns the exports recorded for a subscriber after the
// cutoff. Feeds the recent-activity figure in the analytics overview.
// created_at is written by datetime('now'), so the cutoff is bound in the
// same text format to keep the comparison sound.
func (s *ExportStore) CountByEmailSince(email string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM exports WHERE email = ? AND created_at >= ?`,
		email, since.UTC().Format("2006-01-02 15:04:05"),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent exports by email: %w", err)
	}
	return count, nil
}

// TemplateUsageByEmail returns per-template export counts for a subscriber.
func (s *ExportStore) TemplateUsageByEmail(email string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT template_used, COUNT(*) FROM exports WHERE email = ? GROUP BY template_used`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("template usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var tmpl string
		var count int
		if err := rows.Scan(&tmpl, &count); err != nil {
			return nil, fmt.Errorf("scan template usage: %w", err)
		}
		usage[tmpl] = count
	}
	return usage, rows.Err()
}
