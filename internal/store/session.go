package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lemaitremot/maitremot/internal/model"
)

const sessionTTL = 24 * time.Hour

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	var deviceID sql.NullString
	err := scanner.Scan(&s.ID, &s.Token, &s.Email, &deviceID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if deviceID.Valid {
		s.DeviceID = &deviceID.String
	}
	return &s, nil
}

const sessionCols = `id, token, email, device_id, created_at, expires_at`

// Replace creates a session for the email, displacing any existing one in the
// same statement. The UNIQUE constraint on email plus the upsert is what
// enforces the single-session policy under concurrent logins: whichever
// insert lands last owns the row, and the displaced token is dead immediately.
func (s *SessionStore) Replace(email, deviceID string) (*model.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	now := time.Now().UTC()
	expiresAt := now.Add(sessionTTL)

	var devVal sql.NullString
	if deviceID != "" {
		devVal = sql.NullString{String: deviceID, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (token, email, device_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   token = excluded.token,
		   device_id = excluded.device_id,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		token, email, devVal, now, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("replace session: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

// GetByToken returns the session for the given token, or nil if expired or
// not found. Expiry is checked here so a stale row never authenticates even
// before the reaper removes it.
func (s *SessionStore) GetByToken(token string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > datetime('now')`,
		token,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// DeleteByToken removes the session and reports whether one existed.
func (s *SessionStore) DeleteByToken(token string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
