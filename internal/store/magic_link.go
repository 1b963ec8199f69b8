package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lemaitremot/maitremot/internal/model"
)

const magicLinkTTL = 15 * time.Minute

type MagicLinkStore struct {
	db *sql.DB
}

func NewMagicLinkStore(db *sql.DB) *MagicLinkStore {
	return &MagicLinkStore{db: db}
}

func scanMagicLink(scanner interface{ Scan(...any) error }) (*model.MagicLink, error) {
	var ml model.MagicLink
	var usedAt sql.NullTime
	err := scanner.Scan(&ml.ID, &ml.Token, &ml.Email, &ml.ExpiresAt, &usedAt, &ml.CreatedAt)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t := usedAt.Time.UTC()
		ml.UsedAt = &t
	}
	return &ml, nil
}

const magicLinkCols = `id, token, email, expires_at, used_at, created_at`

// Create generates a new magic link with a crypto-random token and 15-minute
// expiry. Any previous pending tokens for the same email are invalidated
// first, so at most one outstanding link exists per subscriber.
func (s *MagicLinkStore) Create(email string) (*model.MagicLink, error) {
	_, err := s.db.Exec(
		`UPDATE magic_links SET used_at = datetime('now') WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous tokens: %w", err)
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiresAt := time.Now().UTC().Add(magicLinkTTL)

	result, err := s.db.Exec(
		`INSERT INTO magic_links (token, email, expires_at) VALUES (?, ?, ?)`,
		token, email, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert magic link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+magicLinkCols+` FROM magic_links WHERE id = ?`, id)
	return scanMagicLink(row)
}

// GetByToken returns the magic link for the given token regardless of state.
// The caller distinguishes unknown, used, and expired tokens to report a
// specific verification error.
func (s *MagicLinkStore) GetByToken(token string) (*model.MagicLink, error) {
	row := s.db.QueryRow(`SELECT `+magicLinkCols+` FROM magic_links WHERE token = ?`, token)
	ml, err := scanMagicLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get magic link by token: %w", err)
	}
	return ml, nil
}

// Consume marks a token used, but only if it is still pending and unexpired.
// Returns false if another verification got there first.
func (s *MagicLinkStore) Consume(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE magic_links SET used_at = datetime('now') WHERE id = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("consume magic link: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *MagicLinkStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_links WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
