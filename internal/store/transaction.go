package store

import (
	"database/sql"
	"fmt"

	"github.com/lemaitremot/maitremot/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.PaymentTransaction, error) {
	var t model.PaymentTransaction
	var email, name, school sql.NullString
	err := scanner.Scan(
		&t.SessionID, &t.PackageID, &email, &name, &school,
		&t.Amount, &t.Currency, &t.PaymentStatus, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		t.Email = &email.String
	}
	if name.Valid {
		t.Name = &name.String
	}
	if school.Valid {
		t.School = &school.String
	}
	return &t, nil
}

const transactionCols = `session_id, package_id, email, name, school, amount, currency, payment_status, created_at, updated_at`

func (s *TransactionStore) Create(t *model.PaymentTransaction) (*model.PaymentTransaction, error) {
	nullable := func(p *string) sql.NullString {
		if p != nil && *p != "" {
			return sql.NullString{String: *p, Valid: true}
		}
		return sql.NullString{}
	}

	_, err := s.db.Exec(
		`INSERT INTO payment_transactions (session_id, package_id, email, name, school, amount, currency, payment_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.PackageID, nullable(t.Email), nullable(t.Name), nullable(t.School),
		t.Amount, t.Currency, t.PaymentStatus,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return s.GetBySessionID(t.SessionID)
}

func (s *TransactionStore) GetBySessionID(sessionID string) (*model.PaymentTransaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM payment_transactions WHERE session_id = ?`, sessionID)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// MarkPaid flips a pending transaction to paid and reports whether this call
// performed the flip. The status guard makes the paid transition observable
// exactly once, whether the webhook or the status poll sees it first.
func (s *TransactionStore) MarkPaid(sessionID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE payment_transactions SET payment_status = 'paid', updated_at = datetime('now')
		 WHERE session_id = ? AND payment_status != 'paid'`,
		sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("mark transaction paid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
