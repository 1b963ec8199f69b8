package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lemaitremot/maitremot/internal/model"
)

type SubscriberStore struct {
	db *sql.DB
}

func NewSubscriberStore(db *sql.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

func scanSubscriber(scanner interface{ Scan(...any) error }) (*model.Subscriber, error) {
	var s model.Subscriber
	var name, school, stripeID sql.NullString
	var expires, lastLogin sql.NullTime
	err := scanner.Scan(
		&s.Email, &name, &school, &s.SubscriptionType, &expires,
		&stripeID, &lastLogin, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if name.Valid {
		s.Name = &name.String
	}
	if school.Valid {
		s.School = &school.String
	}
	if stripeID.Valid {
		s.StripeCustomerID = &stripeID.String
	}
	if expires.Valid {
		t := expires.Time.UTC()
		s.SubscriptionExpires = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		s.LastLogin = &t
	}
	return &s, nil
}

const subscriberCols = `email, name, school, subscription_type, subscription_expires, stripe_customer_id, last_login, created_at, updated_at`

func (s *SubscriberStore) GetByEmail(email string) (*model.Subscriber, error) {
	row := s.db.QueryRow(`SELECT `+subscriberCols+` FROM subscribers WHERE email = ?`, email)
	sub, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber by email: %w", err)
	}
	return sub, nil
}

// Upsert creates or renews a subscription. A renewal while the current
// subscription is still active extends from its expiry rather than from now.
func (s *SubscriberStore) Upsert(email, subscriptionType string, duration time.Duration, name, school *string) (*model.Subscriber, error) {
	existing, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expires := now.Add(duration)
	if existing != nil && existing.SubscriptionExpires != nil && existing.SubscriptionExpires.After(now) {
		expires = existing.SubscriptionExpires.Add(duration)
	}

	var nameVal, schoolVal sql.NullString
	if name != nil && *name != "" {
		nameVal = sql.NullString{String: *name, Valid: true}
	}
	if school != nil && *school != "" {
		schoolVal = sql.NullString{String: *school, Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO subscribers (email, name, school, subscription_type, subscription_expires)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   name = COALESCE(excluded.name, name),
		   school = COALESCE(excluded.school, school),
		   subscription_type = excluded.subscription_type,
		   subscription_expires = excluded.subscription_expires,
		   updated_at = datetime('now')`,
		email, nameVal, schoolVal, subscriptionType, expires,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}
	return s.GetByEmail(email)
}

func (s *SubscriberStore) UpdateStripeCustomerID(email, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE subscribers SET stripe_customer_id = ?, updated_at = datetime('now') WHERE email = ?`,
		customerID, email,
	)
	if err != nil {
		return fmt.Errorf("update stripe customer id: %w", err)
	}
	return nil
}

func (s *SubscriberStore) TouchLastLogin(email string) error {
	_, err := s.db.Exec(
		`UPDATE subscribers SET last_login = datetime('now'), updated_at = datetime('now') WHERE email = ?`,
		email,
	)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
