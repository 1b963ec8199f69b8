package model

import "time"

// Subscription types.
const (
	SubscriptionNone    = "none"
	SubscriptionMonthly = "monthly"
	SubscriptionYearly  = "yearly"
)

// Subscriber is a paying (or lapsed) identity keyed by email.
// Rows are created by the payment flow and never deleted; expiry is soft
// state read at request time.
type Subscriber struct {
	Email               string     `json:"email"`
	Name                *string    `json:"name,omitempty"`
	School              *string    `json:"school,omitempty"`
	SubscriptionType    string     `json:"subscription_type"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`
	StripeCustomerID    *string    `json:"-"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"-"`
}
