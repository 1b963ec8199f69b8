package model

import "time"

// TemplateProfile holds a Pro subscriber's document personalization.
type TemplateProfile struct {
	Email         string    `json:"email"`
	ProfessorName *string   `json:"professor_name,omitempty"`
	SchoolName    *string   `json:"school_name,omitempty"`
	SchoolYear    *string   `json:"school_year,omitempty"`
	FooterText    *string   `json:"footer_text,omitempty"`
	TemplateStyle string    `json:"template_style"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PaymentTransaction tracks a Stripe checkout session from initiation to
// payment. The Subscriber row is only upserted once the payment is observed
// (webhook or status poll), never at initiation.
type PaymentTransaction struct {
	SessionID     string    `json:"session_id"`
	PackageID     string    `json:"package_id"`
	Email         *string   `json:"email,omitempty"`
	Name          *string   `json:"name,omitempty"`
	School        *string   `json:"school,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
