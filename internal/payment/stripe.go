// Package payment wraps the Stripe API for checkout and webhooks.
// Amounts come from the server-side pricing catalog; the client only
// ever names a package ID.
package payment

import (
	"fmt"
	"math"

	stripe "github.com/stripe/stripe-go/v82"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/lemaitremot/maitremot/internal/catalog"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// Configured returns true if the secret key is set.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}

// cents converts a catalog euro amount to Stripe's integer unit amount.
// Rounds rather than truncates: 19.99 is 1998.9999... in float64.
func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CheckoutSession is the subset of a Stripe checkout session the
// application cares about.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	CustomerEmail string
}

// CreateCheckoutSession opens a Stripe checkout for the package and
// returns the hosted payment page. originURL is the SPA origin the buyer
// is sent back to.
func (c *Client) CreateCheckoutSession(pkg catalog.Package, email, originURL string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(pkg.Currency),
					UnitAmount: stripe.Int64(cents(pkg.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Le Maître Mot Pro - " + pkg.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(originURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(originURL + "/checkout/cancel"),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	sess, err := checksession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL, PaymentStatus: string(sess.PaymentStatus)}, nil
}

// GetCheckoutSession retrieves the current state of a checkout session.
func (c *Client) GetCheckoutSession(sessionID string) (*CheckoutSession, error) {
	sess, err := checksession.Get(sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}
	out := &CheckoutSession{ID: sess.ID, URL: sess.URL, PaymentStatus: string(sess.PaymentStatus)}
	if sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	return out, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
