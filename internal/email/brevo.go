// Package email sends transactional mail through the Brevo API.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	apiURL     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Brevo endpoint, used by tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

// NewClient builds a Brevo client. baseURL is the public application URL
// embedded in login links.
func NewClient(apiKey, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		baseURL:    baseURL,
		apiURL:     brevoAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type brevoRecipient struct {
	Email string `json:"email"`
}

type brevoSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoSender      `json:"sender"`
	To          []brevoRecipient `json:"to"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"htmlContent"`
	TextContent string           `json:"textContent"`
}

// SendMagicLink mails a one-time login link.
func (c *Client) SendMagicLink(toEmail, token string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing API key")
	}

	link := fmt.Sprintf("%s/login/verify?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf(
		"Cliquez sur le lien ci-dessous pour vous connecter à Le Maître Mot :\n\n%s\n\nCe lien expire dans 15 minutes et ne peut être utilisé qu'une seule fois.",
		link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Cliquez sur le lien ci-dessous pour vous connecter à Le Maître Mot :</p><p><a href="%s">Se connecter</a></p><p>Ce lien expire dans 15 minutes et ne peut être utilisé qu'une seule fois.</p>`,
		link,
	)

	payload := brevoEmail{
		Sender:      brevoSender{Name: "Le Maître Mot", Email: c.fromEmail},
		To:          []brevoRecipient{{Email: toEmail}},
		Subject:     "Votre lien de connexion - Le Maître Mot",
		HTMLContent: htmlBody,
		TextContent: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}

	return nil
}
