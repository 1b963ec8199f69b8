package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/payment"
)

func newCheckoutHandler(e *env) *CheckoutHandler {
	return NewCheckoutHandler(e.transactions, e.subscribers, payment.NewClient(payment.Config{}), e.collector, e.logger)
}

func TestCheckoutRejectsUnknownPackage(t *testing.T) {
	e := newEnv(t)
	h := newCheckoutHandler(e)

	rec := postJSON(h.CreateSession, "/api/checkout/session",
		`{"package_id":"weekly","origin_url":"https://lemaitremot.fr"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCheckoutRejectsActiveSubscriber(t *testing.T) {
	e := newEnv(t)
	h := newCheckoutHandler(e)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionMonthly, 30*24*time.Hour, nil, nil)

	rec := postJSON(h.CreateSession, "/api/checkout/session",
		`{"package_id":"monthly","email":"prof@example.com","origin_url":"https://lemaitremot.fr"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var apiErr model.APIError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if apiErr.Code != model.ErrCodeAlreadySubscribed {
		t.Errorf("error code = %q", apiErr.Code)
	}
}

func TestCheckoutLapsedSubscriberMayRepurchase(t *testing.T) {
	e := newEnv(t)
	h := newCheckoutHandler(e)

	e.subscribers.Upsert("was-pro@example.com", model.SubscriptionMonthly, -time.Hour, nil, nil)

	// Stripe is unconfigured in tests, so the request passes the
	// subscription check and fails at the payment step.
	rec := postJSON(h.CreateSession, "/api/checkout/session",
		`{"package_id":"monthly","email":"was-pro@example.com","origin_url":"https://lemaitremot.fr"}`)
	if rec.Code == http.StatusConflict {
		t.Error("lapsed subscriber must be allowed to buy again")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without stripe config", rec.Code)
	}
}

func TestCheckoutStatusUnknownSession(t *testing.T) {
	e := newEnv(t)
	h := newCheckoutHandler(e)

	req := httptest.NewRequest("GET", "/api/checkout/status/cs_unknown", nil)
	req.SetPathValue("session_id", "cs_unknown")
	rec := httptest.NewRecorder()
	h.Status(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestActivatePaysExactlyOnce(t *testing.T) {
	e := newEnv(t)
	h := newCheckoutHandler(e)

	addr := "buyer@example.com"
	tx, err := e.transactions.Create(&model.PaymentTransaction{
		SessionID:     "cs_test_1",
		PackageID:     "monthly",
		Email:         &addr,
		Amount:        9.99,
		Currency:      "eur",
		PaymentStatus: "pending",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	// Webhook and status poll race: both observe the payment.
	if err := h.activate("cs_test_1", addr, tx); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if err := h.activate("cs_test_1", addr, tx); err != nil {
		t.Fatalf("second activate: %v", err)
	}

	sub, err := e.subscribers.GetByEmail(addr)
	if err != nil || sub == nil {
		t.Fatalf("subscriber: %v %v", sub, err)
	}
	if sub.SubscriptionType != model.SubscriptionMonthly {
		t.Errorf("subscription_type = %q", sub.SubscriptionType)
	}

	// One activation: expiry is about 30 days out, not 60.
	want := time.Now().UTC().Add(30 * 24 * time.Hour)
	if sub.SubscriptionExpires == nil {
		t.Fatal("no expiry set")
	}
	if diff := sub.SubscriptionExpires.Sub(want); diff > time.Minute || diff < -time.Minute {
		t.Errorf("expiry = %v, want about %v", sub.SubscriptionExpires, want)
	}
}

func TestActivateYearlyRenewalExtendsFromExpiry(t *testing.T) {
	e := newEnv(t)
	h := newCheckoutHandler(e)

	addr := "buyer@example.com"
	// Active monthly with 10 days left.
	e.subscribers.Upsert(addr, model.SubscriptionMonthly, 10*24*time.Hour, nil, nil)

	tx, _ := e.transactions.Create(&model.PaymentTransaction{
		SessionID:     "cs_test_2",
		PackageID:     "yearly",
		Email:         &addr,
		Amount:        99,
		Currency:      "eur",
		PaymentStatus: "pending",
	})
	if err := h.activate("cs_test_2", addr, tx); err != nil {
		t.Fatalf("activate: %v", err)
	}

	sub, _ := e.subscribers.GetByEmail(addr)
	want := time.Now().UTC().Add((10 + 365) * 24 * time.Hour)
	if diff := sub.SubscriptionExpires.Sub(want); diff > time.Minute || diff < -time.Minute {
		t.Errorf("expiry = %v, want about %v (extension from current expiry)", sub.SubscriptionExpires, want)
	}
	if sub.SubscriptionType != model.SubscriptionYearly {
		t.Errorf("subscription_type = %q", sub.SubscriptionType)
	}
}

func TestSubscriptionStatus(t *testing.T) {
	e := newEnv(t)
	h := NewSubscriptionHandler(e.subscribers, e.logger)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionYearly, 100*24*time.Hour, nil, nil)

	req := httptest.NewRequest("GET", "/api/subscription/status/prof@example.com", nil)
	req.SetPathValue("email", "prof@example.com")
	rec := httptest.NewRecorder()
	h.Status(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		IsPro         bool   `json:"is_pro"`
		Type          string `json:"subscription_type"`
		DaysRemaining int    `json:"days_remaining"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.IsPro || resp.Type != model.SubscriptionYearly {
		t.Errorf("response = %+v", resp)
	}
	if resp.DaysRemaining < 99 || resp.DaysRemaining > 100 {
		t.Errorf("days_remaining = %d", resp.DaysRemaining)
	}
}

func TestSubscriptionStatusUnknownEmailIsFreeTier(t *testing.T) {
	e := newEnv(t)
	h := NewSubscriptionHandler(e.subscribers, e.logger)

	req := httptest.NewRequest("GET", "/api/subscription/status/nobody@example.com", nil)
	req.SetPathValue("email", "nobody@example.com")
	rec := httptest.NewRecorder()
	h.Status(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		IsPro bool   `json:"is_pro"`
		Type  string `json:"subscription_type"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.IsPro || resp.Type != model.SubscriptionNone {
		t.Errorf("response = %+v", resp)
	}
}
