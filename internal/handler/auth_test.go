package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lemaitremot/maitremot/internal/middleware"
	"github.com/lemaitremot/maitremot/internal/model"
)

func newAuthHandler(t *testing.T, e *env) (*AuthHandler, *[]string) {
	t.Helper()
	var sent []string
	return NewAuthHandler(e.subscribers, e.magicLinks, e.sessions, fakeBrevo(t, &sent), e.collector, e.logger), &sent
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRequestLoginUnknownEmail(t *testing.T) {
	e := newEnv(t)
	h, sent := newAuthHandler(t, e)

	rec := postJSON(h.RequestLogin, "/api/auth/request-login", `{"email":"nobody@example.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(*sent) != 0 {
		t.Error("no email may be sent for unknown addresses")
	}
}

func TestRequestLoginLapsedSubscriberSame404(t *testing.T) {
	e := newEnv(t)
	h, sent := newAuthHandler(t, e)

	// Active long ago, expired now.
	e.subscribers.Upsert("was-pro@example.com", model.SubscriptionMonthly, -time.Hour, nil, nil)

	rec := postJSON(h.RequestLogin, "/api/auth/request-login", `{"email":"was-pro@example.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(*sent) != 0 {
		t.Error("lapsed subscriber must not receive a login link")
	}
}

func TestLoginRoundTrip(t *testing.T) {
	e := newEnv(t)
	h, sent := newAuthHandler(t, e)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionMonthly, 30*24*time.Hour, nil, nil)

	rec := postJSON(h.RequestLogin, "/api/auth/request-login", `{"email":"prof@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request-login status = %d: %s", rec.Code, rec.Body)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(*sent))
	}

	// The handler emailed the stored token; read it back from the store.
	link, err := e.magicLinks.GetByToken(tokenFromStore(t, e))
	if err != nil || link == nil {
		t.Fatalf("token lookup: %v %v", link, err)
	}

	rec = postJSON(h.VerifyLogin, "/api/auth/verify-login", `{"token":"`+link.Token+`","device_id":"laptop"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-login status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		SessionToken string `json:"session_token"`
		Email        string `json:"email"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "prof@example.com" || resp.SessionToken == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.ExpiresIn < 23*3600 {
		t.Errorf("expires_in = %d, want about 24h", resp.ExpiresIn)
	}

	// Second use of the same token fails.
	rec = postJSON(h.VerifyLogin, "/api/auth/verify-login", `{"token":"`+link.Token+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused token status = %d, want 401", rec.Code)
	}
	var apiErr model.APIError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if !strings.Contains(apiErr.Message, "déjà été utilisé") {
		t.Errorf("reuse error must be specific, got %q", apiErr.Message)
	}
}

// tokenFromStore digs the latest pending token out of the database; the
// email body is opaque JSON so the store is the simpler source of truth.
func tokenFromStore(t *testing.T, e *env) string {
	t.Helper()
	var token string
	err := e.db.QueryRow(
		`SELECT token FROM magic_links WHERE used_at IS NULL ORDER BY id DESC LIMIT 1`,
	).Scan(&token)
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	return token
}

func TestVerifyLoginUnknownToken(t *testing.T) {
	e := newEnv(t)
	h, _ := newAuthHandler(t, e)

	rec := postJSON(h.VerifyLogin, "/api/auth/verify-login", `{"token":"deadbeef"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyLoginExpiredToken(t *testing.T) {
	e := newEnv(t)
	h, _ := newAuthHandler(t, e)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionMonthly, 30*24*time.Hour, nil, nil)
	link, err := e.magicLinks.Create("prof@example.com")
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if _, err := e.db.Exec(`UPDATE magic_links SET expires_at = datetime('now', '-1 minute') WHERE id = ?`, link.ID); err != nil {
		t.Fatalf("age token: %v", err)
	}

	rec := postJSON(h.VerifyLogin, "/api/auth/verify-login", `{"token":"`+link.Token+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var apiErr model.APIError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if !strings.Contains(apiErr.Message, "expiré") {
		t.Errorf("expired error must be specific, got %q", apiErr.Message)
	}
}

func TestVerifyLoginSubscriptionLapsedAfterIssuance(t *testing.T) {
	e := newEnv(t)
	h, _ := newAuthHandler(t, e)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionMonthly, 30*24*time.Hour, nil, nil)
	link, _ := e.magicLinks.Create("prof@example.com")

	// Subscription ends before the link is clicked.
	if _, err := e.db.Exec(`UPDATE subscribers SET subscription_expires = datetime('now', '-1 day') WHERE email = 'prof@example.com'`); err != nil {
		t.Fatalf("lapse subscription: %v", err)
	}

	rec := postJSON(h.VerifyLogin, "/api/auth/verify-login", `{"token":"`+link.Token+`"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestSecondLoginReplacesSession(t *testing.T) {
	e := newEnv(t)
	h, _ := newAuthHandler(t, e)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionMonthly, 30*24*time.Hour, nil, nil)

	login := func(deviceID string) string {
		link, err := e.magicLinks.Create("prof@example.com")
		if err != nil {
			t.Fatalf("create link: %v", err)
		}
		rec := postJSON(h.VerifyLogin, "/api/auth/verify-login", `{"token":"`+link.Token+`","device_id":"`+deviceID+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("verify status = %d: %s", rec.Code, rec.Body)
		}
		var resp struct {
			SessionToken string `json:"session_token"`
		}
		json.NewDecoder(rec.Body).Decode(&resp)
		return resp.SessionToken
	}

	first := login("laptop")
	second := login("phone")

	if s, _ := e.sessions.GetByToken(first); s != nil {
		t.Error("first session must be displaced by second login")
	}
	if s, _ := e.sessions.GetByToken(second); s == nil {
		t.Error("second session must be live")
	}
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	h, _ := newAuthHandler(t, e)

	e.subscribers.Upsert("prof@example.com", model.SubscriptionMonthly, 30*24*time.Hour, nil, nil)
	sess, _ := e.sessions.Replace("prof@example.com", "")

	// No header.
	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing header status = %d, want 400", rec.Code)
	}

	// Valid token.
	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set(middleware.SessionHeader, sess.Token)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("logout status = %d, want 200", rec.Code)
	}

	// Same token again: already gone.
	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set(middleware.SessionHeader, sess.Token)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second logout status = %d, want 404", rec.Code)
	}
}
