package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lemaitremot/maitremot/internal/auth"
	"github.com/lemaitremot/maitremot/internal/email"
	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/middleware"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/store"
)

type AuthHandler struct {
	subscribers *store.SubscriberStore
	magicLinks  *store.MagicLinkStore
	sessions    *store.SessionStore
	emailClient *email.Client
	collector   *metrics.Collector
	logger      *slog.Logger
}

func NewAuthHandler(
	subs *store.SubscriberStore,
	mls *store.MagicLinkStore,
	ss *store.SessionStore,
	ec *email.Client,
	collector *metrics.Collector,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		subscribers: subs,
		magicLinks:  mls,
		sessions:    ss,
		emailClient: ec,
		collector:   collector,
		logger:      logger,
	}
}

// RequestLogin issues a magic link to an active Pro subscriber. Unknown
// emails and lapsed subscriptions get the same 404 so the endpoint cannot
// be used to probe which addresses pay.
func (h *AuthHandler) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Email requis"))
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))

	sub, err := h.subscribers.GetByEmail(addr)
	if err != nil {
		h.logger.Error("request login: get subscriber", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	ent := auth.DeriveEntitlements(sub, time.Now().UTC())
	if !ent.Pro {
		writeError(w, http.StatusNotFound, model.NewSubscriberNotFoundError())
		return
	}

	link, err := h.magicLinks.Create(addr)
	if err != nil {
		h.logger.Error("request login: create magic link", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	if err := h.emailClient.SendMagicLink(addr, link.Token); err != nil {
		h.logger.Error("request login: send email", "email", addr, "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Impossible d'envoyer l'email de connexion"))
		return
	}

	h.collector.RecordLoginRequest()
	h.logger.Info("magic link sent", "email", addr)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Un lien de connexion a été envoyé à votre adresse email",
	})
}

// VerifyLogin exchanges a magic link token for a session, replacing any
// previous session for the same email.
func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		DeviceID string `json:"device_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Token requis"))
		return
	}

	link, err := h.magicLinks.GetByToken(req.Token)
	if err != nil {
		h.logger.Error("verify login: get token", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	switch {
	case link == nil:
		h.collector.RecordLoginRejected("unknown")
		writeError(w, http.StatusUnauthorized, model.NewInvalidTokenError("Lien de connexion invalide"))
		return
	case link.UsedAt != nil:
		h.collector.RecordLoginRejected("used")
		writeError(w, http.StatusUnauthorized, model.NewInvalidTokenError("Ce lien de connexion a déjà été utilisé"))
		return
	case time.Now().UTC().After(link.ExpiresAt):
		h.collector.RecordLoginRejected("expired")
		writeError(w, http.StatusUnauthorized, model.NewInvalidTokenError("Ce lien de connexion a expiré"))
		return
	}

	// The subscription may have lapsed between issuance and the click.
	sub, err := h.subscribers.GetByEmail(link.Email)
	if err != nil {
		h.logger.Error("verify login: get subscriber", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if !auth.DeriveEntitlements(sub, time.Now().UTC()).Pro {
		h.collector.RecordLoginRejected("lapsed")
		writeError(w, http.StatusForbidden, model.NewSubscriberNotFoundError())
		return
	}

	consumed, err := h.magicLinks.Consume(link.ID)
	if err != nil {
		h.logger.Error("verify login: consume token", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if !consumed {
		// Lost the race against a concurrent verification of the same link.
		h.collector.RecordLoginRejected("used")
		writeError(w, http.StatusUnauthorized, model.NewInvalidTokenError("Ce lien de connexion a déjà été utilisé"))
		return
	}

	sess, err := h.sessions.Replace(link.Email, req.DeviceID)
	if err != nil {
		h.logger.Error("verify login: create session", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	if err := h.subscribers.TouchLastLogin(link.Email); err != nil {
		h.logger.Error("verify login: touch last login", "error", err)
	}

	h.collector.RecordLoginVerified()
	h.logger.Info("login verified", "email", link.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_token": sess.Token,
		"email":         sess.Email,
		"expires_in":    int(time.Until(sess.ExpiresAt).Seconds()),
	})
}

// ValidateSession reports the caller's identity and entitlements. A valid
// session with a lapsed subscription answers 200 with is_pro=false; the
// client downgrades the UI instead of logging the user out.
func (h *AuthHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.NewUnauthenticatedError("Session invalide ou expirée"))
		return
	}

	resp := map[string]any{
		"email":             id.Email,
		"is_pro":            id.Entitlements.Pro,
		"subscription_type": id.Entitlements.SubscriptionType,
	}
	if id.Entitlements.ExpiresAt != nil {
		resp["subscription_expires"] = id.Entitlements.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the presented session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(middleware.SessionHeader)
	if token == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Token de session manquant"))
		return
	}

	deleted, err := h.sessions.DeleteByToken(token)
	if err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, model.NewNotFoundError("Session inconnue"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Déconnexion réussie"})
}
