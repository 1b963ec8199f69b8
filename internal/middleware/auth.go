package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lemaitremot/maitremot/internal/auth"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/store"
)

// SessionHeader carries the bearer session token issued by verify-login.
// It is the only way a request may assert an identity; client-supplied
// email headers are never trusted.
const SessionHeader = "X-Session-Token"

// ResolveSession exchanges a session token for a caller identity.
// Entitlements are re-derived from the subscriber row on every call, so a
// lapsed subscription downgrades immediately even though the session stays
// structurally valid.
func ResolveSession(token string, sessions *store.SessionStore, subscribers *store.SubscriberStore) (auth.Identity, *model.APIError) {
	sess, err := sessions.GetByToken(token)
	if err != nil {
		return auth.Identity{}, model.NewUpstreamUnavailableError("Erreur lors de la validation de session")
	}
	if sess == nil {
		return auth.Identity{}, model.NewUnauthenticatedError("Session invalide ou expirée")
	}

	sub, err := subscribers.GetByEmail(sess.Email)
	if err != nil {
		return auth.Identity{}, model.NewUpstreamUnavailableError("Erreur lors de la validation de session")
	}

	return auth.Identity{
		Email:        sess.Email,
		SessionToken: sess.Token,
		Entitlements: auth.DeriveEntitlements(sub, time.Now().UTC()),
	}, nil
}

// RequireAuth validates the session header and populates the request
// identity. Requests without a valid session are rejected with 401.
func RequireAuth(sessions *store.SessionStore, subscribers *store.SubscriberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionHeader)
			if token == "" {
				writeError(w, http.StatusUnauthorized, model.NewUnauthenticatedError("Token de session manquant"))
				return
			}

			id, apiErr := ResolveSession(token, sessions, subscribers)
			if apiErr != nil {
				status := http.StatusUnauthorized
				if apiErr.Code == model.ErrCodeUpstreamUnavailable {
					status = http.StatusInternalServerError
				}
				writeError(w, status, apiErr)
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePro rejects authenticated callers whose subscription has lapsed.
// Must run after RequireAuth.
func RequirePro(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsPro(r.Context()) {
			writeError(w, http.StatusForbidden, model.NewProRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr)
}
