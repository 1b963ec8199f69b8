package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lemaitremot/maitremot/internal/auth"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/store"
)

type SubscriptionHandler struct {
	subscribers *store.SubscriberStore
	logger      *slog.Logger
}

func NewSubscriptionHandler(subs *store.SubscriberStore, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscribers: subs, logger: logger}
}

// Status reports the subscription state for an email. Used by the
// checkout success page before the buyer has a session.
func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	addr := strings.ToLower(strings.TrimSpace(r.PathValue("email")))
	if addr == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("Email requis"))
		return
	}

	sub, err := h.subscribers.GetByEmail(addr)
	if err != nil {
		h.logger.Error("subscription status", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	now := time.Now().UTC()
	ent := auth.DeriveEntitlements(sub, now)

	resp := map[string]any{
		"email":             addr,
		"is_pro":            ent.Pro,
		"subscription_type": ent.SubscriptionType,
	}
	if ent.ExpiresAt != nil {
		resp["subscription_expires"] = ent.ExpiresAt
		resp["days_remaining"] = int(math.Ceil(ent.ExpiresAt.Sub(now).Hours() / 24))
	}
	writeJSON(w, http.StatusOK, resp)
}
