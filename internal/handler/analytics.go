package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/lemaitremot/maitremot/internal/auth"
	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/store"
)

// recentActivityWindow bounds the "last 30 days" figures in the overview.
const recentActivityWindow = 30 * 24 * time.Hour

type AnalyticsHandler struct {
	exports *store.ExportStore
	logger  *slog.Logger
}

func NewAnalyticsHandler(exports *store.ExportStore, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{exports: exports, logger: logger}
}

type templateUsageEntry struct {
	Template string `json:"template"`
	Count    int    `json:"count"`
}

// Overview reports a subscriber's export activity: lifetime total, recent
// total, and per-template breakdown. Pro only; the route carries RequirePro.
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok || !id.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, model.NewUnauthenticatedError("Session requise"))
		return
	}

	total, err := h.exports.CountByEmail(id.Email)
	if err != nil {
		h.logger.Error("analytics overview", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	recent, err := h.exports.CountByEmailSince(id.Email, time.Now().UTC().Add(-recentActivityWindow))
	if err != nil {
		h.logger.Error("analytics overview", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	usage, err := h.exports.TemplateUsageByEmail(id.Email)
	if err != nil {
		h.logger.Error("analytics overview", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}

	entries := make([]templateUsageEntry, 0, len(usage))
	for tmpl, count := range usage {
		entries = append(entries, templateUsageEntry{Template: tmpl, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Template < entries[j].Template })

	writeJSON(w, http.StatusOK, map[string]any{
		"user_analytics": map[string]any{
			"total_exports":        total,
			"exports_last_30_days": recent,
			"template_usage":       entries,
			"subscription_type":    id.Entitlements.SubscriptionType,
		},
	})
}
