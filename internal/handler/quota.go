package handler

import (
	"log/slog"
	"net/http"

	"github.com/lemaitremot/maitremot/internal/model"
	"github.com/lemaitremot/maitremot/internal/store"
)

type QuotaHandler struct {
	exports *store.ExportStore
	logger  *slog.Logger
}

func NewQuotaHandler(es *store.ExportStore, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{exports: es, logger: logger}
}

// Check reports a guest's position against the free export ceiling.
// Unknown guest IDs simply report zero usage; the counter only exists
// once the first export lands.
func (h *QuotaHandler) Check(w http.ResponseWriter, r *http.Request) {
	guestID := r.URL.Query().Get("guest_id")
	if guestID == "" {
		writeError(w, http.StatusBadRequest, model.NewBadRequestError("guest_id requis"))
		return
	}

	status, err := h.exports.GuestQuota(guestID)
	if err != nil {
		h.logger.Error("quota check", "error", err)
		writeError(w, http.StatusInternalServerError, model.NewUpstreamUnavailableError("Erreur interne"))
		return
	}
	writeJSON(w, http.StatusOK, status)
}
